package experiment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/crowdnav/agent"
)

func TestEpsilonSchedule(t *testing.T) {
	e := EpsilonSchedule{Start: 0.5, End: 0.1, Decay: 4000}

	if have := e.At(0, 0); have != 0.5 {
		t.Errorf("at(0): want(0.5) have(%v)", have)
	}
	if have := e.At(4000, 0); have != 0.1 {
		t.Errorf("at(4000): want(0.1) have(%v)", have)
	}
	if have := e.At(10000, 0); have != 0.1 {
		t.Errorf("at(10000): want(0.1) have(%v)", have)
	}

	prev := e.At(0, 0)
	for episode := 1; episode <= 4100; episode += 50 {
		eps := e.At(episode, 0)
		if eps > prev {
			t.Fatalf("at(%v): not monotone, %v > %v", episode, eps, prev)
		}
		prev = eps
	}

	// Decay restarts at the anchor
	if have := e.At(2000, 2000); have != 0.5 {
		t.Errorf("anchored: want(0.5) have(%v)", have)
	}
	if have := e.At(10, 2000); have != 0.5 {
		t.Errorf("before anchor: want(0.5) have(%v)", have)
	}

	if have := (EpsilonSchedule{Start: 1, End: 0.2}).At(0, 0); have != 0.2 {
		t.Errorf("no decay: want(0.2) have(%v)", have)
	}
}

func TestEpsilonScheduleShortDecay(t *testing.T) {
	e := EpsilonSchedule{Start: 0.5, End: 0.1, Decay: 1000}

	if have := e.At(0, 0); have != 0.5 {
		t.Errorf("at(0): want(0.5) have(%v)", have)
	}
	for _, episode := range []int{1000, 1001, 5000} {
		if have := e.At(episode, 0); have != 0.1 {
			t.Errorf("at(%v): want(0.1) have(%v)", episode, have)
		}
	}

	prev := e.At(0, 0)
	for episode := 1; episode <= 1000; episode++ {
		eps := e.At(episode, 0)
		if eps > prev {
			t.Fatalf("at(%v): not monotone, %v > %v", episode, eps, prev)
		}
		prev = eps
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		field  string
		modify func(*Config)
	}{
		{"Method", func(c *Config) { c.Method = "ppo" }},
		{"Optimizer", func(c *Config) { c.Optimizer = "lbfgs" }},
		{"Train.RLLearningRate", func(c *Config) { c.Train.RLLearningRate = 0 }},
		{"Train.Capacity", func(c *Config) { c.Train.Capacity = 10 }},
		{"Train.Epsilon", func(c *Config) { c.Train.EpsilonStart = 2 }},
		{"Trainer.BatchSize", func(c *Config) { c.Trainer.BatchSize = 0 }},
		{"ImitationLearning.ILEpisodes", func(c *Config) {
			c.ImitationLearning.ILEpisodes = 0
		}},
		{"Curriculum.SuccessRateWindowSize", func(c *Config) {
			c.Curriculum.Enabled = true
			c.Curriculum.SuccessRateWindowSize = 0
		}},
		{"Env", func(c *Config) { c.Env.TimeStep = -1 }},
	}

	for _, test := range tests {
		field := test.field
		config := DefaultConfig()
		test.modify(&config)

		err := config.Validate()
		var configErr *ConfigError
		if !errors.As(err, &configErr) {
			t.Errorf("validate(%v): want ConfigError, have %v", field, err)
			continue
		}
		if configErr.Field != field {
			t.Errorf("validate: want(%v) have(%v)", field, configErr.Field)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"Method": "doubleq", "Train": {"TrainEpisodes": 5}}`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if config.Method != agent.DoubleQ {
		t.Errorf("method: want(%v) have(%v)", agent.DoubleQ, config.Method)
	}
	if config.Train.TrainEpisodes != 5 {
		t.Errorf("trainEpisodes: want(5) have(%v)", config.Train.TrainEpisodes)
	}
	want := DefaultConfig().Train.EpsilonDecay
	if config.Train.EpsilonDecay != want {
		t.Errorf("default kept: want(%v) have(%v)", want,
			config.Train.EpsilonDecay)
	}

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if !IsConfigError(err) {
		t.Errorf("loadConfig: want ConfigError for missing file, have %v", err)
	}
}

func TestStateLevelUp(t *testing.T) {
	s := NewState()
	if s.Stage != Imitation || s.RunID == "" {
		t.Errorf("newState: have %v", s)
	}

	s.LevelUp(2, 40)
	s.LevelUp(1, 15)
	if s.Level != 1 || s.LastLevelUp != 15 {
		t.Errorf("levelUp: have level %v at %v", s.Level, s.LastLevelUp)
	}

	levels := s.Levels()
	want := []int{0, 1, 2}
	if len(levels) != len(want) {
		t.Fatalf("levels: want(%v) have(%v)", want, levels)
	}
	for i := range want {
		if levels[i] != want[i] {
			t.Errorf("levels: want(%v) have(%v)", want, levels)
		}
	}
}
