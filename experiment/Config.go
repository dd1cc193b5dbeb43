package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/environment/crowdsim"
	"github.com/samuelfneumann/crowdnav/initwfn"
	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/solver"
)

// TrainConfig configures reinforcement learning
type TrainConfig struct {
	RLLearningRate       float64
	TrainBatches         int
	TrainEpisodes        int
	SampleEpisodes       int
	TargetUpdateInterval int
	EvaluationInterval   int
	Capacity             int
	EpsilonStart         float64
	EpsilonEnd           float64
	EpsilonDecay         int
	CheckpointInterval   int

	// Episodes run at EpsilonEnd to refill memory when resuming
	WarmupEpisodes int
}

// TrainerConfig configures the optimizer driver
type TrainerConfig struct {
	BatchSize int
}

// ImitationConfig configures imitation learning
type ImitationConfig struct {
	ILEpisodes     int
	ILEpochs       int
	ILLearningRate float64

	// Clearance kept by the demonstrator when the robot is invisible to
	// humans
	SafetySpace float64
}

// CurriculumConfig configures the success-rate driven curriculum
type CurriculumConfig struct {
	Enabled               bool
	SuccessRateMilestone  float64
	SuccessRateWindowSize int
}

// Config is the configuration of a training run. It is loaded once
// and never changed during the run.
type Config struct {
	Method    agent.Method
	Optimizer string
	Seed      uint64
	Debug     bool

	Train             TrainConfig
	Trainer           TrainerConfig
	ImitationLearning ImitationConfig
	Curriculum        CurriculumConfig

	Model network.Config
	Env   crowdsim.Config
}

// DefaultConfig returns the default configuration of a run
func DefaultConfig() Config {
	return Config{
		Method:    agent.ValueLearning,
		Optimizer: "sgd",
		Seed:      1,
		Train: TrainConfig{
			RLLearningRate:       0.001,
			TrainBatches:         100,
			TrainEpisodes:        10000,
			SampleEpisodes:       1,
			TargetUpdateInterval: 50,
			EvaluationInterval:   1000,
			Capacity:             100000,
			EpsilonStart:         0.5,
			EpsilonEnd:           0.1,
			EpsilonDecay:         4000,
			CheckpointInterval:   1000,
			WarmupEpisodes:       100,
		},
		Trainer: TrainerConfig{
			BatchSize: 100,
		},
		ImitationLearning: ImitationConfig{
			ILEpisodes:     3000,
			ILEpochs:       50,
			ILLearningRate: 0.01,
			SafetySpace:    0.15,
		},
		Curriculum: CurriculumConfig{
			Enabled:               false,
			SuccessRateMilestone:  0.8,
			SuccessRateWindowSize: 100,
		},
		Model: network.Config{
			HiddenSizes: []int{150, 100, 100},
			Biases:      []bool{true, true, true},
			Activations: []string{"relu", "relu", "relu"},
			InitWFn:     mustInit(initwfn.NewGlorotU(1.0)),
		},
		Env: crowdsim.DefaultConfig(),
	}
}

func mustInit(init *initwfn.InitWFn, err error) *initwfn.InitWFn {
	if err != nil {
		panic(fmt.Sprintf("mustInit: %v", err))
	}
	return init
}

// SolverType returns the type of solver named by the Optimizer
func (c Config) SolverType() (solver.Type, error) {
	return solver.ParseType(c.Optimizer)
}

// Schedule returns the exploration schedule of the run
func (c Config) Schedule() EpsilonSchedule {
	return EpsilonSchedule{
		Start: c.Train.EpsilonStart,
		End:   c.Train.EpsilonEnd,
		Decay: c.Train.EpsilonDecay,
	}
}

// Validate checks a Config for errors, returning a *ConfigError naming
// the first invalid field
func (c Config) Validate() error {
	if _, err := agent.ParseMethod(string(c.Method)); err != nil {
		return &ConfigError{Field: "Method", Err: err}
	}
	if _, err := c.SolverType(); err != nil {
		return &ConfigError{Field: "Optimizer", Err: err}
	}

	t := c.Train
	switch {
	case t.RLLearningRate <= 0:
		return configErrorf("Train.RLLearningRate", "must be positive, "+
			"have(%v)", t.RLLearningRate)
	case t.TrainBatches < 0:
		return configErrorf("Train.TrainBatches", "must be non-negative, "+
			"have(%v)", t.TrainBatches)
	case t.TrainEpisodes < 0:
		return configErrorf("Train.TrainEpisodes", "must be non-negative, "+
			"have(%v)", t.TrainEpisodes)
	case t.SampleEpisodes < 1:
		return configErrorf("Train.SampleEpisodes", "must be positive, "+
			"have(%v)", t.SampleEpisodes)
	case t.TargetUpdateInterval < 1:
		return configErrorf("Train.TargetUpdateInterval", "must be "+
			"positive, have(%v)", t.TargetUpdateInterval)
	case t.EvaluationInterval < 1:
		return configErrorf("Train.EvaluationInterval", "must be positive, "+
			"have(%v)", t.EvaluationInterval)
	case t.CheckpointInterval < 1:
		return configErrorf("Train.CheckpointInterval", "must be positive, "+
			"have(%v)", t.CheckpointInterval)
	case t.Capacity < c.Trainer.BatchSize:
		return configErrorf("Train.Capacity", "must hold a batch, "+
			"want(>=%v) have(%v)", c.Trainer.BatchSize, t.Capacity)
	case t.EpsilonStart < 0 || t.EpsilonStart > 1 || t.EpsilonEnd < 0 ||
		t.EpsilonEnd > 1:
		return configErrorf("Train.Epsilon", "must be probabilities, "+
			"have(%v, %v)", t.EpsilonStart, t.EpsilonEnd)
	case t.EpsilonDecay < 0:
		return configErrorf("Train.EpsilonDecay", "must be non-negative, "+
			"have(%v)", t.EpsilonDecay)
	case t.WarmupEpisodes < 0:
		return configErrorf("Train.WarmupEpisodes", "must be non-negative, "+
			"have(%v)", t.WarmupEpisodes)
	}

	if c.Trainer.BatchSize < 1 {
		return configErrorf("Trainer.BatchSize", "must be positive, have(%v)",
			c.Trainer.BatchSize)
	}

	il := c.ImitationLearning
	switch {
	case il.ILEpisodes < 1:
		return configErrorf("ImitationLearning.ILEpisodes", "must be "+
			"positive, have(%v)", il.ILEpisodes)
	case il.ILEpochs < 0:
		return configErrorf("ImitationLearning.ILEpochs", "must be "+
			"non-negative, have(%v)", il.ILEpochs)
	case il.ILLearningRate <= 0:
		return configErrorf("ImitationLearning.ILLearningRate", "must be "+
			"positive, have(%v)", il.ILLearningRate)
	case il.SafetySpace < 0:
		return configErrorf("ImitationLearning.SafetySpace", "must be "+
			"non-negative, have(%v)", il.SafetySpace)
	}

	if cl := c.Curriculum; cl.Enabled {
		if cl.SuccessRateWindowSize < 1 {
			return configErrorf("Curriculum.SuccessRateWindowSize", "must be "+
				"positive, have(%v)", cl.SuccessRateWindowSize)
		}
		if cl.SuccessRateMilestone < 0 || cl.SuccessRateMilestone > 1 {
			return configErrorf("Curriculum.SuccessRateMilestone", "must be "+
				"a rate, have(%v)", cl.SuccessRateMilestone)
		}
	}

	if err := c.Model.Validate(); err != nil {
		return &ConfigError{Field: "Model", Err: err}
	}
	if err := c.Env.Validate(); err != nil {
		return &ConfigError{Field: "Env", Err: err}
	}
	return nil
}

// LoadConfig reads a Config from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Field: "path", Err: err}
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, &ConfigError{Field: "path",
			Err: fmt.Errorf("could not decode %v: %w", path, err)}
	}

	method, err := agent.ParseMethod(string(config.Method))
	if err != nil {
		return Config{}, &ConfigError{Field: "Method", Err: err}
	}
	config.Method = method

	return config, config.Validate()
}
