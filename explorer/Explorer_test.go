package explorer

import (
	"math"
	"testing"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/experiment/tracker"
	"github.com/samuelfneumann/crowdnav/expreplay"
	"github.com/samuelfneumann/crowdnav/network"
	ts "github.com/samuelfneumann/crowdnav/timestep"
	"gonum.org/v1/gonum/mat"
)

const (
	discount  = 0.5
	timeStep  = 0.25
	timeLimit = 25
)

// scriptedEnv plays fixed-length episodes whose endings cycle through
// ends. Every episode is in danger on its first step.
type scriptedEnv struct {
	ends     []ts.EndType
	length   int
	episodes int
	steps    int
	level    int
	maxLevel int
}

func (s *scriptedEnv) obs() mat.Vector {
	return mat.NewVecDense(2, []float64{float64(s.episodes), float64(s.steps)})
}

func (s *scriptedEnv) Reset(environment.Phase) (ts.TimeStep, error) {
	s.episodes++
	s.steps = 0
	return ts.New(ts.First, 0, 1, s.obs(), 0), nil
}

func (s *scriptedEnv) Step(int) (ts.TimeStep, environment.Info, error) {
	s.steps++
	info := environment.Info{
		Time:          float64(s.steps) * timeStep,
		Danger:        s.steps == 1,
		MinSeparation: 0.1,
	}
	if s.steps < s.length {
		return ts.New(ts.Mid, 0, discount, s.obs(), s.steps), info, nil
	}

	end := s.ends[(s.episodes-1)%len(s.ends)]
	var reward float64
	switch end {
	case ts.ReachedGoal:
		reward = 1
	case ts.Collision:
		reward = -0.25
	}
	return ts.NewLast(end, reward, discount, s.obs(), s.steps), info, nil
}

func (s *scriptedEnv) Lookahead(int) (ts.TimeStep, error) {
	return ts.New(ts.Mid, 0, discount, s.obs(), s.steps+1), nil
}

func (s *scriptedEnv) SetLevel(level int) bool {
	if level < 0 || level > s.maxLevel {
		return false
	}
	s.level = level
	return true
}

func (s *scriptedEnv) Level() int { return s.level }
func (s *scriptedEnv) MaxLevel() int { return s.maxLevel }
func (s *scriptedEnv) CaseSize(environment.Phase) int { return 10 }
func (s *scriptedEnv) TimeLimit() float64 { return timeLimit }
func (s *scriptedEnv) RobotVisible() bool { return false }
func (s *scriptedEnv) ActionSpec() environment.Spec {
	return environment.NewDiscreteActionSpec(2)
}
func (s *scriptedEnv) ObservationSpec() environment.Spec { return environment.Spec{} }

// constant always takes action 0
type constant struct {
	epsilon float64
}

func (c *constant) Act(ts.TimeStep) (int, error) { return 0, nil }
func (c *constant) SetEpsilon(e float64) { c.epsilon = e }
func (c *constant) Epsilon() float64 { return c.epsilon }
func (c *constant) IsTrainable() bool { return false }

// counter counts the Records it tracks
type counter struct {
	records []tracker.Record
}

func (c *counter) Track(r tracker.Record) { c.records = append(c.records, r) }
func (c *counter) Save() error { return nil }

func newExplorer(t *testing.T, env *scriptedEnv, method agent.Method,
	curriculum Curriculum) (*Explorer, *expreplay.Memory) {
	t.Helper()
	memory, err := expreplay.New(100, 1)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	return New(env, memory, &constant{}, method, curriculum), memory
}

func TestSuccessWindowFIFO(t *testing.T) {
	const w = 10
	window, err := NewSuccessWindow(w, 0.8)
	if err != nil {
		t.Fatalf("newSuccessWindow: %v", err)
	}

	for i := 0; i < w; i++ {
		window.Observe(true)
	}
	if window.Rate() != 1 {
		t.Errorf("rate: want(1) have(%v)", window.Rate())
	}

	prev := window.Rate()
	for i := 0; i < 5; i++ {
		window.Observe(false)
		if window.Rate() > prev {
			t.Errorf("rate: increased after a failure")
		}
		prev = window.Rate()
		if window.Len() != w {
			t.Errorf("len: want(%v) have(%v)", w, window.Len())
		}
	}

	want := float64(w-5) / w
	if math.Abs(window.Rate()-want) > 1e-12 {
		t.Errorf("rate: want(%v) have(%v)", want, window.Rate())
	}
}

func TestSuccessWindowReady(t *testing.T) {
	window, _ := NewSuccessWindow(10, 0.8)
	for i := 0; i < 9; i++ {
		window.Observe(true)
	}
	if window.Ready() {
		t.Error("ready: window not full")
	}
	window.Observe(true)
	if !window.Ready() {
		t.Error("ready: 10 successes should reach milestone 0.8")
	}

	window.Reset()
	for i := 0; i < 10; i++ {
		window.Observe(i < 7)
	}
	if window.Ready() {
		t.Error("ready: 7 successes of 10 should not reach milestone 0.8")
	}

	if _, err := NewSuccessWindow(0, 0.8); err == nil {
		t.Error("newSuccessWindow: expected error for empty window")
	}
	if NoCurriculum().Ready() {
		t.Error("noCurriculum: ready")
	}
}

func TestRunEpisodesZero(t *testing.T) {
	env := &scriptedEnv{ends: []ts.EndType{ts.ReachedGoal}, length: 3}
	e, memory := newExplorer(t, env, agent.DoubleQ, nil)
	records := &counter{}
	e.SetTracker(records)

	summary, err := e.RunEpisodes(0, environment.Train, Options{
		UpdateMemory: true,
		Epsilon:      0.5,
	})
	if err != nil {
		t.Fatalf("runEpisodes: %v", err)
	}
	if summary.Episodes != 0 || summary.SuccessRate != 0 ||
		summary.LevelUpReady {
		t.Errorf("runEpisodes: want neutral summary, have %+v", summary)
	}
	if len(records.records) != 0 || env.episodes != 0 || memory.Len() != 0 {
		t.Error("runEpisodes: k == 0 had side effects")
	}
}

func TestRunEpisodesSummary(t *testing.T) {
	env := &scriptedEnv{
		ends:   []ts.EndType{ts.ReachedGoal, ts.Collision, ts.Timeout, ts.ReachedGoal},
		length: 4,
	}
	e, memory := newExplorer(t, env, agent.DoubleQ, nil)
	records := &counter{}
	e.SetTracker(records)

	summary, err := e.RunEpisodes(4, environment.Train, Options{
		UpdateMemory: true,
		Episode:      7,
		Epsilon:      0.3,
	})
	if err != nil {
		t.Fatalf("runEpisodes: %v", err)
	}

	if summary.SuccessRate != 0.5 || summary.CollisionRate != 0.25 ||
		summary.TimeoutRate != 0.25 {
		t.Errorf("rates: have %+v", summary)
	}
	if summary.NavTime != 4*timeStep {
		t.Errorf("navTime: want(%v) have(%v)", 4*timeStep, summary.NavTime)
	}
	if summary.DangerFrequency != 0.25 || summary.MinSeparation != 0.1 {
		t.Errorf("danger: have(%v, %v)", summary.DangerFrequency,
			summary.MinSeparation)
	}
	if len(summary.TimeoutCases) != 1 || summary.TimeoutCases[0] != 2 {
		t.Errorf("timeoutCases: want([2]) have(%v)", summary.TimeoutCases)
	}
	if e.Policy().Epsilon() != 0.3 || summary.Epsilon != 0.3 {
		t.Errorf("epsilon: want(0.3) have(%v)", e.Policy().Epsilon())
	}

	// Timeouts are not remembered
	if memory.Len() != 3*env.length {
		t.Errorf("memory: want(%v) have(%v)", 3*env.length, memory.Len())
	}
	for _, transition := range memory.Transitions() {
		if transition.HasTarget || transition.Episode != 7 {
			t.Errorf("memory: unexpected transition %v", transition)
		}
	}

	if len(records.records) != 1 || records.records[0].Phase != "TRAIN" ||
		records.records[0].Episode != 7 {
		t.Errorf("track: have %+v", records.records)
	}

	// Validation never explores
	summary, _ = e.RunEpisodes(1, environment.Val, Options{Epsilon: 0.3})
	if summary.Epsilon != 0 || e.Policy().Epsilon() != 0 {
		t.Errorf("val epsilon: want(0) have(%v)", summary.Epsilon)
	}
}

func TestImitationTargets(t *testing.T) {
	env := &scriptedEnv{ends: []ts.EndType{ts.ReachedGoal}, length: 3}
	window, _ := NewSuccessWindow(5, 0.8)
	e, memory := newExplorer(t, env, agent.ValueLearning, window)

	_, err := e.RunEpisodes(1, environment.Train, Options{
		UpdateMemory: true,
		Imitation:    true,
	})
	if err != nil {
		t.Fatalf("runEpisodes: %v", err)
	}

	want := []float64{discount * discount, discount, 1}
	transitions := memory.Transitions()
	if len(transitions) != len(want) {
		t.Fatalf("memory: want(%v) have(%v)", len(want), len(transitions))
	}
	for i, transition := range transitions {
		if !transition.HasTarget || transition.Target != want[i] {
			t.Errorf("target %v: want(%v) have(%v)", i, want[i],
				transition.Target)
		}
	}

	if window.Len() != 0 {
		t.Error("curriculum: observed imitation episode")
	}
}

func TestValueLearningTargets(t *testing.T) {
	env := &scriptedEnv{ends: []ts.EndType{ts.Collision}, length: 2}
	e, memory := newExplorer(t, env, agent.ValueLearning, nil)

	opts := Options{UpdateMemory: true}
	if _, err := e.RunEpisodes(1, environment.Train, opts); err == nil {
		t.Error("runEpisodes: expected error without target model")
	}
	memory.Clear()

	config := network.Config{HiddenSizes: []int{4}, Activations: []string{"relu"}}
	model, err := config.Create(2, 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.UpdateTargetModel(model); err != nil {
		t.Fatalf("updateTargetModel: %v", err)
	}

	if _, err := e.RunEpisodes(1, environment.Train, opts); err != nil {
		t.Fatalf("runEpisodes: %v", err)
	}

	transitions := memory.Transitions()
	first, last := transitions[0], transitions[1]
	value, _ := model.Predict(vecData(first.NextState))
	if want := first.Reward + discount*value[0]; math.Abs(first.Target-want) > 1e-12 {
		t.Errorf("target: want(%v) have(%v)", want, first.Target)
	}
	if last.Target != -0.25 {
		t.Errorf("terminal target: want(-0.25) have(%v)", last.Target)
	}
}

func TestLevelUp(t *testing.T) {
	env := &scriptedEnv{ends: []ts.EndType{ts.ReachedGoal}, length: 1,
		maxLevel: 1}
	window, _ := NewSuccessWindow(10, 0.8)
	e, _ := newExplorer(t, env, agent.DoubleQ, window)

	summary, _ := e.RunEpisodes(9, environment.Train, Options{})
	if summary.LevelUpReady {
		t.Error("levelUpReady: window not yet full")
	}

	// Validation episodes do not count towards the curriculum
	summary, _ = e.RunEpisodes(5, environment.Val, Options{})
	if summary.LevelUpReady || window.Len() != 9 {
		t.Errorf("levelUpReady: validation observed, window has %v",
			window.Len())
	}

	summary, _ = e.RunEpisodes(1, environment.Train, Options{})
	if !summary.LevelUpReady {
		t.Error("levelUpReady: want ready after 10 successes")
	}

	if !e.IncreaseLevel() || env.Level() != 1 {
		t.Fatal("increaseLevel: level not increased")
	}
	if window.Len() != 0 {
		t.Error("increaseLevel: window not reset")
	}

	e.RunEpisodes(10, environment.Train, Options{})
	if e.IncreaseLevel() {
		t.Error("increaseLevel: exceeded max level")
	}
	if window.Len() != 10 {
		t.Error("increaseLevel: refused level change reset the window")
	}
}

func TestUpdateTargetModelIdempotent(t *testing.T) {
	env := &scriptedEnv{ends: []ts.EndType{ts.ReachedGoal}, length: 1}
	e, _ := newExplorer(t, env, agent.ValueLearning, nil)

	config := network.Config{HiddenSizes: []int{3}, Activations: []string{"tanh"}}
	model, _ := config.Create(2, 1)

	e.UpdateTargetModel(model)
	once := e.TargetModel().Weights()
	e.UpdateTargetModel(model)
	twice := e.TargetModel().Weights()

	for i := range once {
		for j := range once[i] {
			if once[i][j] != twice[i][j] {
				t.Fatal("updateTargetModel: not idempotent")
			}
		}
	}
}
