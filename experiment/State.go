package experiment

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Stage is a stage of the training loop
type Stage string

const (
	Imitation Stage = "Imitation"
	Warmup    Stage = "Warmup"
	Training  Stage = "Training"
	FinalTest Stage = "FinalTest"
	Done      Stage = "Done"
)

// State is the progress of a training run. It is checkpointed with
// the weights so that a resumed run continues at the same episode and
// curriculum level.
type State struct {
	RunID string
	Stage Stage

	// Episode is the number of completed training iterations
	Episode int

	// Curriculum progress
	Level       int
	LastLevelUp int
	LevelStarts map[int]int

	// Success rate of the last validation and the best one whose
	// weights were kept, tracked for double Q-learning
	ValSuccessRate  float64
	BestSuccessRate float64

	// Weights is the file name of the last saved RL weights
	Weights string
}

// NewState returns the State of a new run
func NewState() State {
	return State{
		RunID:       uuid.NewString(),
		Stage:       Imitation,
		LevelStarts: map[int]int{0: 0},
	}
}

// LevelUp records that level started at episode
func (s *State) LevelUp(level, episode int) {
	if s.LevelStarts == nil {
		s.LevelStarts = make(map[int]int)
	}
	s.Level = level
	s.LastLevelUp = episode
	s.LevelStarts[level] = episode
}

// Levels returns the levels started so far in increasing order
func (s State) Levels() []int {
	levels := make([]int, 0, len(s.LevelStarts))
	for level := range s.LevelStarts {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (s State) String() string {
	return fmt.Sprintf("State | Run: %v  |  Stage: %v  |  Episode: %v  |  "+
		"Level: %v", s.RunID, s.Stage, s.Episode, s.Level)
}
