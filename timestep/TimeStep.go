// Package timestep implements the timesteps and transitions produced
// when a robot interacts with a crowd simulation
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first step of an episode, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes how an episode ended. Only Last timesteps carry an
// EndType other than None.
type EndType int

const (
	None EndType = iota
	ReachedGoal
	Collision
	Timeout
)

func (e EndType) String() string {
	switch e {
	case ReachedGoal:
		return "ReachedGoal"
	case Collision:
		return "Collision"
	case Timeout:
		return "Timeout"
	default:
		return "None"
	}
}

// TimeStep packages together a single timestep in an environment.
//
// Discount is the factor applied to the value of the next state when
// bootstrapping from this timestep. In the crowd simulation it depends
// on the length of the time step and the robot's preferred speed.
type TimeStep struct {
	stepType    StepType
	end         EndType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{stepType: t, Reward: r, Discount: d, Observation: o,
		Number: n}
}

// NewLast returns a new Last TimeStep that ended with the argument
// EndType.
func NewLast(end EndType, r, d float64, o mat.Vector, n int) TimeStep {
	step := New(Last, r, d, o, n)
	step.end = end
	return step
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

// End returns how the episode ended, or None if t is not the last
// step of an episode.
func (t *TimeStep) End() EndType {
	return t.end
}

// SetEnd marks the TimeStep as the last in its episode, ending with
// the argument EndType.
func (t *TimeStep) SetEnd(end EndType) {
	t.stepType = Last
	t.end = end
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  End: %v  |  Reward:  %.2f  |  " +
		"Discount: %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.end, t.Reward, t.Discount, t.Number)
}
