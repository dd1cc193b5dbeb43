package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Transition is a single (s, a, r, s') sample stored in replay memory.
//
// When HasTarget is true, Target holds a precomputed regression target
// for the value of State and the trainer uses it directly. Otherwise
// the target is computed at optimization time from Reward, Discount,
// NextState and Done.
//
// A Transition is never mutated once it is pushed to a memory.
type Transition struct {
	State     mat.Vector
	Action    int
	Reward    float64
	Discount  float64
	NextState mat.Vector
	Done      bool

	Target    float64
	HasTarget bool

	Phase   string
	Episode int
	Step    int
}

// NewTransition returns a transition from the step at which an action
// was taken to the step the environment returned.
func NewTransition(step TimeStep, action int, next TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    next.Reward,
		Discount:  next.Discount,
		NextState: next.Observation,
		Done:      next.Last() && next.End() != Timeout,
		Step:      step.Number,
	}
}

// WithTarget returns a copy of t whose regression target is fixed
func (t Transition) WithTarget(target float64) Transition {
	t.Target = target
	t.HasTarget = true
	return t
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.4f  |  "+
		"Discount: %.4f  |  Done: %v  |  Episode: %v  |  Step: %v",
		t.Action, t.Reward, t.Discount, t.Done, t.Episode, t.Step)
}
