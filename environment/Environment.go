// Package environment outlines the interfaces and structs needed to
// implement crowd navigation environments
package environment

import (
	"fmt"
	"strings"

	"github.com/samuelfneumann/crowdnav/timestep"
)

// Phase is the stage of training an episode is run in. Each phase
// draws its episodes from a separate pool of scenarios.
type Phase int

const (
	Train Phase = iota
	Val
	Test
)

func (p Phase) String() string {
	switch p {
	case Train:
		return "train"
	case Val:
		return "val"
	case Test:
		return "test"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Tag returns the upper-case name of the phase used in log records
func (p Phase) Tag() string {
	return strings.ToUpper(p.String())
}

// ParsePhase returns the Phase with the given case-insensitive name
func ParsePhase(name string) (Phase, error) {
	switch strings.ToLower(name) {
	case "train":
		return Train, nil
	case "val":
		return Val, nil
	case "test":
		return Test, nil
	default:
		return 0, fmt.Errorf("parsePhase: unknown phase %q", name)
	}
}

// Info reports details of an environment step that are not part of the
// TimeStep
type Info struct {
	// Time is the simulated time after the step
	Time float64

	// Danger is true if the robot came closer to a human than the
	// discomfort distance during the step
	Danger bool

	// MinSeparation is the smallest robot-human gap observed during
	// the step
	MinSeparation float64
}

// Environment implements a simulated crowd that a robot navigates
// through. Actions are discrete and enumerated from 0.
type Environment interface {
	// Reset starts a new episode drawn from the scenarios of phase
	Reset(phase Phase) (timestep.TimeStep, error)

	// Step takes an action in the environment. The returned TimeStep is
	// Last when the episode ended, and its End reports why.
	Step(action int) (timestep.TimeStep, Info, error)

	// Lookahead returns the TimeStep that Step(action) would produce
	// if the humans kept their current velocities, without changing the
	// state of the environment.
	Lookahead(action int) (timestep.TimeStep, error)

	// SetLevel sets the difficulty level, returning false if the level
	// does not exist
	SetLevel(level int) bool
	Level() int
	MaxLevel() int

	// CaseSize returns the number of canonical scenarios of a phase
	CaseSize(phase Phase) int

	// TimeLimit returns the simulated time after which episodes end in a
	// Timeout
	TimeLimit() float64

	// RobotVisible returns whether humans react to the robot
	RobotVisible() bool

	ObservationSpec() Spec
	ActionSpec() Spec
}
