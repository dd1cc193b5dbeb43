// Package agent defines the policies that control the robot
package agent

import (
	"fmt"
	"strings"

	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/timestep"
)

// Method is the learning method of a trainable policy. It determines
// what the policy's model predicts and how regression targets are
// formed.
type Method string

const (
	// ValueLearning learns a state-value function V(s) and acts by a
	// one-step look-ahead. Targets are fixed when transitions are stored.
	ValueLearning Method = "ValueLearning"

	// DoubleQ learns action values Q(s, a) with double Q-learning.
	// Targets are computed when transitions are sampled.
	DoubleQ Method = "DoubleQ"
)

// ParseMethod returns the Method with the given case-insensitive name
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "valuelearning", "vlearning", "cadrl":
		return ValueLearning, nil
	case "doubleq", "ddqn":
		return DoubleQ, nil
	default:
		return "", fmt.Errorf("parseMethod: unknown method %q", name)
	}
}

// Outputs returns the number of values a model of the method predicts
// in an environment with numActions actions
func (m Method) Outputs(numActions int) int {
	if m == DoubleQ {
		return numActions
	}
	return 1
}

// Policy selects the actions of the robot.
type Policy interface {
	// Act returns the action to take after observing t
	Act(t timestep.TimeStep) (int, error)

	// SetEpsilon sets the probability of taking a uniform random action
	SetEpsilon(float64)
	Epsilon() float64

	// IsTrainable returns whether the policy has a model that can be
	// optimized
	IsTrainable() bool
}

// TrainablePolicy is a Policy whose actions are determined by a model
// of learnable weights
type TrainablePolicy interface {
	Policy

	// Model returns the live model used to select actions. Changes to
	// its weights change the actions of the policy.
	Model() *network.Model
	Method() Method
}

// SafetySpacer is a Policy that keeps a configurable clearance from
// humans
type SafetySpacer interface {
	Policy
	SetSafetySpace(float64)
}
