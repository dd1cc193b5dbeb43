// Package policy implements epsilon-greedy robot policies whose action
// values are predicted by Gorgonia neural networks.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/utils/floatutils"
	"golang.org/x/exp/rand"
)

// eGreedy holds the state shared by epsilon-greedy policies
type eGreedy struct {
	model      *network.Model
	numActions int
	epsilon    float64
	rng        *rand.Rand
}

func newEGreedy(model *network.Model, numActions int,
	seed uint64) (eGreedy, error) {
	if numActions < 1 {
		return eGreedy{}, fmt.Errorf("newEGreedy: must have at least one "+
			"action\n\thave(%v)", numActions)
	}
	if model.Net().BatchSize() != 1 {
		return eGreedy{}, fmt.Errorf("newEGreedy: model must predict single "+
			"inputs\n\twant(1)\n\thave(%v)", model.Net().BatchSize())
	}

	return eGreedy{
		model:      model,
		numActions: numActions,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// explore returns a uniform random action and true with probability
// epsilon
func (e *eGreedy) explore() (int, bool) {
	if e.epsilon > 0 && e.rng.Float64() < e.epsilon {
		return e.rng.Intn(e.numActions), true
	}
	return 0, false
}

// greedy returns the action of maximum value, breaking ties uniformly
// at random
func (e *eGreedy) greedy(values []float64) int {
	_, maxIndices := floatutils.MaxSlice(values)
	if len(maxIndices) == 1 {
		return maxIndices[0]
	}
	return maxIndices[e.rng.Intn(len(maxIndices))]
}

// SetEpsilon sets the value for epsilon in the epsilon greedy policy.
func (e *eGreedy) SetEpsilon(ε float64) {
	e.epsilon = ε
}

// Epsilon gets the value of epsilon for the policy.
func (e *eGreedy) Epsilon() float64 {
	return e.epsilon
}

// IsTrainable returns true
func (e *eGreedy) IsTrainable() bool {
	return true
}

// Model returns the live model of the policy
func (e *eGreedy) Model() *network.Model {
	return e.model
}
