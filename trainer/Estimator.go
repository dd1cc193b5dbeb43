package trainer

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/network"
	ts "github.com/samuelfneumann/crowdnav/timestep"
	"github.com/samuelfneumann/crowdnav/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoTarget is reported when a target model is needed but has not
// been initialized
var ErrNoTarget = errors.New("target model not initialized")

// Estimator computes the regression targets of a batch of transitions
type Estimator interface {
	Targets(batch []ts.Transition, live, target *network.Model) ([]float64,
		error)
}

// NewEstimator returns the Estimator used to train models of a method
func NewEstimator(method agent.Method) Estimator {
	if method == agent.DoubleQ {
		return doubleQ{}
	}
	return precomputed{}
}

// precomputed uses the targets stored with each transition
type precomputed struct{}

// Targets implements the Estimator interface
func (precomputed) Targets(batch []ts.Transition, _,
	_ *network.Model) ([]float64, error) {
	targets := make([]float64, len(batch))
	for i, t := range batch {
		if !t.HasTarget {
			return nil, fmt.Errorf("targets: transition %v has no target", i)
		}
		targets[i] = t.Target
	}
	return targets, nil
}

// doubleQ computes double Q-learning targets:
//
//	y = r + d * Q_target(s', argmax_a Q_live(s', a))
//
// Terminal transitions use y = r. Transitions with a precomputed
// target, such as those from demonstrations, keep it.
type doubleQ struct{}

// Targets implements the Estimator interface
func (doubleQ) Targets(batch []ts.Transition, live,
	target *network.Model) ([]float64, error) {
	targets := make([]float64, len(batch))
	for i, t := range batch {
		switch {
		case t.HasTarget:
			targets[i] = t.Target
			continue
		case t.Done:
			targets[i] = t.Reward
			continue
		case target == nil:
			return nil, fmt.Errorf("targets: %w", ErrNoTarget)
		}

		next := vecData(t.NextState)
		liveValues, err := live.Predict(next)
		if err != nil {
			return nil, fmt.Errorf("targets: %v", err)
		}
		_, maxIndices := floatutils.MaxSlice(liveValues)

		targetValues, err := target.Predict(next)
		if err != nil {
			return nil, fmt.Errorf("targets: %v", err)
		}
		targets[i] = t.Reward + t.Discount*targetValues[maxIndices[0]]
	}
	return targets, nil
}

// vecData returns the elements of v as a new slice
func vecData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
