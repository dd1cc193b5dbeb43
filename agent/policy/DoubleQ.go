package policy

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/timestep"
	"gonum.org/v1/gonum/mat"
)

// DoubleQ is an epsilon-greedy policy over learned action values.
// The model predicts one value per action.
type DoubleQ struct {
	eGreedy
}

// NewDoubleQ returns a new DoubleQ policy. The model must take single
// observations and predict numActions values.
func NewDoubleQ(model *network.Model, numActions int,
	seed uint64) (*DoubleQ, error) {
	if outputs := model.Net().Outputs(); outputs != numActions {
		return nil, fmt.Errorf("newDoubleQ: model must predict one value per "+
			"action\n\twant(%v)\n\thave(%v)", numActions, outputs)
	}

	e, err := newEGreedy(model, numActions, seed)
	if err != nil {
		return nil, fmt.Errorf("newDoubleQ: %v", err)
	}
	return &DoubleQ{e}, nil
}

// Act selects an action given the observation in t
func (d *DoubleQ) Act(t timestep.TimeStep) (int, error) {
	if action, ok := d.explore(); ok {
		return action, nil
	}

	values, err := d.model.Predict(denseData(t.Observation))
	if err != nil {
		return 0, fmt.Errorf("act: %v", err)
	}
	return d.greedy(values), nil
}

// Method returns agent.DoubleQ
func (d *DoubleQ) Method() agent.Method {
	return agent.DoubleQ
}

// denseData returns the elements of v as a new slice
func denseData(v mat.Vector) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
