package policy

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/environment"
	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/timestep"
)

// ValueLearning is an epsilon-greedy policy over a learned state-value
// function. Each action is scored by looking one step ahead in the
// environment:
//
//	Q(s, a) = r + d * V(s')
//
// where V(s') is dropped if the look-ahead ends the episode in a
// collision or at the goal.
type ValueLearning struct {
	eGreedy
	env environment.Environment
}

// NewValueLearning returns a new ValueLearning policy. The model must
// take single observations of env and predict a single value.
func NewValueLearning(env environment.Environment, model *network.Model,
	seed uint64) (*ValueLearning, error) {
	if outputs := model.Net().Outputs(); outputs != 1 {
		return nil, fmt.Errorf("newValueLearning: model must predict a "+
			"single value\n\twant(1)\n\thave(%v)", outputs)
	}

	e, err := newEGreedy(model, env.ActionSpec().NumActions(), seed)
	if err != nil {
		return nil, fmt.Errorf("newValueLearning: %v", err)
	}
	return &ValueLearning{eGreedy: e, env: env}, nil
}

// Act selects an action in the current state of the environment
func (v *ValueLearning) Act(t timestep.TimeStep) (int, error) {
	if action, ok := v.explore(); ok {
		return action, nil
	}

	values := make([]float64, v.numActions)
	for a := range values {
		next, err := v.env.Lookahead(a)
		if err != nil {
			return 0, fmt.Errorf("act: %v", err)
		}

		values[a] = next.Reward
		if end := next.End(); end == timestep.Collision ||
			end == timestep.ReachedGoal {
			continue
		}

		value, err := v.model.Predict(denseData(next.Observation))
		if err != nil {
			return 0, fmt.Errorf("act: %v", err)
		}
		values[a] += next.Discount * value[0]
	}

	return v.greedy(values), nil
}

// Method returns agent.ValueLearning
func (v *ValueLearning) Method() agent.Method {
	return agent.ValueLearning
}
