package network

import (
	"fmt"

	"github.com/samuelfneumann/crowdnav/initwfn"
	G "gorgonia.org/gorgonia"
)

// Config describes the architecture of an MLP
type Config struct {
	HiddenSizes []int
	Biases      []bool   // Defaults to a bias unit in each hidden layer
	Activations []string // relu, tanh, sigmoid, identity
	InitWFn     *initwfn.InitWFn
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if len(c.Activations) != len(c.HiddenSizes) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes), len(c.Activations))
	}
	if c.Biases != nil && len(c.Biases) != len(c.HiddenSizes) {
		return fmt.Errorf("validate: invalid number of biases"+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}
	for i, size := range c.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %v must have at least "+
				"one node\n\thave(%v)", i, size)
		}
	}
	for _, name := range c.Activations {
		if _, err := ParseActivation(name); err != nil {
			return fmt.Errorf("validate: %v", err)
		}
	}
	return nil
}

// Create returns a new Model with batch size 1 mapping features inputs
// to outputs predictions.
func (c Config) Create(features, outputs int) (*Model, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	activations := make([]*Activation, len(c.Activations))
	for i, name := range c.Activations {
		activations[i], _ = ParseActivation(name)
	}

	biases := c.Biases
	if biases == nil {
		biases = make([]bool, len(c.HiddenSizes))
		for i := range biases {
			biases[i] = true
		}
	}

	var init G.InitWFn
	if c.InitWFn != nil {
		init = c.InitWFn.InitWFn()
	} else {
		init = G.GlorotU(1.0)
	}

	net, err := NewMLP(features, 1, outputs, G.NewGraph(), c.HiddenSizes,
		biases, init, activations)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	return NewModel(net), nil
}
