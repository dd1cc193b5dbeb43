package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Model pairs a NeuralNet with the VM that runs its graph so that
// predictions can be made without managing the VM externally. Models
// own their weights: clones never share weights with the original.
type Model struct {
	net NeuralNet
	vm  G.VM
}

// NewModel returns a new Model which predicts with net
func NewModel(net NeuralNet) *Model {
	return &Model{
		net: net,
		vm:  G.NewTapeMachine(net.Graph()),
	}
}

// Net returns the network of the Model
func (m *Model) Net() NeuralNet {
	return m.net
}

// Predict runs the network on a batch of inputs and returns a copy of
// the network's output, row-major with Outputs() values per input.
func (m *Model) Predict(input []float64) ([]float64, error) {
	if err := m.net.SetInput(input); err != nil {
		return nil, fmt.Errorf("predict: %v", err)
	}
	defer m.vm.Reset()

	if err := m.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: could not run network: %v", err)
	}

	output := m.net.Output()
	if output == nil {
		return nil, fmt.Errorf("predict: network produced no output")
	}
	out, ok := output.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("predict: output of type %T not []float64",
			output.Data())
	}
	return append([]float64{}, out...), nil
}

// Clone returns a copy of the Model with its own graph and weights
func (m *Model) Clone() (*Model, error) {
	return m.CloneWithBatch(m.net.BatchSize())
}

// CloneWithBatch returns a copy of the Model that predicts batches of
// batchSize inputs.
func (m *Model) CloneWithBatch(batchSize int) (*Model, error) {
	net, err := m.net.CloneWithBatch(batchSize)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	return NewModel(net), nil
}

// Set replaces the weights of m with a copy of the weights of source
func (m *Model) Set(source *Model) error {
	return m.net.Set(source.net)
}

// Weights returns a copy of the Model's weights
func (m *Model) Weights() [][]float64 {
	return Weights(m.net)
}

// Close releases the resources held by the Model's VM
func (m *Model) Close() error {
	return m.vm.Close()
}

// GobEncode implements the gob.GobEncoder interface
func (m *Model) GobEncode() ([]byte, error) {
	net, ok := m.net.(*mlp)
	if !ok {
		return nil, fmt.Errorf("gobencode: network %T not serializable",
			m.net)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(net); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode network: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. Decoding into an
// existing Model replaces its network.
func (m *Model) GobDecode(in []byte) error {
	net := &mlp{}
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(net); err != nil {
		return fmt.Errorf("gobdecode: could not decode network: %v", err)
	}

	if m.vm != nil {
		m.vm.Close()
	}
	*m = *NewModel(net)
	return nil
}

// Load copies the weights of a decoded Model into m, keeping m's graph
// and VM intact. Both Models must have the same architecture.
func (m *Model) Load(decoded *Model) error {
	if err := SetWeights(m.net, decoded.Weights()); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	return nil
}
