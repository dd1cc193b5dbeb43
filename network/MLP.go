// Package network implements feed forward neural networks built on
// Gorgonia computational graphs.
package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a function approximator that lives in a Gorgonia
// computational graph. Running a VM over Graph() fills Output() with
// the prediction for the input set by SetInput().
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}

// mlp implements a multi-layered perceptron with one output node per
// predicted value.
type mlp struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	// Data needed for gobbing, including the final linear layer
	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMLP creates and returns a new multi-layered perceptron in the
// graph g which takes batch inputs of features features each and
// predicts outputs values for each input.
//
// The MLP has len(hiddenSizes) + 1 layers. A final linear layer with a
// bias unit is always added so that the network produces outputs
// values. For index i, hiddenSizes[i] is the number of nodes in hidden
// layer i, biases[i] is true if hidden layer i has a bias unit, and
// activations[i] is the activation of hidden layer i.
func NewMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) {
		msg := "newMLP: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		msg := "newMLP: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}
	if features < 1 || batch < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMLP: features (%v), batch (%v), and "+
			"outputs (%v) must be positive", features, batch, outputs)
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	// Copy so that the caller's slices are never appended to
	sizes := append(append([]int{}, hiddenSizes...), outputs)
	b := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	network := mlp{
		g:           g,
		layers:      addfcLayers(g, sizes, b, acts, init, features),
		input:       input,
		numOutputs:  outputs,
		numInputs:   features,
		batchSize:   batch,
		hiddenSizes: sizes,
		biases:      b,
		activations: acts,
	}
	if _, err := network.fwd(input); err != nil {
		msg := "newMLP: could not compute forward pass: %v"
		return nil, fmt.Errorf(msg, err)
	}

	return &network, nil
}

// Graph returns the computational graph of the mlp
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// Clone clones an mlp into a new graph
func (m *mlp) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch clones an mlp into a new graph with a new input batch
// size. The clone starts with the same weights as m.
func (m *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be "+
			"positive\n\twant(>0)\n\thave(%v)", batchSize)
	}
	graph := G.NewGraph()

	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, m.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	l := make([]Layer, len(m.layers))
	for i := range m.layers {
		l[i] = m.layers[i].CloneTo(graph)
	}

	network := mlp{
		g:           graph,
		layers:      l,
		input:       input,
		numOutputs:  m.numOutputs,
		numInputs:   m.numInputs,
		batchSize:   batchSize,
		hiddenSizes: m.hiddenSizes,
		biases:      m.biases,
		activations: m.activations,
	}
	if _, err := network.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not clone: %v", err)
	}

	// Node values are shared after CloneTo on some backends, so give the
	// clone its own copy of the weights
	if err := network.Set(m); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not copy weights: %v",
			err)
	}

	return &network, nil
}

// BatchSize returns the batch size of inputs to the network
func (m *mlp) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input vector
func (m *mlp) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs predicted for each input
func (m *mlp) Outputs() int {
	return m.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass. The input must hold BatchSize() * Features() values, row-major.
func (m *mlp) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of m to be equal to the weights of source. The
// weights are copied so later changes to source do not affect m.
func (m *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := m.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks\n\twant(%v learnables)"+
			"\n\thave(%v learnables)", len(nodes), len(sourceNodes))
	}

	for i := range nodes {
		if err := copyValue(nodes[i], sourceNodes[i]); err != nil {
			return fmt.Errorf("set: learnable %v: %v", i, err)
		}
	}
	return nil
}

// Weights returns a copy of the learnable weights of a network, one
// slice per learnable node.
func Weights(net NeuralNet) [][]float64 {
	learnables := net.Learnables()
	weights := make([][]float64, len(learnables))
	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		weights[i] = append([]float64{}, data...)
	}
	return weights
}

// SetWeights sets the learnable weights of a network to those returned
// by Weights() on a network of identical shape.
func SetWeights(net NeuralNet, weights [][]float64) error {
	learnables := net.Learnables()
	if len(learnables) != len(weights) {
		return fmt.Errorf("setWeights: invalid number of learnables"+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(weights))
	}

	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		if len(data) != len(weights[i]) {
			return fmt.Errorf("setWeights: invalid size of learnable %v"+
				"\n\twant(%v)\n\thave(%v)", i, len(data), len(weights[i]))
		}
		copy(data, weights[i])
	}
	return nil
}

// copyValue copies the value of source into dest in place
func copyValue(dest, source *G.Node) error {
	if !dest.Shape().Eq(source.Shape()) {
		return fmt.Errorf("incompatible shapes\n\twant(%v)\n\thave(%v)",
			dest.Shape(), source.Shape())
	}
	destData := dest.Value().Data().([]float64)
	copy(destData, source.Value().Data().([]float64))
	return nil
}

// Learnables returns the learnable nodes in an mlp
func (m *mlp) Learnables() G.Nodes {
	// Lazy instantiation
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for i := range m.layers {
			learnables = append(learnables, m.layers[i].Weights())
			if bias := m.layers[i].Bias(); bias != nil {
				learnables = append(learnables, bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *mlp) Model() []G.ValueGrad {
	// Lazy instantiation
	if m.model == nil {
		m.model = make([]G.ValueGrad, 0, len(m.Learnables()))
		for _, node := range m.Learnables() {
			m.model = append(m.model, node)
		}
	}
	return m.model
}

// fwd performs the forward pass of the mlp on the input node
func (m *mlp) fwd(input *G.Node) (*G.Node, error) {
	if features := input.Shape()[len(input.Shape())-1]; features !=
		m.numInputs {
		return nil, fmt.Errorf("fwd: invalid shape for input to neural net:"+
			" \n\twant(%v) \n\thave(%v)", m.numInputs, features)
	}

	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)

	return pred, nil
}

// Output returns the output of the mlp after its graph has been run
func (m *mlp) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}

// GobEncode implements the gob.GobEncoder interface
func (m *mlp) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(m.numOutputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of "+
			"outputs: %v", err)
	}
	if err := enc.Encode(m.numInputs); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of "+
			"inputs: %v", err)
	}
	if err := enc.Encode(m.batchSize); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode batch size: %v",
			err)
	}
	if err := enc.Encode(m.hiddenSizes); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode hidden sizes: %v",
			err)
	}
	if err := enc.Encode(m.biases); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode biases: %v", err)
	}
	if err := enc.Encode(m.activations); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode activations: %v",
			err)
	}
	if err := enc.Encode(Weights(m)); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode weights: %v", err)
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (m *mlp) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var numOutputs, numInputs, batchSize int
	if err := dec.Decode(&numOutputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of outputs: %v",
			err)
	}
	if err := dec.Decode(&numInputs); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of inputs: %v",
			err)
	}
	if err := dec.Decode(&batchSize); err != nil {
		return fmt.Errorf("gobdecode: could not decode batch size: %v", err)
	}

	var hiddenSizes []int
	if err := dec.Decode(&hiddenSizes); err != nil {
		return fmt.Errorf("gobdecode: could not decode hidden sizes: %v", err)
	}
	var biases []bool
	if err := dec.Decode(&biases); err != nil {
		return fmt.Errorf("gobdecode: could not decode biases: %v", err)
	}
	var activations []*Activation
	if err := dec.Decode(&activations); err != nil {
		return fmt.Errorf("gobdecode: could not decode activations: %v", err)
	}
	if len(hiddenSizes) == 0 || len(hiddenSizes) != len(biases) ||
		len(hiddenSizes) != len(activations) {
		return fmt.Errorf("gobdecode: inconsistent layer description")
	}

	var weights [][]float64
	if err := dec.Decode(&weights); err != nil {
		return fmt.Errorf("gobdecode: could not decode weights: %v", err)
	}

	// The final linear layer is added back by NewMLP
	last := len(hiddenSizes) - 1
	net, err := NewMLP(numInputs, batchSize, numOutputs, G.NewGraph(),
		hiddenSizes[:last], biases[:last], G.Zeroes(), activations[:last])
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct new MLP: %v", err)
	}
	if err := SetWeights(net, weights); err != nil {
		return fmt.Errorf("gobdecode: %v", err)
	}

	// The copied read node still writes into the value of net, so the
	// prediction is read again into the receiver
	*m = *net.(*mlp)
	m.predVal = nil
	G.Read(m.prediction, &m.predVal)
	return nil
}
