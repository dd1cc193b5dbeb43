// Package trainer implements the optimizer driver that fits a policy's
// model to the transitions in replay memory.
package trainer

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/expreplay"
	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/solver"
	ts "github.com/samuelfneumann/crowdnav/timestep"
	"github.com/samuelfneumann/crowdnav/utils/intutils"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ErrNoSolver is reported when optimizing before a learning rate has
// been set
var ErrNoSolver = errors.New("learning rate not set")

// Trainer minimizes the mean squared error between a model's
// predictions and regression targets over batches drawn from replay
// memory. For multi-output models only the output of the action taken
// is regressed.
//
// Only the live model's weights change. The target model used by
// double Q-learning changes only through InitTargetModel and
// UpdateTargetModel.
type Trainer struct {
	model     *network.Model
	memory    *expreplay.Memory
	batchSize int
	method    agent.Method
	estimator Estimator
	target    *network.Model

	// Network whose weights are adapted, with a batch of inputs
	trainNet   network.NeuralNet
	trainNetVM G.VM
	solver     *solver.Solver

	targets       *G.Node
	sampleWeights *G.Node
	actionMask    *G.Node
	lossVal       G.Value

	logger *log.Logger
}

// New returns a new Trainer that optimizes model on batches of
// batchSize transitions from memory. Model predictions are interpreted
// according to method.
func New(model *network.Model, memory *expreplay.Memory, batchSize int,
	method agent.Method) (*Trainer, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batch size must be positive"+
			"\n\twant(>0)\n\thave(%v)", batchSize)
	}

	trainNet, err := model.Net().CloneWithBatch(batchSize)
	if err != nil {
		msg := "new: could not create learning network: %v"
		return nil, fmt.Errorf(msg, err)
	}
	g := trainNet.Graph()
	outputs := trainNet.Outputs()

	targets := G.NewVector(g, tensor.Float64, G.WithShape(batchSize),
		G.WithName("targets"), G.WithInit(G.Zeroes()))
	sampleWeights := G.NewVector(g, tensor.Float64, G.WithShape(batchSize),
		G.WithName("sampleWeights"), G.WithInit(G.Zeroes()))

	// One-hot mask of the action taken in each state, or all ones for a
	// state-value model
	actionMask := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, outputs), G.WithName("actionMask"),
		G.WithInit(G.Zeroes()))

	prediction := G.Must(G.HadamardProd(trainNet.Prediction(), actionMask))
	prediction = G.Must(G.Sum(prediction, 1))

	// Weighted sum of squared errors. Padding rows have zero weight and
	// real rows weigh 1/n, giving the mean over the n real samples.
	losses := G.Must(G.Sub(targets, prediction))
	losses = G.Must(G.Square(losses))
	losses = G.Must(G.HadamardProd(losses, sampleWeights))
	loss := G.Must(G.Sum(losses))

	t := &Trainer{
		model:         model,
		memory:        memory,
		batchSize:     batchSize,
		method:        method,
		estimator:     NewEstimator(method),
		trainNet:      trainNet,
		targets:       targets,
		sampleWeights: sampleWeights,
		actionMask:    actionMask,
		logger:        log.New(io.Discard, "", 0),
	}
	G.Read(loss, &t.lossVal)

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("new: could not compute gradient: %v", err)
	}
	t.trainNetVM = G.NewTapeMachine(g,
		G.BindDualValues(trainNet.Learnables()...))

	return t, nil
}

// SetLogger sets the logger that per-epoch losses are reported to
func (t *Trainer) SetLogger(logger *log.Logger) {
	t.logger = logger
}

// SetLearningRate creates a fresh solver of type s with step size lr.
// Any optimizer state, such as momentum, is discarded.
func (t *Trainer) SetLearningRate(lr float64, s solver.Type) error {
	newSolver, err := solver.New(s, lr)
	if err != nil {
		return fmt.Errorf("setLearningRate: %v", err)
	}
	t.solver = newSolver
	t.logger.Printf("Current learning rate: %f", lr)
	return nil
}

// InitTargetModel sets the target model to a copy of model
func (t *Trainer) InitTargetModel(model *network.Model) error {
	target, err := model.Clone()
	if err != nil {
		return fmt.Errorf("initTargetModel: %v", err)
	}
	if t.target != nil {
		t.target.Close()
	}
	t.target = target
	return nil
}

// UpdateTargetModel replaces the weights of the target model with those
// of model. Calling it twice with unchanged weights leaves the target
// unchanged.
func (t *Trainer) UpdateTargetModel(model *network.Model) error {
	if t.target == nil {
		return t.InitTargetModel(model)
	}
	if err := t.target.Set(model); err != nil {
		return fmt.Errorf("updateTargetModel: %v", err)
	}
	return nil
}

// TargetModel returns the target model, or nil if it has not been
// initialized
func (t *Trainer) TargetModel() *network.Model {
	return t.target
}

// BatchSize returns the number of transitions in each gradient step
func (t *Trainer) BatchSize() int {
	return t.batchSize
}

// OptimizeEpoch performs epochs passes over the whole memory in a
// random order, taking one gradient step per batch. The last batch of
// a pass may be smaller than the batch size. The average loss of the
// final pass is returned.
func (t *Trainer) OptimizeEpoch(epochs int) (float64, error) {
	if t.memory.Len() == 0 {
		return 0, &expreplay.ExpReplayError{Op: "optimizeEpoch",
			Err: expreplay.ErrEmptyMemory}
	}
	if err := t.begin(); err != nil {
		return 0, fmt.Errorf("optimizeEpoch: %w", err)
	}

	var avgLoss float64
	for epoch := 0; epoch < epochs; epoch++ {
		transitions, err := t.memory.Shuffled()
		if err != nil {
			return 0, err
		}

		epochLoss := 0.0
		steps := 0
		for start := 0; start < len(transitions); start += t.batchSize {
			end := intutils.Min(start+t.batchSize, len(transitions))
			loss, err := t.step(transitions[start:end])
			if err != nil {
				return 0, fmt.Errorf("optimizeEpoch: %w", err)
			}
			epochLoss += loss
			steps++
		}

		avgLoss = epochLoss / float64(steps)
		t.logger.Printf("Average loss in epoch %d: %.2E", epoch, avgLoss)
	}
	return avgLoss, nil
}

// OptimizeBatch takes batches gradient steps, each on batch size
// transitions sampled uniformly from memory. The average loss is
// returned.
func (t *Trainer) OptimizeBatch(batches int) (float64, error) {
	if t.memory.Len() < t.batchSize {
		err := fmt.Errorf("%w\n\twant(>=%v transitions)\n\thave(%v)",
			expreplay.ErrInsufficientData, t.batchSize, t.memory.Len())
		return 0, &expreplay.ExpReplayError{Op: "optimizeBatch", Err: err}
	}
	if t.method == agent.DoubleQ && t.target == nil {
		return 0, fmt.Errorf("optimizeBatch: %w", ErrNoTarget)
	}
	if err := t.begin(); err != nil {
		return 0, fmt.Errorf("optimizeBatch: %w", err)
	}

	var totalLoss float64
	for i := 0; i < batches; i++ {
		batch, err := t.memory.Sample(t.batchSize)
		if err != nil {
			return 0, err
		}

		loss, err := t.step(batch)
		if err != nil {
			return 0, fmt.Errorf("optimizeBatch: %w", err)
		}
		totalLoss += loss
	}

	if batches < 1 {
		return 0, nil
	}
	avgLoss := totalLoss / float64(batches)
	t.logger.Printf("Average loss : %.2E", avgLoss)
	return avgLoss, nil
}

// begin prepares the learning network for a run of gradient steps
func (t *Trainer) begin() error {
	if t.solver == nil {
		return ErrNoSolver
	}
	return t.trainNet.Set(t.model.Net())
}

// step takes a single gradient step on batch, which must hold at most
// batch size transitions, and returns the loss before the step
func (t *Trainer) step(batch []ts.Transition) (float64, error) {
	targets, err := t.estimator.Targets(batch, t.model, t.target)
	if err != nil {
		return 0, err
	}

	features := t.trainNet.Features()
	outputs := t.trainNet.Outputs()

	states := make([]float64, t.batchSize*features)
	targetData := make([]float64, t.batchSize)
	weightData := make([]float64, t.batchSize)
	maskData := make([]float64, t.batchSize*outputs)

	weight := 1.0 / float64(len(batch))
	for i, transition := range batch {
		if n := transition.State.Len(); n != features {
			return 0, fmt.Errorf("step: invalid state size\n\twant(%v)"+
				"\n\thave(%v)", features, n)
		}
		for j := 0; j < features; j++ {
			states[i*features+j] = transition.State.AtVec(j)
		}

		targetData[i] = targets[i]
		weightData[i] = weight

		if outputs == 1 {
			maskData[i] = 1
		} else {
			if transition.Action < 0 || transition.Action >= outputs {
				return 0, fmt.Errorf("step: invalid action\n\twant(0 <= "+
					"action < %v)\n\thave(%v)", outputs, transition.Action)
			}
			maskData[i*outputs+transition.Action] = 1
		}
	}

	if err := t.trainNet.SetInput(states); err != nil {
		return 0, fmt.Errorf("step: could not set input: %v", err)
	}
	if err := G.Let(t.targets, tensor.New(tensor.WithBacking(targetData),
		tensor.WithShape(t.batchSize))); err != nil {
		return 0, fmt.Errorf("step: could not set targets: %v", err)
	}
	if err := G.Let(t.sampleWeights, tensor.New(
		tensor.WithBacking(weightData),
		tensor.WithShape(t.batchSize))); err != nil {
		return 0, fmt.Errorf("step: could not set sample weights: %v", err)
	}
	if err := G.Let(t.actionMask, tensor.New(tensor.WithBacking(maskData),
		tensor.WithShape(t.batchSize, outputs))); err != nil {
		return 0, fmt.Errorf("step: could not set action mask: %v", err)
	}

	if err := t.trainNetVM.RunAll(); err != nil {
		return 0, fmt.Errorf("step: could not run learning network: %v", err)
	}
	loss, err := scalar(t.lossVal)
	if err != nil {
		return 0, fmt.Errorf("step: %v", err)
	}

	if err := t.solver.Step(t.trainNet.Model()); err != nil {
		return 0, fmt.Errorf("step: could not update weights: %v", err)
	}
	t.trainNetVM.Reset()

	// The live model acts and estimates targets with the new weights
	if err := t.model.Net().Set(t.trainNet); err != nil {
		return 0, fmt.Errorf("step: could not update model: %v", err)
	}
	return loss, nil
}

// scalar returns the single float64 held by v
func scalar(v G.Value) (float64, error) {
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, fmt.Errorf("scalar: value %v is not a scalar", v)
}

// Close releases the resources held by the Trainer
func (t *Trainer) Close() error {
	if t.target != nil {
		t.target.Close()
	}
	return t.trainNetVM.Close()
}
