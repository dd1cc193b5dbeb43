package trainer

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/crowdnav/agent"
	"github.com/samuelfneumann/crowdnav/expreplay"
	"github.com/samuelfneumann/crowdnav/network"
	"github.com/samuelfneumann/crowdnav/solver"
	ts "github.com/samuelfneumann/crowdnav/timestep"
	"github.com/samuelfneumann/crowdnav/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

const features = 3

func newModel(t *testing.T, outputs int) *network.Model {
	t.Helper()
	config := network.Config{
		HiddenSizes: []int{8},
		Activations: []string{"tanh"},
	}
	model, err := config.Create(features, outputs)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return model
}

func valueTransition(i int) ts.Transition {
	x := float64(i%7) / 7
	state := mat.NewVecDense(features, []float64{x, 1 - x, 0.5})
	return ts.Transition{
		State:     state,
		NextState: state,
		Reward:    x,
		Discount:  0.9,
		Episode:   i,
	}.WithTarget(2*x - 1)
}

func qTransition(i, numActions int) ts.Transition {
	x := float64(i%5) / 5
	return ts.Transition{
		State:     mat.NewVecDense(features, []float64{x, -x, 1}),
		NextState: mat.NewVecDense(features, []float64{x + 0.1, -x, 1}),
		Action:    i % numActions,
		Reward:    x,
		Discount:  0.9,
		Done:      i%4 == 0,
	}
}

func fill(t *testing.T, capacity, n int, f func(int) ts.Transition) *expreplay.Memory {
	t.Helper()
	memory, err := expreplay.New(capacity, 1)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	for i := 0; i < n; i++ {
		memory.Push(f(i))
	}
	return memory
}

func TestOptimizeBatchThreshold(t *testing.T) {
	memory := fill(t, 50, 9, valueTransition)
	model := newModel(t, 1)

	tr, err := New(model, memory, 10, agent.ValueLearning)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tr.SetLearningRate(0.01, solver.Adam); err != nil {
		t.Fatalf("setLearningRate: %v", err)
	}

	_, err = tr.OptimizeBatch(1)
	if !expreplay.IsInsufficientData(err) {
		t.Errorf("optimizeBatch: want insufficient data, have %v", err)
	}

	memory.Push(valueTransition(9))
	if _, err := tr.OptimizeBatch(1); err != nil {
		t.Errorf("optimizeBatch: unexpected error %v", err)
	}
}

func TestOptimizeEpochEmpty(t *testing.T) {
	memory, _ := expreplay.New(10, 1)
	tr, _ := New(newModel(t, 1), memory, 4, agent.ValueLearning)
	tr.SetLearningRate(0.01, solver.Adam)

	if _, err := tr.OptimizeEpoch(1); !expreplay.IsEmptyMemory(err) {
		t.Errorf("optimizeEpoch: want empty memory, have %v", err)
	}
}

func TestOptimizeWithoutSolver(t *testing.T) {
	memory := fill(t, 10, 10, valueTransition)
	tr, _ := New(newModel(t, 1), memory, 4, agent.ValueLearning)

	if _, err := tr.OptimizeEpoch(1); !errors.Is(err, ErrNoSolver) {
		t.Errorf("optimizeEpoch: want ErrNoSolver, have %v", err)
	}
}

func TestOptimizeEpochReducesLoss(t *testing.T) {
	// 23 transitions with batch size 5 leaves a partial final batch
	memory := fill(t, 100, 23, valueTransition)
	model := newModel(t, 1)
	before := model.Weights()

	tr, err := New(model, memory, 5, agent.ValueLearning)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr.SetLearningRate(0.01, solver.Adam)

	first, err := tr.OptimizeEpoch(1)
	if err != nil {
		t.Fatalf("optimizeEpoch: %v", err)
	}
	last, err := tr.OptimizeEpoch(100)
	if err != nil {
		t.Fatalf("optimizeEpoch: %v", err)
	}

	if last >= first {
		t.Errorf("optimizeEpoch: loss did not decrease (%v -> %v)", first,
			last)
	}

	changed := false
	after := model.Weights()
	for i := range before {
		for j := range before[i] {
			changed = changed || before[i][j] != after[i][j]
		}
	}
	if !changed {
		t.Error("optimizeEpoch: live model weights unchanged")
	}
}

func TestDoubleQTargetModel(t *testing.T) {
	numActions := 4
	memory := fill(t, 50, 20, func(i int) ts.Transition {
		return qTransition(i, numActions)
	})
	model := newModel(t, numActions)

	tr, err := New(model, memory, 8, agent.DoubleQ)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr.SetLearningRate(0.01, solver.Momentum)

	if _, err := tr.OptimizeBatch(1); !errors.Is(err, ErrNoTarget) {
		t.Errorf("optimizeBatch: want ErrNoTarget, have %v", err)
	}

	if err := tr.InitTargetModel(model); err != nil {
		t.Fatalf("initTargetModel: %v", err)
	}
	target := tr.TargetModel().Weights()

	if _, err := tr.OptimizeBatch(5); err != nil {
		t.Fatalf("optimizeBatch: %v", err)
	}

	if !equal(target, tr.TargetModel().Weights()) {
		t.Error("optimizeBatch: changed the target model")
	}
	if equal(target, model.Weights()) {
		t.Error("optimizeBatch: did not change the live model")
	}

	// Refreshing twice is the same as refreshing once
	tr.UpdateTargetModel(model)
	once := tr.TargetModel().Weights()
	tr.UpdateTargetModel(model)
	if !equal(once, tr.TargetModel().Weights()) {
		t.Error("updateTargetModel: not idempotent")
	}
	if !equal(once, model.Weights()) {
		t.Error("updateTargetModel: target differs from live model")
	}
}

func TestDoubleQEstimator(t *testing.T) {
	numActions := 3
	live := newModel(t, numActions)
	target := newModel(t, numActions)

	next := mat.NewVecDense(features, []float64{0.2, 0.4, -0.1})
	batch := []ts.Transition{
		{State: next, NextState: next, Reward: 1, Discount: 0.5, Done: true},
		{State: next, NextState: next, Reward: 1, Discount: 0.5},
		ts.Transition{State: next, NextState: next}.WithTarget(3),
	}

	estimator := NewEstimator(agent.DoubleQ)
	if _, err := estimator.Targets(batch, live, nil); !errors.Is(err,
		ErrNoTarget) {
		t.Errorf("targets: want ErrNoTarget, have %v", err)
	}

	targets, err := estimator.Targets(batch, live, target)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}

	liveValues, _ := live.Predict(vecData(next))
	targetValues, _ := target.Predict(vecData(next))
	_, best := floatutils.MaxSlice(liveValues)
	want := []float64{1, 1 + 0.5*targetValues[best[0]], 3}

	for i := range want {
		if math.Abs(targets[i]-want[i]) > 1e-12 {
			t.Errorf("targets[%v]: want(%v) have(%v)", i, want[i], targets[i])
		}
	}
}

func TestPrecomputedEstimator(t *testing.T) {
	estimator := NewEstimator(agent.ValueLearning)
	batch := []ts.Transition{valueTransition(1), {Reward: 1}}

	if _, err := estimator.Targets(batch, nil, nil); err == nil {
		t.Error("targets: expected error for transition without target")
	}

	targets, err := estimator.Targets(batch[:1], nil, nil)
	if err != nil || targets[0] != batch[0].Target {
		t.Errorf("targets: want(%v) have(%v, %v)", batch[0].Target, targets,
			err)
	}
}

func equal(a, b [][]float64) bool {
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
