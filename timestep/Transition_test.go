package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewTransition(t *testing.T) {
	s := mat.NewVecDense(2, []float64{0, 1})
	next := mat.NewVecDense(2, []float64{1, 2})

	first := New(First, 0, 1, s, 0)
	mid := New(Mid, -0.1, 0.9, next, 1)

	tr := NewTransition(first, 3, mid)
	if tr.Action != 3 || tr.Reward != -0.1 || tr.Discount != 0.9 {
		t.Errorf("newTransition: got %v", tr)
	}
	if tr.Done {
		t.Error("newTransition: mid step should not be terminal")
	}
	if tr.HasTarget {
		t.Error("newTransition: target should not be set")
	}

	collided := NewLast(Collision, -0.25, 0.9, next, 1)
	if tr := NewTransition(first, 0, collided); !tr.Done {
		t.Error("newTransition: collision should be terminal")
	}

	timeout := NewLast(Timeout, 0, 0.9, next, 1)
	if tr := NewTransition(first, 0, timeout); tr.Done {
		t.Error("newTransition: timeout should not be terminal")
	}
}

func TestWithTarget(t *testing.T) {
	tr := Transition{Reward: 1}
	targeted := tr.WithTarget(0.5)

	if tr.HasTarget {
		t.Error("withTarget: original transition was modified")
	}
	if !targeted.HasTarget || targeted.Target != 0.5 {
		t.Errorf("withTarget: want(0.5) have(%v)", targeted.Target)
	}
}

func TestSetEnd(t *testing.T) {
	step := New(Mid, 0, 1, mat.NewVecDense(1, nil), 4)
	if step.End() != None {
		t.Errorf("end: want(None) have(%v)", step.End())
	}

	step.SetEnd(ReachedGoal)
	if !step.Last() || step.End() != ReachedGoal {
		t.Errorf("setEnd: want(Last, ReachedGoal) have(%v)", step)
	}
}
