package solver

import (
	"encoding/json"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"adam":    Adam,
		"Adam":    Adam,
		"sgd":     Momentum,
		"rmsprop": RMSProp,
		"vanilla": Vanilla,
	}
	for name, want := range tests {
		have, err := ParseType(name)
		if err != nil {
			t.Errorf("parseType(%q): %v", name, err)
		}
		if have != want {
			t.Errorf("parseType(%q): want(%v) have(%v)", name, want, have)
		}
	}

	if _, err := ParseType("lbfgs"); err == nil {
		t.Error("parseType: expected error for unknown solver")
	}
}

func TestNew(t *testing.T) {
	for _, ty := range []Type{Adam, Vanilla, RMSProp, Momentum} {
		s, err := New(ty, 0.01)
		if err != nil {
			t.Fatalf("new(%v): %v", ty, err)
		}
		if s.Type != ty || s.Solver == nil {
			t.Errorf("new(%v): solver not created", ty)
		}
	}

	if _, err := New(Adam, 0); err == nil {
		t.Error("new: expected error for zero step size")
	}
	if _, err := New("LBFGS", 0.1); err == nil {
		t.Error("new: expected error for unknown type")
	}
}

func TestSolverJSON(t *testing.T) {
	s, err := New(Momentum, 0.001)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != Momentum || decoded.Solver == nil {
		t.Errorf("type: want(%v) have(%v)", Momentum, decoded.Type)
	}
	if p := decoded.Params; p.StepSize != 0.001 || p.Momentum != 0.9 {
		t.Errorf("params: have(%+v)", p)
	}
}
