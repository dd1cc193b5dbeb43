package floatutils

import "testing"

func TestMaxSlice(t *testing.T) {
	max, indices := MaxSlice([]float64{3, 1, 3, 2})
	if max != 3 || len(indices) != 2 || indices[0] != 0 || indices[1] != 2 {
		t.Errorf("maxSlice: want(3, [0 2]) have(%v, %v)", max, indices)
	}

	max, indices = MaxSlice([]float64{-1})
	if max != -1 || len(indices) != 1 {
		t.Errorf("maxSlice: want(-1, [0]) have(%v, %v)", max, indices)
	}
}

func TestClip(t *testing.T) {
	if c := Clip(5, 0, 1); c != 1 {
		t.Errorf("clip: want(1) have(%v)", c)
	}
	if c := Clip(-5, 0, 1); c != 0 {
		t.Errorf("clip: want(0) have(%v)", c)
	}
}
