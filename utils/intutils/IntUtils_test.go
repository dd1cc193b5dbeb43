package intutils

import "testing"

func TestMin(t *testing.T) {
	tests := []struct {
		in   []int
		want int
	}{
		{[]int{3}, 3},
		{[]int{5, 2, 9}, 2},
		{[]int{-1, -4, 0}, -4},
	}
	for _, test := range tests {
		if have := Min(test.in...); have != test.want {
			t.Errorf("min(%v): want(%v) have(%v)", test.in, test.want, have)
		}
	}
}
