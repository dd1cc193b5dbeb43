// Package intutils provides utilities for working with ints
package intutils

// Min returns the smallest of its arguments. It panics if called with
// no arguments.
func Min(ints ...int) int {
	min := ints[0]
	for _, val := range ints[1:] {
		if val < min {
			min = val
		}
	}
	return min
}
