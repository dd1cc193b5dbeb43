package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType names the part of a timestep a Spec describes
type SpecType int

const (
	Action SpecType = iota
	Observation
)

// Cardinality tells whether the values a Spec describes are discrete
// or continuous
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec describes the layout and bounds of the actions or observations
// of an environment. Observations are flat feature vectors with one
// bound per feature; discrete actions are a single index whose upper
// bound is the last valid action.
type Spec struct {
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec returns a Spec with one value per element of the bounds. It
// panics if the bounds have different lengths.
func NewSpec(t SpecType, lowerBound, upperBound mat.Vector,
	cardinality Cardinality) Spec {
	if lowerBound.Len() != upperBound.Len() {
		panic(fmt.Sprintf("newSpec: bounds must have equal length"+
			"\n\twant(%v)\n\thave(%v)", lowerBound.Len(), upperBound.Len()))
	}
	return Spec{
		Type:        t,
		LowerBound:  lowerBound,
		UpperBound:  upperBound,
		Cardinality: cardinality,
	}
}

// NewDiscreteActionSpec returns the Spec of a single action index in
// [0, n)
func NewDiscreteActionSpec(n int) Spec {
	return NewSpec(
		Action,
		mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{float64(n - 1)}),
		Discrete,
	)
}

// Size returns the number of values the Spec describes
func (s Spec) Size() int {
	if s.LowerBound == nil {
		return 0
	}
	return s.LowerBound.Len()
}

// NumActions returns the number of actions of a discrete action Spec
func (s Spec) NumActions() int {
	return int(s.UpperBound.AtVec(0)) + 1
}
