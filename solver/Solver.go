// Package solver names the Gorgonia gradient descent solvers that can
// drive training, so that the optimizer of a run can be chosen from its
// configuration and recorded alongside it.
package solver

import (
	"encoding/json"
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type is the name of a gradient descent algorithm
type Type string

// Available solvers
const (
	Adam     Type = "Adam"
	Vanilla  Type = "Vanilla"
	RMSProp  Type = "RMSProp"
	Momentum Type = "Momentum"
)

// ParseType returns the solver Type with the given case-insensitive
// name. The name "sgd" refers to gradient descent with momentum.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "adam":
		return Adam, nil
	case "vanilla":
		return Vanilla, nil
	case "rmsprop":
		return RMSProp, nil
	case "momentum", "sgd":
		return Momentum, nil
	default:
		return "", fmt.Errorf("parseType: unknown solver %q", name)
	}
}

// Params are the hyperparameters of a solver. Fields a solver does not
// use are ignored. Clip <= 0 disables gradient clipping.
type Params struct {
	StepSize float64
	Momentum float64 `json:",omitempty"`
	Beta1    float64 `json:",omitempty"`
	Beta2    float64 `json:",omitempty"`
	Rho      float64 `json:",omitempty"`
	Epsilon  float64 `json:",omitempty"`
	Clip     float64 `json:",omitempty"`
}

// defaults returns the hyperparameters used for a solver of type t
func defaults(t Type, stepSize float64) Params {
	p := Params{StepSize: stepSize}
	switch t {
	case Adam:
		p.Beta1, p.Beta2, p.Epsilon = 0.9, 0.999, 1e-8
	case RMSProp:
		p.Rho, p.Epsilon = 0.999, 1e-8
	case Momentum:
		p.Momentum = 0.9
	}
	return p
}

// Solver is a named Gorgonia solver. Gradients are not averaged by the
// solver: losses should already be averaged over the batch.
type Solver struct {
	G.Solver `json:"-"`
	Type     Type
	Params   Params
}

// New returns a solver of type t with step size stepSize and default
// values for its remaining hyperparameters
func New(t Type, stepSize float64) (*Solver, error) {
	return NewWithParams(t, defaults(t, stepSize))
}

// NewWithParams returns a solver of type t with hyperparameters p
func NewWithParams(t Type, p Params) (*Solver, error) {
	s := &Solver{Type: t, Params: p}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// build creates the Gorgonia solver described by the receiver
func (s *Solver) build() error {
	p := s.Params
	if p.StepSize <= 0 {
		return fmt.Errorf("build: step size must be positive"+
			"\n\twant(>0)\n\thave(%v)", p.StepSize)
	}

	opts := []G.SolverOpt{G.WithLearnRate(p.StepSize), G.WithBatchSize(1)}
	if p.Clip > 0 {
		opts = append(opts, G.WithClip(p.Clip))
	}

	switch s.Type {
	case Adam:
		opts = append(opts, G.WithBeta1(p.Beta1), G.WithBeta2(p.Beta2),
			G.WithEps(p.Epsilon))
		s.Solver = G.NewAdamSolver(opts...)
	case RMSProp:
		opts = append(opts, G.WithRho(p.Rho), G.WithEps(p.Epsilon))
		s.Solver = G.NewRMSPropSolver(opts...)
	case Momentum:
		opts = append(opts, G.WithMomentum(p.Momentum))
		s.Solver = G.NewMomentum(opts...)
	case Vanilla:
		s.Solver = G.NewVanillaSolver(opts...)
	default:
		return fmt.Errorf("build: unknown solver type %q", s.Type)
	}
	return nil
}

// UnmarshalJSON decodes the Type and Params of the solver and rebuilds
// the Gorgonia solver they describe
func (s *Solver) UnmarshalJSON(data []byte) error {
	var named struct {
		Type   Type
		Params Params
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	s.Type, s.Params = named.Type, named.Params
	return s.build()
}
