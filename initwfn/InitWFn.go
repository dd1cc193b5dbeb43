// Package initwfn names Gorgonia weight initializers so that a network
// configuration can be stored as JSON and rebuilt with the same
// initialization scheme.
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type is the name of a weight initialization scheme
type Type string

// Available initialization schemes
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
)

// Params holds the hyperparameters of every scheme. Each scheme reads
// only the fields it needs:
//
//	GlorotU, GlorotN, HeU, HeN	Gain
//	Constant			Value
//	Gaussian			Mean, StdDev
//	Uniform				Low, High
type Params struct {
	Gain   float64 `json:",omitempty"`
	Value  float64 `json:",omitempty"`
	Mean   float64 `json:",omitempty"`
	StdDev float64 `json:",omitempty"`
	Low    float64 `json:",omitempty"`
	High   float64 `json:",omitempty"`
}

// InitWFn is a named weight initializer
type InitWFn struct {
	Type   Type
	Params Params

	fn G.InitWFn
}

// New returns the initializer of type t with hyperparameters p
func New(t Type, p Params) (*InitWFn, error) {
	i := &InitWFn{Type: t, Params: p}
	if err := i.build(); err != nil {
		return nil, err
	}
	return i, nil
}

// NewGlorotU returns a Glorot uniform initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return New(GlorotU, Params{Gain: gain})
}

// NewConstant returns an initializer setting every weight to value
func NewConstant(value float64) (*InitWFn, error) {
	return New(Constant, Params{Value: value})
}

// build creates the Gorgonia initializer described by the receiver
func (i *InitWFn) build() error {
	p := i.Params
	switch i.Type {
	case GlorotU:
		i.fn = G.GlorotU(p.Gain)
	case GlorotN:
		i.fn = G.GlorotN(p.Gain)
	case HeU:
		i.fn = G.HeU(p.Gain)
	case HeN:
		i.fn = G.HeN(p.Gain)
	case Zeroes:
		i.fn = G.Zeroes()
	case Constant:
		i.fn = G.ValuesOf(p.Value)
	case Gaussian:
		if p.StdDev <= 0 {
			return fmt.Errorf("build: gaussian standard deviation must "+
				"be positive\n\twant(>0)\n\thave(%v)", p.StdDev)
		}
		i.fn = G.Gaussian(p.Mean, p.StdDev)
	case Uniform:
		if p.Low >= p.High {
			return fmt.Errorf("build: uniform bounds out of order"+
				"\n\twant(low < high)\n\thave(%v, %v)", p.Low, p.High)
		}
		i.fn = G.Uniform(p.Low, p.High)
	default:
		return fmt.Errorf("build: unknown initializer %q", i.Type)
	}
	return nil
}

// InitWFn returns the Gorgonia initializer
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.fn
}

func (i *InitWFn) String() string {
	return fmt.Sprintf("%v%+v", i.Type, i.Params)
}

// UnmarshalJSON decodes the Type and Params of the initializer and
// rebuilds the Gorgonia initializer they describe
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	var named struct {
		Type   Type
		Params Params
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	i.Type, i.Params = named.Type, named.Params
	return i.build()
}
