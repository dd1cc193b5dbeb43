package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// activationFns maps the name of each supported nonlinearity to the
// Gorgonia operation applying it
var activationFns = map[string]func(*G.Node) (*G.Node, error){
	"relu":     G.Rectify,
	"tanh":     G.Tanh,
	"sigmoid":  G.Sigmoid,
	"identity": linear,
}

func linear(x *G.Node) (*G.Node, error) {
	return x, nil
}

// Activation is an elementwise nonlinearity applied to the output of a
// layer. Activations are stored by name when a network is gob encoded.
type Activation struct {
	name string
	f    func(*G.Node) (*G.Node, error)
}

// ParseActivation returns the Activation with the given name. Valid
// names are relu, tanh, sigmoid, and identity.
func ParseActivation(name string) (*Activation, error) {
	f, ok := activationFns[name]
	if !ok {
		return nil, fmt.Errorf("parseActivation: unknown activation %q", name)
	}
	return &Activation{name: name, f: f}, nil
}

// Identity returns the Activation of a linear layer
func Identity() *Activation {
	a, _ := ParseActivation("identity")
	return a
}

func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

func (a *Activation) String() string {
	return a.name
}

// GobEncode implements the gob.GobEncoder interface
func (a *Activation) GobEncode() ([]byte, error) {
	return []byte(a.name), nil
}

// GobDecode implements the gob.GobDecoder interface
func (a *Activation) GobDecode(encoded []byte) error {
	decoded, err := ParseActivation(string(encoded))
	if err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	*a = *decoded
	return nil
}
