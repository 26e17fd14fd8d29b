// Package circuit defines the spend circuits whose verifying keys the
// verifier adapter is configured with. Nodes never compile or prove; the
// package serves key generation and proving tools.
package circuit

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	std_mimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/kysee/mantapay/types"
)

const (
	valueBits = 64
	assetBits = 32
)

// InputNote is the private witness of one consumed note.
type InputNote struct {
	SpendKey frontend.Variable
	Rho      frontend.Variable
	Trapdoor frontend.Variable
	Value    frontend.Variable
	Index    frontend.Variable
	Path     []frontend.Variable
}

// OutputNote is the private witness of one created note. NoteKey is the
// recipient's k = H(pk, rho).
type OutputNote struct {
	NoteKey  frontend.Variable
	Trapdoor frontend.Variable
	Value    frontend.Variable
}

// SpendCircuit proves a PrivateTransfer or Reclaim. The public fields are
// declared in the frozen public-input order: asset, roots, nullifiers,
// output commitments, ciphertext digests, public value.
type SpendCircuit struct {
	kind  types.Kind
	depth int

	Asset         frontend.Variable   `gnark:",public"`
	Roots         []frontend.Variable `gnark:",public"`
	Nullifiers    []frontend.Variable `gnark:",public"`
	Commitments   []frontend.Variable `gnark:",public"`
	CipherDigests []frontend.Variable `gnark:",public"`
	PublicValue   frontend.Variable   `gnark:",public"`

	Inputs  []InputNote
	Outputs []OutputNote
}

// New allocates a circuit for shape with Merkle paths of the given depth.
func New(shape types.Shape, depth int) (*SpendCircuit, error) {
	if err := CheckShape(shape, shape.Inputs, shape.Outputs); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, fmt.Errorf("circuit: bad depth %d", depth)
	}
	c := &SpendCircuit{
		kind:          shape.Kind,
		depth:         depth,
		Roots:         make([]frontend.Variable, shape.Inputs),
		Nullifiers:    make([]frontend.Variable, shape.Inputs),
		Commitments:   make([]frontend.Variable, shape.Outputs),
		CipherDigests: make([]frontend.Variable, shape.Outputs),
		Inputs:        make([]InputNote, shape.Inputs),
		Outputs:       make([]OutputNote, shape.Outputs),
	}
	for i := range c.Inputs {
		c.Inputs[i].Path = make([]frontend.Variable, depth)
	}
	return c, nil
}

// CheckShape validates a shape against the arity limits.
func CheckShape(shape types.Shape, maxInputs, maxOutputs int) error {
	switch shape.Kind {
	case types.KindTransfer:
		if shape.Outputs < 1 {
			return fmt.Errorf("circuit: %s needs at least one output", shape)
		}
	case types.KindReclaim:
		if shape.Outputs < 0 {
			return fmt.Errorf("circuit: %s has negative outputs", shape)
		}
	default:
		return fmt.Errorf("circuit: unknown kind in %s", shape)
	}
	if shape.Inputs < 1 || shape.Inputs > maxInputs {
		return fmt.Errorf("circuit: %s inputs out of range 1..%d", shape, maxInputs)
	}
	if shape.Outputs > maxOutputs {
		return fmt.Errorf("circuit: %s outputs out of range ..%d", shape, maxOutputs)
	}
	return nil
}

// Shapes lists every shape allowed by the arity limits.
func Shapes(maxInputs, maxOutputs int) []types.Shape {
	var out []types.Shape
	for _, kind := range []types.Kind{types.KindTransfer, types.KindReclaim} {
		for n := 1; n <= maxInputs; n++ {
			m := 1
			if kind == types.KindReclaim {
				m = 0
			}
			for ; m <= maxOutputs; m++ {
				out = append(out, types.Shape{Kind: kind, Inputs: n, Outputs: m})
			}
		}
	}
	return out
}

func (c *SpendCircuit) Shape() types.Shape {
	return types.Shape{Kind: c.kind, Inputs: len(c.Inputs), Outputs: len(c.Outputs)}
}

func (c *SpendCircuit) Depth() int { return c.depth }

func (c *SpendCircuit) Define(api frontend.API) error {
	hasher, err := std_mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	api.ToBinary(c.Asset, assetBits)
	if c.kind == types.KindTransfer {
		api.AssertIsEqual(c.PublicValue, 0)
	}
	api.ToBinary(c.PublicValue, valueBits)

	var totalIn frontend.Variable = 0
	for i := range c.Inputs {
		c.verifyInput(api, &hasher, i)
		totalIn = api.Add(totalIn, c.Inputs[i].Value)
	}

	totalOut := c.PublicValue
	for j := range c.Outputs {
		c.verifyOutput(api, &hasher, j)
		totalOut = api.Add(totalOut, c.Outputs[j].Value)
	}

	api.AssertIsEqual(totalIn, totalOut)
	return nil
}

func hashOf(h hash.FieldHasher, vs ...frontend.Variable) frontend.Variable {
	h.Reset()
	h.Write(vs...)
	return h.Sum()
}

func (c *SpendCircuit) verifyInput(api frontend.API, h hash.FieldHasher, i int) {
	in := &c.Inputs[i]
	api.ToBinary(in.Value, valueBits)

	pk := hashOf(h, in.SpendKey)
	k := hashOf(h, pk, in.Rho)
	cm := hashOf(h, c.Asset, in.Value, k, in.Trapdoor)

	// membership of cm under Roots[i] at a private index
	bits := api.ToBinary(in.Index, c.depth)
	node := cm
	for level := 0; level < c.depth; level++ {
		left := api.Select(bits[level], in.Path[level], node)
		right := api.Select(bits[level], node, in.Path[level])
		node = hashOf(h, left, right)
	}
	api.AssertIsEqual(node, c.Roots[i])

	api.AssertIsEqual(c.Nullifiers[i], hashOf(h, in.SpendKey, in.Rho))
}

func (c *SpendCircuit) verifyOutput(api frontend.API, h hash.FieldHasher, j int) {
	out := &c.Outputs[j]
	api.ToBinary(out.Value, valueBits)
	api.AssertIsEqual(c.Commitments[j], hashOf(h, c.Asset, out.Value, out.NoteKey, out.Trapdoor))
	// binds the ciphertext digest into the proof
	api.AssertIsDifferent(c.CipherDigests[j], 0)
}
