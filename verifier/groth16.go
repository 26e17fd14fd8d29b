package verifier

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/kysee/mantapay/types"
	"golang.org/x/crypto/blake2s"
)

const (
	ExtVK  = "vk"
	ExtPK  = "pk"
	ExtCCS = "ccs"
)

// KeyFileName names the key material of one shape at one tree depth.
func KeyFileName(shape types.Shape, depth int, ext string) string {
	return fmt.Sprintf("%s-d%d.%s", shape, depth, ext)
}

// Backend is the proof-system capability the adapter depends on.
type Backend interface {
	// NumPublic returns the public-input count of the key registered for
	// shape, or false if there is none.
	NumPublic(shape types.Shape) (int, bool)
	// Verify checks proof against public. It returns ErrMalformedEncoding
	// for undecodable proofs and ErrProofInvalid for everything else.
	Verify(shape types.Shape, proof []byte, public []fr.Element) error
	// Checksum commits to every registered key.
	Checksum() [32]byte
}

// Groth16 verifies BN254 Groth16 proofs with one verifying key per shape.
type Groth16 struct {
	keys map[types.Shape]groth16.VerifyingKey
}

var _ Backend = (*Groth16)(nil)

func NewGroth16() *Groth16 {
	return &Groth16{keys: make(map[types.Shape]groth16.VerifyingKey)}
}

func (g *Groth16) Register(shape types.Shape, vk groth16.VerifyingKey) {
	g.keys[shape] = vk
}

func (g *Groth16) Shapes() []types.Shape {
	out := make([]types.Shape, 0, len(g.keys))
	for s := range g.keys {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Inputs != b.Inputs {
			return a.Inputs < b.Inputs
		}
		return a.Outputs < b.Outputs
	})
	return out
}

// LoadGroth16 registers the verifying keys found in dir for shapes. Shapes
// without a key file are skipped; proofs for them are rejected later.
func LoadGroth16(dir string, depth int, shapes []types.Shape) (*Groth16, error) {
	g := NewGroth16()
	for _, shape := range shapes {
		f, err := os.Open(filepath.Join(dir, KeyFileName(shape, depth, ExtVK)))
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, err
		}
		vk := groth16.NewVerifyingKey(ecc.BN254)
		_, err = vk.ReadFrom(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read verifying key %s: %w", shape, err)
		}
		g.Register(shape, vk)
	}
	if len(g.keys) == 0 {
		return nil, fmt.Errorf("no verifying keys for depth %d in %s", depth, dir)
	}
	return g, nil
}

func (g *Groth16) NumPublic(shape types.Shape) (int, bool) {
	vk, ok := g.keys[shape]
	if !ok {
		return 0, false
	}
	return vk.NbPublicWitness(), true
}

func (g *Groth16) Verify(shape types.Shape, bz []byte, public []fr.Element) error {
	vk, ok := g.keys[shape]
	if !ok {
		return fmt.Errorf("%w: no verifying key for %s", types.ErrProofInvalid, shape)
	}
	proof, err := decodeProof(bz)
	if err != nil {
		return err
	}

	wtn, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return err
	}
	values := make(chan any, len(public))
	for i := range public {
		values <- public[i]
	}
	close(values)
	if err := wtn.Fill(len(public), 0, values); err != nil {
		return fmt.Errorf("%w: %v", types.ErrProofInvalid, err)
	}

	if err := groth16.Verify(proof, vk, wtn); err != nil {
		return fmt.Errorf("%w: %v", types.ErrProofInvalid, err)
	}
	return nil
}

func decodeProof(bz []byte) (proof groth16.Proof, err error) {
	if len(bz) == 0 || len(bz) > types.MaxProofSize {
		return nil, fmt.Errorf("%w: proof length %d", types.ErrMalformedEncoding, len(bz))
	}
	defer func() {
		if r := recover(); r != nil {
			proof, err = nil, fmt.Errorf("%w: proof: %v", types.ErrMalformedEncoding, r)
		}
	}()
	proof = groth16.NewProof(ecc.BN254)
	n, err := proof.ReadFrom(bytes.NewReader(bz))
	if err != nil {
		return nil, fmt.Errorf("%w: proof: %v", types.ErrMalformedEncoding, err)
	}
	if n != int64(len(bz)) {
		return nil, fmt.Errorf("%w: proof has %d trailing bytes", types.ErrMalformedEncoding, int64(len(bz))-n)
	}
	return proof, nil
}

// Checksum is BLAKE2s over every shape and its serialized verifying key.
func (g *Groth16) Checksum() [32]byte {
	h, _ := blake2s.New256(nil)
	for _, shape := range g.Shapes() {
		_, _ = h.Write([]byte(shape.String()))
		_, _ = g.keys[shape].WriteTo(h)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
