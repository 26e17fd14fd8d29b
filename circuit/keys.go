package circuit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/verifier"
)

// Keys bundles the compiled circuit of one shape with its Groth16 keys.
type Keys struct {
	Shape types.Shape
	Depth int
	CCS   constraint.ConstraintSystem
	PK    groth16.ProvingKey
	VK    groth16.VerifyingKey
}

func Compile(shape types.Shape, depth int) (constraint.ConstraintSystem, error) {
	c, err := New(shape, depth)
	if err != nil {
		return nil, err
	}
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, c)
}

// Setup compiles the circuit of shape and runs a Groth16 setup for it.
// TODO: replace the local setup with keys from a multi-party ceremony.
func Setup(shape types.Shape, depth int) (*Keys, error) {
	ccs, err := Compile(shape, depth)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", shape, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("setup %s: %w", shape, err)
	}
	return &Keys{Shape: shape, Depth: depth, CCS: ccs, PK: pk, VK: vk}, nil
}

// Save writes the constraint system, proving key and verifying key of k into
// dir using verifier.KeyFileName names.
func (k *Keys) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		ext string
		obj io.WriterTo
	}{
		{verifier.ExtCCS, k.CCS},
		{verifier.ExtPK, k.PK},
		{verifier.ExtVK, k.VK},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, verifier.KeyFileName(k.Shape, k.Depth, f.ext)), f.obj); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, obj io.WriterTo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := obj.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readFile(path string, obj io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = obj.ReadFrom(f)
	return err
}

// Load reads the keys Save wrote for shape.
func Load(dir string, shape types.Shape, depth int) (*Keys, error) {
	k := &Keys{
		Shape: shape,
		Depth: depth,
		CCS:   groth16.NewCS(ecc.BN254),
		PK:    groth16.NewProvingKey(ecc.BN254),
		VK:    groth16.NewVerifyingKey(ecc.BN254),
	}
	if err := readFile(filepath.Join(dir, verifier.KeyFileName(shape, depth, verifier.ExtCCS)), k.CCS); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, verifier.KeyFileName(shape, depth, verifier.ExtPK)), k.PK); err != nil {
		return nil, err
	}
	if err := readFile(filepath.Join(dir, verifier.KeyFileName(shape, depth, verifier.ExtVK)), k.VK); err != nil {
		return nil, err
	}
	return k, nil
}

// ExportSolidity writes a Solidity verifier contract for the verifying key.
func (k *Keys) ExportSolidity(w io.Writer) error {
	return k.VK.ExportSolidity(w)
}
