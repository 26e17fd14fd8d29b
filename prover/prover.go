// Package prover builds spends and their Groth16 proofs. It is client
// tooling used by tests; the processor never imports it.
package prover

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/mantapay/accumulator"
	"github.com/kysee/mantapay/circuit"
	"github.com/kysee/mantapay/crypto"
	"github.com/kysee/mantapay/types"
)

var ErrNoKeys = errors.New("prover: no proving key for shape")

// Input is a note to spend together with what proves it is in the tree.
type Input struct {
	Note   *Note
	Wallet *Wallet
	Path   *accumulator.Path
	Root   types.Root
}

// Output is a note to create for a recipient.
type Output struct {
	Note *Note
	To   Address
}

// Pay creates an output of value for to.
func Pay(to Address, asset types.AssetID, value uint64) Output {
	return Output{Note: NewNote(to.Owner, asset, value), To: to}
}

// Mint builds a Mint of amount to the wallet's own address.
func Mint(w *Wallet, asset types.AssetID, amount uint64) (*types.Mint, *Note) {
	n := NewNote(w.Address().Owner, asset, amount)
	return &types.Mint{Asset: asset, Amount: amount, Data: n.MintData()}, n
}

type Prover struct {
	depth int
	keys  map[types.Shape]*circuit.Keys
}

func New(depth int, keys ...*circuit.Keys) (*Prover, error) {
	p := &Prover{depth: depth, keys: make(map[types.Shape]*circuit.Keys)}
	for _, k := range keys {
		if err := p.Add(k); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prover) Add(k *circuit.Keys) error {
	if k.Depth != p.depth {
		return fmt.Errorf("prover: keys for depth %d, want %d", k.Depth, p.depth)
	}
	p.keys[k.Shape] = k
	return nil
}

func (p *Prover) Transfer(asset types.AssetID, ins []Input, outs []Output) (*types.PrivateTransfer, error) {
	sp, err := p.spend(types.KindTransfer, asset, 0, ins, outs)
	if err != nil {
		return nil, err
	}
	return &types.PrivateTransfer{
		Asset:     asset,
		Senders:   sp.Senders,
		Receivers: sp.Receivers,
		Proof:     sp.Proof,
	}, nil
}

func (p *Prover) Reclaim(asset types.AssetID, amount uint64, ins []Input, outs []Output) (*types.Reclaim, error) {
	sp, err := p.spend(types.KindReclaim, asset, amount, ins, outs)
	if err != nil {
		return nil, err
	}
	return &types.Reclaim{
		Asset:     asset,
		Amount:    amount,
		Senders:   sp.Senders,
		Receivers: sp.Receivers,
		Proof:     sp.Proof,
	}, nil
}

func (p *Prover) spend(kind types.Kind, asset types.AssetID, public uint64, ins []Input, outs []Output) (*types.Spend, error) {
	sp := &types.Spend{
		Kind:        kind,
		Asset:       asset,
		PublicValue: public,
		Senders:     make([]types.SenderData, len(ins)),
		Receivers:   make([]types.ReceiverData, len(outs)),
	}
	for i, in := range ins {
		sp.Senders[i] = types.SenderData{Root: in.Root, Nullifier: in.Wallet.Nullifier(in.Note)}
	}
	for j, out := range outs {
		ct, err := crypto.EncryptNote(out.To.Enc, out.Note.plaintext())
		if err != nil {
			return nil, err
		}
		sp.Receivers[j] = types.ReceiverData{Commitment: out.Note.Commitment(), Ciphertext: ct}
	}

	proof, err := p.Prove(sp, ins, outs)
	if err != nil {
		return nil, err
	}
	sp.Proof = proof
	return sp, nil
}

// Prove assigns the witness of sp and returns the encoded proof.
func (p *Prover) Prove(sp *types.Spend, ins []Input, outs []Output) ([]byte, error) {
	shape := sp.Shape()
	keys, ok := p.keys[shape]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoKeys, shape)
	}
	assignment, err := Assign(sp, p.depth, ins, outs)
	if err != nil {
		return nil, err
	}

	wtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(keys.CCS, keys.PK, wtn)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Assign fills a circuit assignment for sp from the secret inputs and
// outputs.
func Assign(sp *types.Spend, depth int, ins []Input, outs []Output) (*circuit.SpendCircuit, error) {
	if len(ins) != len(sp.Senders) || len(outs) != len(sp.Receivers) {
		return nil, errors.New("prover: witness does not match spend arity")
	}
	c, err := circuit.New(sp.Shape(), depth)
	if err != nil {
		return nil, err
	}

	c.Asset = sp.Asset.Element()
	c.PublicValue = sp.PublicValue
	for i, in := range ins {
		if len(in.Path.Siblings) != depth {
			return nil, fmt.Errorf("prover: path of input %d has %d levels, want %d", i, len(in.Path.Siblings), depth)
		}
		c.Roots[i] = sp.Senders[i].Root.Element()
		c.Nullifiers[i] = sp.Senders[i].Nullifier.Element()
		c.Inputs[i].SpendKey = in.Wallet.SpendKey()
		c.Inputs[i].Rho = in.Note.Rho
		c.Inputs[i].Trapdoor = in.Note.Trapdoor
		c.Inputs[i].Value = in.Note.Value
		c.Inputs[i].Index = in.Path.Index
		for l := range in.Path.Siblings {
			c.Inputs[i].Path[l] = in.Path.Siblings[l]
		}
	}
	for j, out := range outs {
		c.Commitments[j] = sp.Receivers[j].Commitment.Element()
		c.CipherDigests[j] = sp.Receivers[j].Ciphertext.Digest()
		c.Outputs[j].NoteKey = out.Note.Key()
		c.Outputs[j].Trapdoor = out.Note.Trapdoor
		c.Outputs[j].Value = out.Note.Value
	}
	return c, nil
}
