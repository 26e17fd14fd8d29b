package prover

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/kysee/mantapay/crypto"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
)

// Address is what a payer needs to create a note for someone: the owner key
// pk = H(sk) bound into commitments and the key notes are encrypted to.
type Address struct {
	Owner fr.Element
	Enc   *eddsa.PublicKey
}

// Wallet holds the secrets of one shielded account.
type Wallet struct {
	spendKey fr.Element
	encKey   *eddsa.PrivateKey
}

func NewWallet() (*Wallet, error) {
	encKey, err := crypto.NewKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{spendKey: utils.RandElement(), encKey: encKey}, nil
}

func (w *Wallet) SpendKey() fr.Element { return w.spendKey }

func (w *Wallet) Address() Address {
	return Address{
		Owner: utils.HashElements(w.spendKey),
		Enc:   &w.encKey.PublicKey,
	}
}

// Nullifier is the spend tag of n under this wallet's key.
func (w *Wallet) Nullifier(n *Note) types.Nullifier {
	return types.NullifierFromElement(utils.HashElements(w.spendKey, n.Rho))
}

// Receive opens a ciphertext and accepts the note only if it matches cm.
func (w *Wallet) Receive(cm types.Commitment, ct *types.NoteCiphertext) (*Note, bool) {
	pt, err := crypto.DecryptNote(w.encKey, ct)
	if err != nil {
		return nil, false
	}
	n := &Note{
		Asset:    pt.Asset,
		Value:    pt.Value,
		Owner:    w.Address().Owner,
		Rho:      pt.Rho.Element(),
		Trapdoor: pt.Trapdoor.Element(),
	}
	if n.Commitment() != cm {
		return nil, false
	}
	return n, true
}

// Note is the full opening of a commitment.
type Note struct {
	Asset    types.AssetID
	Value    uint64
	Owner    fr.Element
	Rho      fr.Element
	Trapdoor fr.Element
}

// NewNote creates a note for owner with fresh rho and trapdoor.
func NewNote(owner fr.Element, asset types.AssetID, value uint64) *Note {
	return &Note{
		Asset:    asset,
		Value:    value,
		Owner:    owner,
		Rho:      utils.RandElement(),
		Trapdoor: utils.RandElement(),
	}
}

// Key is k = H(pk, rho).
func (n *Note) Key() fr.Element {
	return utils.HashElements(n.Owner, n.Rho)
}

func (n *Note) Commitment() types.Commitment {
	return types.NoteCommitment(n.Asset, n.Value, n.Key(), n.Trapdoor)
}

// MintData opens the commitment publicly for a Mint.
func (n *Note) MintData() types.MintData {
	return types.MintData{
		K:          types.ScalarFromElement(n.Key()),
		S:          types.ScalarFromElement(n.Trapdoor),
		Commitment: n.Commitment(),
	}
}

func (n *Note) plaintext() *crypto.NotePlaintext {
	return &crypto.NotePlaintext{
		Asset:    n.Asset,
		Value:    n.Value,
		Rho:      types.ScalarFromElement(n.Rho),
		Trapdoor: types.ScalarFromElement(n.Trapdoor),
	}
}
