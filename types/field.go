package types

import (
	"encoding/hex"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/utils"
)

const HashSize = utils.ElementSize

type (
	// Commitment is a note commitment cm = H(asset, value, k, s).
	Commitment [HashSize]byte
	// Nullifier is a spend tag nf = H(sk, rho).
	Nullifier [HashSize]byte
	// Root is a commitment tree root.
	Root [HashSize]byte
	// Scalar is any other field element carried on the wire (k, s).
	Scalar [HashSize]byte
)

// AssetID identifies a fungible asset class.
type AssetID uint32

func (a AssetID) Element() fr.Element {
	return utils.ElementFromUint64(uint64(a))
}

func decodeField(bz []byte, what string) ([HashSize]byte, error) {
	var out [HashSize]byte
	if len(bz) != HashSize {
		return out, fmt.Errorf("%w: %s length %d, want %d", ErrMalformedEncoding, what, len(bz), HashSize)
	}
	if _, err := utils.ElementFromCanonical(bz); err != nil {
		return out, fmt.Errorf("%w: %s is not a canonical field element", ErrMalformedEncoding, what)
	}
	copy(out[:], bz)
	return out, nil
}

func elementOf(bz [HashSize]byte) fr.Element {
	var e fr.Element
	e.SetBytes(bz[:])
	return e
}

func DecodeCommitment(bz []byte) (Commitment, error) {
	v, err := decodeField(bz, "commitment")
	return Commitment(v), err
}

func DecodeNullifier(bz []byte) (Nullifier, error) {
	v, err := decodeField(bz, "nullifier")
	return Nullifier(v), err
}

func DecodeRoot(bz []byte) (Root, error) {
	v, err := decodeField(bz, "root")
	return Root(v), err
}

func DecodeScalar(bz []byte) (Scalar, error) {
	v, err := decodeField(bz, "scalar")
	return Scalar(v), err
}

func CommitmentFromElement(e fr.Element) Commitment { return Commitment(e.Bytes()) }
func NullifierFromElement(e fr.Element) Nullifier   { return Nullifier(e.Bytes()) }
func RootFromElement(e fr.Element) Root             { return Root(e.Bytes()) }
func ScalarFromElement(e fr.Element) Scalar         { return Scalar(e.Bytes()) }

func (c Commitment) Element() fr.Element { return elementOf(c) }
func (n Nullifier) Element() fr.Element  { return elementOf(n) }
func (r Root) Element() fr.Element       { return elementOf(r) }
func (s Scalar) Element() fr.Element     { return elementOf(s) }

// Valid reports whether the bytes are a canonical field element. Values built
// in Go rather than decoded from the wire are checked with it.
func (c Commitment) Valid() bool { return canonical(c) }
func (n Nullifier) Valid() bool  { return canonical(n) }
func (r Root) Valid() bool       { return canonical(r) }
func (s Scalar) Valid() bool     { return canonical(s) }

func canonical(bz [HashSize]byte) bool {
	_, err := utils.ElementFromCanonical(bz[:])
	return err == nil
}

func (c Commitment) String() string { return hex.EncodeToString(c[:]) }
func (n Nullifier) String() string  { return hex.EncodeToString(n[:]) }
func (r Root) String() string       { return hex.EncodeToString(r[:]) }
