package types

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/utils"
)

const (
	MintDataSize       = 3 * HashSize
	SenderDataSize     = 2 * HashSize
	NoteCiphertextSize = 124
	ReceiverDataSize   = HashSize + NoteCiphertextSize
	MaxProofSize       = 512
)

// MintData opens a freshly minted commitment: cm = H(asset, amount, k, s).
type MintData struct {
	K          Scalar
	S          Scalar
	Commitment Commitment
}

func (m *MintData) Bytes() []byte {
	bz := make([]byte, 0, MintDataSize)
	bz = append(bz, m.K[:]...)
	bz = append(bz, m.S[:]...)
	return append(bz, m.Commitment[:]...)
}

func DecodeMintData(bz []byte) (*MintData, error) {
	if len(bz) != MintDataSize {
		return nil, fmt.Errorf("%w: mint data length %d, want %d", ErrMalformedEncoding, len(bz), MintDataSize)
	}
	k, err := DecodeScalar(bz[0:32])
	if err != nil {
		return nil, err
	}
	s, err := DecodeScalar(bz[32:64])
	if err != nil {
		return nil, err
	}
	cm, err := DecodeCommitment(bz[64:96])
	if err != nil {
		return nil, err
	}
	return &MintData{K: k, S: s, Commitment: cm}, nil
}

// Opens reports whether the commitment binds exactly (asset, amount, k, s).
func (m *MintData) Opens(asset AssetID, amount uint64) bool {
	cm := NoteCommitment(asset, amount, m.K.Element(), m.S.Element())
	return cm == m.Commitment
}

// NoteCommitment computes cm = H(asset, value, k, s).
func NoteCommitment(asset AssetID, value uint64, k, s fr.Element) Commitment {
	return CommitmentFromElement(utils.HashElements(asset.Element(), utils.ElementFromUint64(value), k, s))
}

// SenderData names the root a spent note was proven against and its spend tag.
type SenderData struct {
	Root      Root
	Nullifier Nullifier
}

func (sd *SenderData) Bytes() []byte {
	bz := make([]byte, 0, SenderDataSize)
	bz = append(bz, sd.Root[:]...)
	return append(bz, sd.Nullifier[:]...)
}

func DecodeSenderData(bz []byte) (*SenderData, error) {
	if len(bz) != SenderDataSize {
		return nil, fmt.Errorf("%w: sender data length %d, want %d", ErrMalformedEncoding, len(bz), SenderDataSize)
	}
	root, err := DecodeRoot(bz[0:32])
	if err != nil {
		return nil, err
	}
	nf, err := DecodeNullifier(bz[32:64])
	if err != nil {
		return nil, err
	}
	return &SenderData{Root: root, Nullifier: nf}, nil
}

// NoteCiphertext is the recipient payload: an ephemeral public key followed by
// the AEAD sealed note plaintext. The ledger stores it verbatim.
type NoteCiphertext [NoteCiphertextSize]byte

// Digest is the field element binding the ciphertext into the proof.
func (ct *NoteCiphertext) Digest() fr.Element {
	var e fr.Element
	e.SetBytes(utils.MiMCHash(ct[:]))
	return e
}

// ReceiverData carries one output commitment and its ciphertext.
type ReceiverData struct {
	Commitment Commitment
	Ciphertext NoteCiphertext
}

func (rd *ReceiverData) Bytes() []byte {
	bz := make([]byte, 0, ReceiverDataSize)
	bz = append(bz, rd.Commitment[:]...)
	return append(bz, rd.Ciphertext[:]...)
}

func DecodeReceiverData(bz []byte) (*ReceiverData, error) {
	if len(bz) != ReceiverDataSize {
		return nil, fmt.Errorf("%w: receiver data length %d, want %d", ErrMalformedEncoding, len(bz), ReceiverDataSize)
	}
	cm, err := DecodeCommitment(bz[0:32])
	if err != nil {
		return nil, err
	}
	rd := &ReceiverData{Commitment: cm}
	copy(rd.Ciphertext[:], bz[32:])
	return rd, nil
}
