package crypto

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"github.com/kysee/mantapay/types"
	"golang.org/x/crypto/chacha20poly1305"
)

// NotePlaintextSize is asset(4) | value(8) | rho(32) | trapdoor(32).
const NotePlaintextSize = 4 + 8 + 2*types.HashSize

const sealedSize = NotePlaintextSize + chacha20poly1305.Overhead

// NotePlaintext is what a recipient needs to rebuild and later spend a note.
type NotePlaintext struct {
	Asset    types.AssetID
	Value    uint64
	Rho      types.Scalar
	Trapdoor types.Scalar
}

func (p *NotePlaintext) Bytes() []byte {
	bz := make([]byte, NotePlaintextSize)
	binary.BigEndian.PutUint32(bz[0:4], uint32(p.Asset))
	binary.BigEndian.PutUint64(bz[4:12], p.Value)
	copy(bz[12:44], p.Rho[:])
	copy(bz[44:76], p.Trapdoor[:])
	return bz
}

func ParseNotePlaintext(bz []byte) (*NotePlaintext, error) {
	if len(bz) != NotePlaintextSize {
		return nil, fmt.Errorf("note plaintext must be %d bytes", NotePlaintextSize)
	}
	rho, err := types.DecodeScalar(bz[12:44])
	if err != nil {
		return nil, err
	}
	s, err := types.DecodeScalar(bz[44:76])
	if err != nil {
		return nil, err
	}
	return &NotePlaintext{
		Asset:    types.AssetID(binary.BigEndian.Uint32(bz[0:4])),
		Value:    binary.BigEndian.Uint64(bz[4:12]),
		Rho:      rho,
		Trapdoor: s,
	}, nil
}

func sessionKey(priv *eddsa.PrivateKey, pub *eddsa.PublicKey) (key, nonce []byte, err error) {
	shared, err := SharedSecret(priv, pub)
	if err != nil {
		return nil, nil, err
	}
	stream, err := ExpandSeed(shared, chacha20poly1305.KeySize+chacha20poly1305.NonceSize)
	if err != nil {
		return nil, nil, err
	}
	return stream[:chacha20poly1305.KeySize], stream[chacha20poly1305.KeySize:], nil
}

// EncryptNote seals pt to recipient under a fresh ephemeral key. The result
// is epk | AEAD(pt) with epk as associated data.
func EncryptNote(recipient *eddsa.PublicKey, pt *NotePlaintext) (types.NoteCiphertext, error) {
	var ct types.NoteCiphertext

	eph, err := NewKey()
	if err != nil {
		return ct, err
	}
	key, nonce, err := sessionKey(eph, recipient)
	if err != nil {
		return ct, err
	}
	epk := eph.PublicKey.Bytes()
	sealed, err := Seal(key, nonce, pt.Bytes(), epk)
	if err != nil {
		return ct, err
	}
	copy(ct[:PublicKeySize], epk)
	copy(ct[PublicKeySize:], sealed)
	return ct, nil
}

// DecryptNote opens a ciphertext addressed to priv.
func DecryptNote(priv *eddsa.PrivateKey, ct *types.NoteCiphertext) (*NotePlaintext, error) {
	epk, err := ParsePublicKey(ct[:PublicKeySize])
	if err != nil {
		return nil, err
	}
	key, nonce, err := sessionKey(priv, epk)
	if err != nil {
		return nil, err
	}
	pt, err := Open(key, nonce, ct[PublicKeySize:PublicKeySize+sealedSize], ct[:PublicKeySize])
	if err != nil {
		return nil, err
	}
	return ParseNotePlaintext(pt)
}
