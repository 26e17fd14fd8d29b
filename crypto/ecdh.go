// Package crypto encrypts note plaintexts for their recipients. It runs only
// off-chain; the ledger stores ciphertexts without interpreting them.
package crypto

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
	"golang.org/x/crypto/blake2s"
)

// PublicKeySize is the length of a compressed BN254 twisted Edwards point.
const PublicKeySize = 32

func NewKey() (*eddsa.PrivateKey, error) {
	return eddsa.GenerateKey(crand.Reader)
}

// SharedSecret computes BLAKE2s(x(privateKey * otherPublicKey)).
func SharedSecret(privateKey *eddsa.PrivateKey, otherPublicKey *eddsa.PublicKey) ([]byte, error) {
	if !otherPublicKey.A.IsOnCurve() {
		return nil, errors.New("other public key is not on curve")
	}

	var shared tedwards.PointAffine
	scalarBytes := privateKey.Bytes()
	scalar := new(big.Int).SetBytes(scalarBytes[32:64])
	shared.ScalarMultiplication(&otherPublicKey.A, scalar)
	if !shared.IsOnCurve() {
		return nil, errors.New("computed shared secret is not on curve")
	}

	hasher, err := blake2s.New256(nil)
	if err != nil {
		return nil, err
	}
	ax := shared.X.Bytes()
	hasher.Write(ax[:])
	return hasher.Sum(nil), nil
}

// ExpandSeed derives outputLen bytes from a shared secret with the BLAKE2s
// PRF^expand construction used by Sapling note encryption.
func ExpandSeed(sharedSecret []byte, outputLen int) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, fmt.Errorf("sharedSecret must be 32 bytes")
	}

	// domain separation key
	personalization := []byte("MantaPay_Expand_")

	var keyStream []byte
	var counter byte = 1
	for len(keyStream) < outputLen {
		h, err := blake2s.New256(personalization)
		if err != nil {
			return nil, fmt.Errorf("failed to create blake2s hash: %w", err)
		}
		h.Write(sharedSecret)
		h.Write([]byte{counter})
		keyStream = append(keyStream, h.Sum(nil)...)

		counter++
		if counter == 0 {
			return nil, errors.New("KDF counter overflow")
		}
	}
	return keyStream[:outputLen], nil
}

func ParsePublicKey(bz []byte) (*eddsa.PublicKey, error) {
	if len(bz) != PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", PublicKeySize)
	}
	pub := new(eddsa.PublicKey)
	if _, err := pub.SetBytes(bz); err != nil {
		return nil, err
	}
	return pub, nil
}
