package utils

import (
	"errors"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	_ "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/twistededwards"
	gnark_hash "github.com/consensys/gnark-crypto/hash"
)

var (
	CURVEID = twistededwards.BN254

	ErrNonCanonical = errors.New("value is not a canonical field element")
)

// ElementSize is the byte length of an encoded field element.
const ElementSize = fr.Bytes

func DefaultHasher() hash.Hash {
	return MiMCHasher()
}

func MiMCHasher() hash.Hash {
	return gnark_hash.MIMC_BN254.New()
}

// MiMCHash hashes arbitrary bytes. The input is cut into 32-byte chunks and
// every chunk is reduced into the scalar field before it is absorbed, so any
// byte string can be hashed.
func MiMCHash(ins ...[]byte) []byte {
	hasher := MiMCHasher()
	blockSize := hasher.Size()

	hasher.Reset()
	for _, in := range ins {
		for i := 0; i < len(in); i += blockSize {
			end := i + blockSize
			if end > len(in) {
				end = len(in)
			}
			// this value may be greater than the modulus; convert to fr.Element
			var elem fr.Element
			elem.SetBytes(in[i:end])
			_, _ = hasher.Write(elem.Marshal())
		}
	}
	return hasher.Sum(nil)
}

// HashElements is H(x1..xn) over canonical field elements. It matches the
// gnark std/hash/mimc gadget fed with the same elements.
func HashElements(elems ...fr.Element) fr.Element {
	hasher := MiMCHasher()
	for i := range elems {
		bz := elems[i].Bytes()
		_, _ = hasher.Write(bz[:])
	}
	var out fr.Element
	out.SetBytes(hasher.Sum(nil))
	return out
}

// ElementFromCanonical decodes a 32-byte big-endian field element and rejects
// values at or above the modulus.
func ElementFromCanonical(bz []byte) (fr.Element, error) {
	var e fr.Element
	if len(bz) != ElementSize {
		return e, ErrNonCanonical
	}
	if err := e.SetBytesCanonical(bz); err != nil {
		return e, ErrNonCanonical
	}
	return e, nil
}

func ElementFromUint64(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}

func RandElement() fr.Element {
	var e fr.Element
	_, _ = e.SetRandom()
	return e
}
