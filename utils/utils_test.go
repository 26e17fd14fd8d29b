package utils

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"
)

func TestHashElements(t *testing.T) {
	a, b := RandElement(), RandElement()
	ab, bb := a.Bytes(), b.Bytes()

	h := HashElements(a, b)
	require.Equal(t, h.Bytes(), [32]byte(MiMCHash(ab[:], bb[:])))
	require.NotEqual(t, h, HashElements(b, a))
	require.Equal(t, h, HashElements(a, b))
}

func TestMiMCHashShortInput(t *testing.T) {
	// short chunks are read as big-endian integers
	require.Equal(t, MiMCHash([]byte{0x05}), MiMCHash(append(make([]byte, 31), 0x05)))
}

func TestElementFromCanonical(t *testing.T) {
	e := RandElement()
	bz := e.Bytes()
	got, err := ElementFromCanonical(bz[:])
	require.NoError(t, err)
	require.Equal(t, e, got)

	mod := fr.Modulus().FillBytes(make([]byte, ElementSize))
	_, err = ElementFromCanonical(mod)
	require.ErrorIs(t, err, ErrNonCanonical)
	_, err = ElementFromCanonical(bz[1:])
	require.ErrorIs(t, err, ErrNonCanonical)
}

func TestElementFromUint64(t *testing.T) {
	e := ElementFromUint64(42)
	require.Equal(t, uint64(42), e.Uint64())
}
