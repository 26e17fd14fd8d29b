package verifier_test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
	"github.com/kysee/mantapay/verifier"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	shapes map[types.Shape]int
	err    error
	calls  atomic.Int64
	last   []fr.Element
}

func (b *stubBackend) NumPublic(shape types.Shape) (int, bool) {
	n, ok := b.shapes[shape]
	return n, ok
}

func (b *stubBackend) Verify(_ types.Shape, _ []byte, public []fr.Element) error {
	b.calls.Add(1)
	b.last = public
	return b.err
}

func (b *stubBackend) Checksum() [32]byte { return [32]byte{} }

var shape21 = types.Shape{Kind: types.KindTransfer, Inputs: 2, Outputs: 1}

func spend21() *types.Spend {
	sp := &types.Spend{
		Kind:  types.KindTransfer,
		Asset: 7,
		Proof: []byte{0x01, 0x02},
	}
	for i := 0; i < 2; i++ {
		sp.Senders = append(sp.Senders, types.SenderData{
			Root:      types.RootFromElement(utils.RandElement()),
			Nullifier: types.NullifierFromElement(utils.RandElement()),
		})
	}
	rd := types.ReceiverData{Commitment: types.CommitmentFromElement(utils.RandElement())}
	rd.Ciphertext[5] = 0x42
	sp.Receivers = append(sp.Receivers, rd)
	return sp
}

func TestPublicInputs(t *testing.T) {
	sp := spend21()
	public := verifier.PublicInputs(sp)
	require.Len(t, public, shape21.NumPublic())

	require.Equal(t, utils.ElementFromUint64(7), public[0])
	require.Equal(t, sp.Senders[0].Root.Element(), public[1])
	require.Equal(t, sp.Senders[1].Root.Element(), public[2])
	require.Equal(t, sp.Senders[0].Nullifier.Element(), public[3])
	require.Equal(t, sp.Senders[1].Nullifier.Element(), public[4])
	require.Equal(t, sp.Receivers[0].Commitment.Element(), public[5])
	require.Equal(t, sp.Receivers[0].Ciphertext.Digest(), public[6])
	require.True(t, public[7].IsZero())

	sp.Kind = types.KindReclaim
	sp.PublicValue = 99
	public = verifier.PublicInputs(sp)
	require.Equal(t, utils.ElementFromUint64(99), public[len(public)-1])
}

func TestVerifySpend(t *testing.T) {
	backend := &stubBackend{shapes: map[types.Shape]int{shape21: shape21.NumPublic()}}
	v, err := verifier.New(backend, 8, zerolog.Nop())
	require.NoError(t, err)

	sp := spend21()
	require.NoError(t, v.VerifySpend(sp))
	require.Equal(t, verifier.PublicInputs(sp), backend.last)

	// same content is served from the cache
	require.NoError(t, v.VerifySpend(sp))
	require.Equal(t, int64(1), backend.calls.Load())

	backend.err = fmt.Errorf("%w: pairing", types.ErrProofInvalid)
	sp.Proof = []byte{0x03}
	require.ErrorIs(t, v.VerifySpend(sp), types.ErrProofInvalid)
	require.ErrorIs(t, v.VerifySpend(sp), types.ErrProofInvalid)
	require.Equal(t, int64(2), backend.calls.Load())
}

func TestVerifySpendNoCache(t *testing.T) {
	backend := &stubBackend{shapes: map[types.Shape]int{shape21: shape21.NumPublic()}}
	v, err := verifier.New(backend, 0, zerolog.Nop())
	require.NoError(t, err)

	sp := spend21()
	require.NoError(t, v.VerifySpend(sp))
	require.NoError(t, v.VerifySpend(sp))
	require.Equal(t, int64(2), backend.calls.Load())
}

func TestVerifySpendKeyMismatch(t *testing.T) {
	backend := &stubBackend{shapes: map[types.Shape]int{shape21: shape21.NumPublic() + 1}}
	v, err := verifier.New(backend, 8, zerolog.Nop())
	require.NoError(t, err)

	err = v.VerifySpend(spend21())
	require.ErrorIs(t, err, types.ErrProofInvalid)

	sp := spend21()
	sp.Receivers = append(sp.Receivers, sp.Receivers[0])
	err = v.VerifySpend(sp)
	require.ErrorIs(t, err, types.ErrProofInvalid)
	require.Zero(t, backend.calls.Load())
}

func TestGroth16MalformedProof(t *testing.T) {
	g := verifier.NewGroth16()
	_, ok := g.NumPublic(shape21)
	require.False(t, ok)
	require.ErrorIs(t, g.Verify(shape21, []byte{0x01}, nil), types.ErrProofInvalid)
	require.Equal(t, g.Checksum(), verifier.NewGroth16().Checksum())

	_, err := verifier.LoadGroth16(t.TempDir(), 4, []types.Shape{shape21})
	require.Error(t, err)
	require.False(t, errors.Is(err, types.ErrProofInvalid))
}

func TestKeyFileName(t *testing.T) {
	require.Equal(t, "transfer-2x1-d20.vk", verifier.KeyFileName(shape21, 20, verifier.ExtVK))
}
