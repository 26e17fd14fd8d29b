package registry

import (
	"testing"

	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
	"github.com/stretchr/testify/require"
)

func randTag() types.Nullifier {
	return types.NullifierFromElement(utils.RandElement())
}

func TestInsertRejectsReplay(t *testing.T) {
	r := New()
	nf := randTag()
	require.False(t, r.Contains(nf))
	require.NoError(t, r.Insert(nf))
	require.True(t, r.Contains(nf))

	err := r.Insert(nf)
	require.ErrorIs(t, err, types.ErrDoubleSpend)
	require.Equal(t, 1, r.Len())
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	r := New()
	t1, t2, t3 := randTag(), randTag(), randTag()
	require.NoError(t, r.Insert(t1))

	err := r.InsertBatch([]types.Nullifier{t2, t1})
	require.ErrorIs(t, err, types.ErrDoubleSpend)
	require.False(t, r.Contains(t2))

	err = r.InsertBatch([]types.Nullifier{t2, t3, t2})
	require.ErrorIs(t, err, types.ErrDoubleSpend)
	require.False(t, r.Contains(t3))

	require.NoError(t, r.InsertBatch([]types.Nullifier{t2, t3}))
	require.Equal(t, []types.Nullifier{t1, t2, t3}, r.Tags())
	idx, ok := r.Index(t3)
	require.True(t, ok)
	require.Equal(t, uint64(2), idx)
}

func TestDigest(t *testing.T) {
	tags := []types.Nullifier{randTag(), randTag(), randTag()}
	a, err := Restore(tags)
	require.NoError(t, err)
	b, err := Restore(tags)
	require.NoError(t, err)
	require.Equal(t, a.Digest(), b.Digest())
	require.Len(t, a.Digest(), types.HashSize)

	reordered, err := Restore([]types.Nullifier{tags[1], tags[0], tags[2]})
	require.NoError(t, err)
	require.NotEqual(t, a.Digest(), reordered.Digest())

	require.Equal(t, make([]byte, types.HashSize), New().Digest())
}

func TestTruncate(t *testing.T) {
	tags := []types.Nullifier{randTag(), randTag(), randTag()}
	r, err := Restore(tags)
	require.NoError(t, err)
	digest := New()
	require.NoError(t, digest.InsertBatch(tags[:1]))

	r.Truncate(1)
	require.Equal(t, 1, r.Len())
	require.False(t, r.Contains(tags[2]))
	require.Equal(t, digest.Digest(), r.Digest())

	// the dropped tag can be inserted again
	require.NoError(t, r.Insert(tags[2]))
}
