package accumulator

import (
	"testing"

	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
	"github.com/stretchr/testify/require"
)

func randLeaves(n int) []types.Commitment {
	out := make([]types.Commitment, n)
	for i := range out {
		out[i] = types.CommitmentFromElement(utils.RandElement())
	}
	return out
}

func TestNewTree(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrBadDepth)
	_, err = New(MaxDepth + 1)
	require.ErrorIs(t, err, ErrBadDepth)

	tree, err := New(4)
	require.NoError(t, err)
	require.Equal(t, uint64(16), tree.Capacity())
	require.Equal(t, EmptyRoot(4), tree.Root())
	require.NotEqual(t, EmptyRoot(4), EmptyRoot(5))
}

func TestAppendMatchesOfflineRoot(t *testing.T) {
	leaves := randLeaves(11)
	tree, err := New(5)
	require.NoError(t, err)

	for i, cm := range leaves {
		root, err := tree.Append(cm)
		require.NoError(t, err)

		expected, err := ComputeRoot(5, leaves[:i+1])
		require.NoError(t, err)
		require.Equal(t, expected, root, "leaf %d", i)
	}
	require.Equal(t, uint64(11), tree.Size())

	// order dependent
	swapped := append([]types.Commitment{}, leaves...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	other, err := ComputeRoot(5, swapped)
	require.NoError(t, err)
	require.NotEqual(t, tree.Root(), other)

	restored, err := Restore(5, leaves)
	require.NoError(t, err)
	require.Equal(t, tree.Root(), restored.Root())
	require.Equal(t, tree.Frontier(), restored.Frontier())
}

func TestAccumulatorFull(t *testing.T) {
	tree, err := New(2)
	require.NoError(t, err)
	for _, cm := range randLeaves(4) {
		_, err := tree.Append(cm)
		require.NoError(t, err)
	}
	root := tree.Root()

	_, err = tree.Append(randLeaves(1)[0])
	require.ErrorIs(t, err, types.ErrAccumulatorFull)
	require.Equal(t, root, tree.Root())
	require.Equal(t, uint64(4), tree.Size())
	require.Equal(t, uint64(0), tree.Remaining())

	_, err = Restore(2, randLeaves(5))
	require.ErrorIs(t, err, types.ErrAccumulatorFull)
}

func TestPathFor(t *testing.T) {
	leaves := randLeaves(6)
	tree, err := Restore(4, leaves)
	require.NoError(t, err)

	for i, cm := range leaves {
		path, err := tree.PathFor(uint64(i))
		require.NoError(t, err)
		require.Len(t, path.Siblings, 4)
		require.True(t, VerifyPath(tree.Root(), cm, path), "leaf %d", i)
		require.False(t, VerifyPath(tree.Root(), leaves[(i+1)%len(leaves)], path))
	}

	_, err = tree.PathFor(6)
	require.ErrorIs(t, err, ErrBadIndex)
	require.False(t, VerifyPath(tree.Root(), leaves[0], nil))
}

func TestSnapshotRevert(t *testing.T) {
	tree, err := Restore(4, randLeaves(3))
	require.NoError(t, err)
	root := tree.Root()
	frontier := tree.Frontier()

	snap := tree.Snapshot()
	for _, cm := range randLeaves(5) {
		_, err := tree.Append(cm)
		require.NoError(t, err)
	}
	require.NotEqual(t, root, tree.Root())

	tree.Revert(snap)
	require.Equal(t, root, tree.Root())
	require.Equal(t, frontier, tree.Frontier())
	require.Equal(t, uint64(3), tree.Size())

	// appends after a revert land on the same slots
	next := randLeaves(1)[0]
	_, err = tree.Append(next)
	require.NoError(t, err)
	leaf, ok := tree.Leaf(3)
	require.True(t, ok)
	require.Equal(t, next, leaf)
}

func TestHistory(t *testing.T) {
	_, err := NewHistory(0)
	require.ErrorIs(t, err, ErrBadRetention)

	h, err := NewHistory(2)
	require.NoError(t, err)

	roots := make([]types.Root, 3)
	for i := range roots {
		roots[i] = types.RootFromElement(utils.RandElement())
	}

	h.Push(roots[0])
	h.Push(roots[1])
	require.True(t, h.Contains(roots[0]))
	require.True(t, h.Contains(roots[1]))

	h.Push(roots[2])
	require.False(t, h.Contains(roots[0]))
	require.True(t, h.Contains(roots[2]))
	require.Equal(t, roots[1:], h.Roots())

	latest, ok := h.Latest()
	require.True(t, ok)
	require.Equal(t, roots[2], latest)

	// a root pushed twice survives one eviction
	h.Push(roots[2])
	require.True(t, h.Contains(roots[2]))
	require.False(t, h.Contains(roots[1]))

	h.Reset(roots)
	require.Equal(t, roots[1:], h.Roots())
}
