// Package accumulator implements the append-only commitment tree of the
// shielded pool. Leaves live in an arena indexed by position; a frontier of
// filled left siblings per level makes every append O(depth).
package accumulator

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
)

const MaxDepth = 32

var (
	ErrBadDepth = errors.New("accumulator: depth out of range")
	ErrBadIndex = errors.New("accumulator: index out of range")
)

// emptyHashes[i] is the root of an empty subtree of height i.
var emptyHashes [MaxDepth + 1]fr.Element

func init() {
	for i := 1; i <= MaxDepth; i++ {
		emptyHashes[i] = hashNode(emptyHashes[i-1], emptyHashes[i-1])
	}
}

func hashNode(left, right fr.Element) fr.Element {
	return utils.HashElements(left, right)
}

// EmptyRoot is the root of a tree of the given depth with no leaves.
func EmptyRoot(depth int) types.Root {
	return types.RootFromElement(emptyHashes[depth])
}

// Tree is a fixed-depth incremental Merkle tree over note commitments.
// A Tree is not safe for concurrent use; its owner serializes appends.
type Tree struct {
	depth  int
	leaves []types.Commitment
	filled []fr.Element
	root   fr.Element
}

func New(depth int) (*Tree, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d", ErrBadDepth, depth)
	}
	return &Tree{
		depth:  depth,
		filled: make([]fr.Element, depth),
		root:   emptyHashes[depth],
	}, nil
}

// Restore rebuilds a tree by appending leaves in order.
func Restore(depth int, leaves []types.Commitment) (*Tree, error) {
	t, err := New(depth)
	if err != nil {
		return nil, err
	}
	if uint64(len(leaves)) > t.Capacity() {
		return nil, types.ErrAccumulatorFull
	}
	t.leaves = make([]types.Commitment, 0, len(leaves))
	for _, cm := range leaves {
		if _, err := t.Append(cm); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) Depth() int { return t.depth }

func (t *Tree) Capacity() uint64 { return uint64(1) << t.depth }

func (t *Tree) Size() uint64 { return uint64(len(t.leaves)) }

// Remaining is the number of free leaf slots.
func (t *Tree) Remaining() uint64 { return t.Capacity() - t.Size() }

func (t *Tree) Root() types.Root { return types.RootFromElement(t.root) }

func (t *Tree) Leaf(index uint64) (types.Commitment, bool) {
	if index >= t.Size() {
		return types.Commitment{}, false
	}
	return t.leaves[index], true
}

// Append adds cm at the next free slot and returns the new root. A full tree
// is left untouched.
func (t *Tree) Append(cm types.Commitment) (types.Root, error) {
	idx := t.Size()
	if idx >= t.Capacity() {
		return types.Root{}, types.ErrAccumulatorFull
	}
	t.leaves = append(t.leaves, cm)

	current := cm.Element()
	for level := 0; level < t.depth; level++ {
		if idx%2 == 0 {
			t.filled[level] = current
			current = hashNode(current, emptyHashes[level])
		} else {
			current = hashNode(t.filled[level], current)
		}
		idx /= 2
	}
	t.root = current
	return t.Root(), nil
}

// Frontier returns the cached left siblings, leaf level first.
func (t *Tree) Frontier() []types.Root {
	out := make([]types.Root, t.depth)
	for i := range t.filled {
		out[i] = types.RootFromElement(t.filled[i])
	}
	return out
}

// Snapshot captures the tree so a failed batch can be undone.
type Snapshot struct {
	size   uint64
	filled []fr.Element
	root   fr.Element
}

func (t *Tree) Snapshot() Snapshot {
	filled := make([]fr.Element, len(t.filled))
	copy(filled, t.filled)
	return Snapshot{size: t.Size(), filled: filled, root: t.root}
}

// Revert drops every leaf appended after snap was taken.
func (t *Tree) Revert(snap Snapshot) {
	t.leaves = t.leaves[:snap.size]
	copy(t.filled, snap.filled)
	t.root = snap.root
}
