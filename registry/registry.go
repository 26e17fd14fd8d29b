// Package registry keeps the grow-only set of consumed spend tags.
package registry

import (
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
)

// Registry records every nullifier ever spent together with its insertion
// order. Nothing is ever removed once a batch is committed.
type Registry struct {
	tags  map[types.Nullifier]uint64
	order []types.Nullifier
}

func New() *Registry {
	return &Registry{tags: make(map[types.Nullifier]uint64)}
}

// Restore rebuilds a registry from tags in insertion order.
func Restore(tags []types.Nullifier) (*Registry, error) {
	r := New()
	if err := r.InsertBatch(tags); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) Contains(nf types.Nullifier) bool {
	_, ok := r.tags[nf]
	return ok
}

// Index returns the insertion position of nf.
func (r *Registry) Index(nf types.Nullifier) (uint64, bool) {
	idx, ok := r.tags[nf]
	return idx, ok
}

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) Insert(nf types.Nullifier) error {
	if r.Contains(nf) {
		return fmt.Errorf("%w: %s", types.ErrDoubleSpend, nf)
	}
	r.tags[nf] = uint64(len(r.order))
	r.order = append(r.order, nf)
	return nil
}

// InsertBatch inserts all tags or none. A tag repeated inside the batch is a
// double spend just like one already present.
func (r *Registry) InsertBatch(nfs []types.Nullifier) error {
	if err := r.CheckFresh(nfs); err != nil {
		return err
	}
	for _, nf := range nfs {
		r.tags[nf] = uint64(len(r.order))
		r.order = append(r.order, nf)
	}
	return nil
}

// CheckFresh fails with ErrDoubleSpend if any tag is already registered or
// appears twice in nfs.
func (r *Registry) CheckFresh(nfs []types.Nullifier) error {
	seen := make(map[types.Nullifier]struct{}, len(nfs))
	for _, nf := range nfs {
		if _, dup := seen[nf]; dup {
			return fmt.Errorf("%w: %s repeated in batch", types.ErrDoubleSpend, nf)
		}
		seen[nf] = struct{}{}
		if r.Contains(nf) {
			return fmt.Errorf("%w: %s", types.ErrDoubleSpend, nf)
		}
	}
	return nil
}

// Truncate drops tags inserted after the registry held size tags. The ledger
// calls it only to undo a batch whose write did not reach storage.
func (r *Registry) Truncate(size int) {
	if size < 0 || size >= len(r.order) {
		return
	}
	for _, nf := range r.order[size:] {
		delete(r.tags, nf)
	}
	r.order = r.order[:size]
}

// Tags returns all tags in insertion order.
func (r *Registry) Tags() []types.Nullifier {
	out := make([]types.Nullifier, len(r.order))
	copy(out, r.order)
	return out
}

// Digest is the MiMC Merkle root over the tags in insertion order. Two nodes
// with the same history report the same digest.
func (r *Registry) Digest() []byte {
	if len(r.order) == 0 {
		return make([]byte, types.HashSize)
	}
	tree := merkletree.New(utils.MiMCHasher())
	for i := range r.order {
		tree.Push(r.order[i][:])
	}
	return tree.Root()
}
