package accumulator

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/types"
)

// Path authenticates one leaf. Siblings are ordered from the leaf level up.
type Path struct {
	Index    uint64
	Siblings []fr.Element
}

// PathFor rebuilds the tree layers and collects the siblings of index. It is
// meant for proving tools; validation never needs it.
func (t *Tree) PathFor(index uint64) (*Path, error) {
	if index >= t.Size() {
		return nil, fmt.Errorf("%w: %d of %d", ErrBadIndex, index, t.Size())
	}

	path := &Path{Index: index, Siblings: make([]fr.Element, t.depth)}
	layer := make([]fr.Element, len(t.leaves))
	for i := range t.leaves {
		layer[i] = t.leaves[i].Element()
	}

	for level := 0; level < t.depth; level++ {
		if len(layer)%2 != 0 {
			layer = append(layer, emptyHashes[level])
		}
		sib := index ^ 1
		if sib < uint64(len(layer)) {
			path.Siblings[level] = layer[sib]
		} else {
			path.Siblings[level] = emptyHashes[level]
		}
		next := make([]fr.Element, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = hashNode(layer[i], layer[i+1])
		}
		layer = next
		index /= 2
	}
	return path, nil
}

// Root folds leaf up along the path.
func (p *Path) Root(leaf types.Commitment) types.Root {
	current := leaf.Element()
	idx := p.Index
	for _, sib := range p.Siblings {
		if idx%2 == 0 {
			current = hashNode(current, sib)
		} else {
			current = hashNode(sib, current)
		}
		idx /= 2
	}
	return types.RootFromElement(current)
}

func VerifyPath(root types.Root, leaf types.Commitment, p *Path) bool {
	if p == nil {
		return false
	}
	return p.Root(leaf) == root
}

// ComputeRoot derives the root of a depth-sized tree holding leaves in order,
// without any incremental state.
func ComputeRoot(depth int, leaves []types.Commitment) (types.Root, error) {
	if depth < 1 || depth > MaxDepth {
		return types.Root{}, fmt.Errorf("%w: %d", ErrBadDepth, depth)
	}
	if uint64(len(leaves)) > uint64(1)<<depth {
		return types.Root{}, types.ErrAccumulatorFull
	}
	layer := make([]fr.Element, len(leaves))
	for i := range leaves {
		layer[i] = leaves[i].Element()
	}
	for level := 0; level < depth; level++ {
		if len(layer) == 0 {
			return types.RootFromElement(emptyHashes[depth]), nil
		}
		if len(layer)%2 != 0 {
			layer = append(layer, emptyHashes[level])
		}
		next := make([]fr.Element, len(layer)/2)
		for i := 0; i < len(layer); i += 2 {
			next[i/2] = hashNode(layer[i], layer[i+1])
		}
		layer = next
	}
	if len(layer) == 0 {
		return types.RootFromElement(emptyHashes[depth]), nil
	}
	return types.RootFromElement(layer[0]), nil
}
