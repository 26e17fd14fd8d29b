package accumulator

import (
	"errors"

	"github.com/kysee/mantapay/types"
)

var ErrBadRetention = errors.New("accumulator: retention must be at least 1")

// History is the bounded window of roots a spend may reference. The oldest
// root is evicted once more than retain roots have been recorded.
type History struct {
	retain int
	roots  []types.Root
	index  map[types.Root]int
}

func NewHistory(retain int) (*History, error) {
	if retain < 1 {
		return nil, ErrBadRetention
	}
	return &History{
		retain: retain,
		index:  make(map[types.Root]int),
	}, nil
}

func (h *History) Retain() int { return h.retain }

func (h *History) Len() int { return len(h.roots) }

// Push records root as the newest retained root.
func (h *History) Push(root types.Root) {
	h.roots = append(h.roots, root)
	h.index[root]++
	for len(h.roots) > h.retain {
		h.evict()
	}
}

func (h *History) evict() {
	old := h.roots[0]
	h.roots = h.roots[1:]
	if h.index[old]--; h.index[old] <= 0 {
		delete(h.index, old)
	}
}

// Contains reports whether root is inside the retained window.
func (h *History) Contains(root types.Root) bool {
	return h.index[root] > 0
}

// Latest returns the most recently pushed root.
func (h *History) Latest() (types.Root, bool) {
	if len(h.roots) == 0 {
		return types.Root{}, false
	}
	return h.roots[len(h.roots)-1], true
}

// Roots returns the retained roots, oldest first.
func (h *History) Roots() []types.Root {
	out := make([]types.Root, len(h.roots))
	copy(out, h.roots)
	return out
}

// Reset replaces the window contents, keeping only the newest retain roots.
func (h *History) Reset(roots []types.Root) {
	h.roots = nil
	h.index = make(map[types.Root]int)
	for _, r := range roots {
		h.Push(r)
	}
}
