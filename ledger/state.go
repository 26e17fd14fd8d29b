// Package ledger holds the shielded pool state: the commitment tree, the
// retained root window, the spent-tag registry, note ciphertexts and per-asset
// pool balances. It is persisted in an ethdb key-value store and mutated only
// through atomic changesets.
package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/mantapay/accumulator"
	"github.com/kysee/mantapay/registry"
	"github.com/kysee/mantapay/types"
	"github.com/rs/zerolog"
)

var (
	ErrCommitmentExists = errors.New("mantapay: commitment already exists")
	ErrPoolOverdrawn    = errors.New("mantapay: pool overdrawn")
	ErrParamMismatch    = errors.New("mantapay: scheme parameters do not match the store")
	ErrCorrupted        = errors.New("mantapay: ledger store is corrupted")
)

var (
	leavesGauge = metrics.NewRegisteredGauge("mantapay/leaves", nil)
	tagsGauge   = metrics.NewRegisteredGauge("mantapay/tags", nil)
)

// State is the shielded pool ledger. Reads may run concurrently; Apply is
// the only writer.
type State struct {
	mu sync.RWMutex

	db     ethdb.KeyValueStore
	params Params
	log    zerolog.Logger

	tree        *accumulator.Tree
	history     *accumulator.History
	tags        *registry.Registry
	commitments map[types.Commitment]uint64
	ciphertexts map[uint64]types.NoteCiphertext
	pool        map[types.AssetID]*uint256.Int
}

// Open loads the ledger from db, or writes a genesis ledger if db holds none.
// A store created with different parameters is rejected with
// ErrParamMismatch.
func Open(db ethdb.KeyValueStore, params Params, log zerolog.Logger) (*State, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	tree, err := accumulator.New(params.Depth)
	if err != nil {
		return nil, err
	}
	history, err := accumulator.NewHistory(params.RetainRoots)
	if err != nil {
		return nil, err
	}
	s := &State{
		db:          db,
		params:      params,
		log:         log.With().Str("module", "ledger").Logger(),
		tree:        tree,
		history:     history,
		tags:        registry.New(),
		commitments: make(map[types.Commitment]uint64),
		ciphertexts: make(map[uint64]types.NoteCiphertext),
		pool:        make(map[types.AssetID]*uint256.Int),
	}

	has, err := db.Has(paramsKey)
	if err != nil {
		return nil, err
	}
	if !has {
		if err := s.writeGenesis(); err != nil {
			return nil, err
		}
		s.log.Info().
			Int("depth", params.Depth).
			Int("retain", params.RetainRoots).
			Str("root", s.tree.Root().String()).
			Msg("initialized shielded ledger")
		return s, nil
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.log.Info().
		Uint64("leaves", s.tree.Size()).
		Int("tags", s.tags.Len()).
		Str("root", s.tree.Root().String()).
		Msg("loaded shielded ledger")
	return s, nil
}

func (s *State) writeGenesis() error {
	sum := s.params.Checksum()
	s.history.Push(s.tree.Root())

	batch := s.db.NewBatch()
	bz, err := rlp.EncodeToBytes(&paramsRLP{
		Depth:       uint64(s.params.Depth),
		RetainRoots: uint64(s.params.RetainRoots),
		Checksum:    sum[:],
	})
	if err != nil {
		return err
	}
	if err := batch.Put(paramsKey, bz); err != nil {
		return err
	}
	if err := s.writeMeta(batch); err != nil {
		return err
	}
	return batch.Write()
}

func (s *State) load() error {
	raw, err := s.db.Get(paramsKey)
	if err != nil {
		return err
	}
	var stored paramsRLP
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return fmt.Errorf("%w: params: %v", ErrCorrupted, err)
	}
	sum := s.params.Checksum()
	if !bytes.Equal(stored.Checksum, sum[:]) {
		return fmt.Errorf("%w: store has depth %d, retain %d", ErrParamMismatch, stored.Depth, stored.RetainRoots)
	}

	raw, err = s.db.Get(metaKey)
	if err != nil {
		return err
	}
	var meta metaRLP
	if err := rlp.DecodeBytes(raw, &meta); err != nil {
		return fmt.Errorf("%w: meta: %v", ErrCorrupted, err)
	}

	for i := uint64(0); i < meta.LeafCount; i++ {
		bz, err := s.db.Get(leafKey(i))
		if err != nil {
			return fmt.Errorf("%w: leaf %d: %v", ErrCorrupted, i, err)
		}
		cm, err := types.DecodeCommitment(bz)
		if err != nil {
			return fmt.Errorf("%w: leaf %d: %v", ErrCorrupted, i, err)
		}
		if _, err := s.tree.Append(cm); err != nil {
			return fmt.Errorf("%w: leaf %d: %v", ErrCorrupted, i, err)
		}
		s.commitments[cm] = i

		if bz, err := s.db.Get(ctKey(i)); err == nil {
			var ct types.NoteCiphertext
			if len(bz) != len(ct) {
				return fmt.Errorf("%w: ciphertext %d", ErrCorrupted, i)
			}
			copy(ct[:], bz)
			s.ciphertexts[i] = ct
		}
	}
	if root := s.tree.Root(); !bytes.Equal(root[:], meta.Root) {
		return fmt.Errorf("%w: rebuilt root %s does not match %x", ErrCorrupted, root, meta.Root)
	}
	frontier := s.tree.Frontier()
	if len(frontier) != len(meta.Frontier) {
		return fmt.Errorf("%w: frontier length", ErrCorrupted)
	}
	for i := range frontier {
		if !bytes.Equal(frontier[i][:], meta.Frontier[i]) {
			return fmt.Errorf("%w: frontier level %d", ErrCorrupted, i)
		}
	}

	raw, err = s.db.Get(rootsKey)
	if err != nil {
		return err
	}
	var roots [][]byte
	if err := rlp.DecodeBytes(raw, &roots); err != nil {
		return fmt.Errorf("%w: roots: %v", ErrCorrupted, err)
	}
	window := make([]types.Root, len(roots))
	for i, bz := range roots {
		if window[i], err = types.DecodeRoot(bz); err != nil {
			return fmt.Errorf("%w: root %d: %v", ErrCorrupted, i, err)
		}
	}
	s.history.Reset(window)

	if err := s.loadTags(); err != nil {
		return err
	}
	return s.loadPool()
}

func (s *State) loadTags() error {
	type entry struct {
		nf  types.Nullifier
		idx uint64
	}
	var entries []entry

	it := s.db.NewIterator(tagPrefix, nil)
	defer it.Release()
	for it.Next() {
		key, val := it.Key(), it.Value()
		nf, err := types.DecodeNullifier(key[len(tagPrefix):])
		if err != nil || len(val) != 8 {
			return fmt.Errorf("%w: tag %x", ErrCorrupted, key)
		}
		entries = append(entries, entry{nf: nf, idx: bytesToUint64(val)})
	}
	if err := it.Error(); err != nil {
		return err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	ordered := make([]types.Nullifier, len(entries))
	for i, e := range entries {
		if e.idx != uint64(i) {
			return fmt.Errorf("%w: tag index gap at %d", ErrCorrupted, i)
		}
		ordered[i] = e.nf
	}
	tags, err := registry.Restore(ordered)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	s.tags = tags
	return nil
}

func (s *State) loadPool() error {
	it := s.db.NewIterator(poolPrefix, nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != len(poolPrefix)+4 {
			return fmt.Errorf("%w: pool key %x", ErrCorrupted, key)
		}
		asset := types.AssetID(uint32(bytesToUint64(key[len(poolPrefix):])))
		s.pool[asset] = new(uint256.Int).SetBytes(it.Value())
	}
	return it.Error()
}

func bytesToUint64(bz []byte) uint64 {
	var v uint64
	for _, b := range bz {
		v = v<<8 | uint64(b)
	}
	return v
}

func (s *State) writeMeta(w ethdb.KeyValueWriter) error {
	root := s.tree.Root()
	meta := metaRLP{LeafCount: s.tree.Size(), Root: root[:]}
	for _, f := range s.tree.Frontier() {
		meta.Frontier = append(meta.Frontier, append([]byte{}, f[:]...))
	}
	bz, err := rlp.EncodeToBytes(&meta)
	if err != nil {
		return err
	}
	if err := w.Put(metaKey, bz); err != nil {
		return err
	}

	window := s.history.Roots()
	roots := make([][]byte, len(window))
	for i := range window {
		roots[i] = append([]byte{}, window[i][:]...)
	}
	if bz, err = rlp.EncodeToBytes(roots); err != nil {
		return err
	}
	return w.Put(rootsKey, bz)
}

func (s *State) Params() Params { return s.params }

func (s *State) Root() types.Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Root()
}

func (s *State) LeafCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Size()
}

func (s *State) Capacity() uint64 {
	return s.tree.Capacity()
}

// Remaining is the number of commitments that still fit in the tree.
func (s *State) Remaining() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Remaining()
}

// ContainsRoot reports whether root is in the retained window.
func (s *State) ContainsRoot(root types.Root) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Contains(root)
}

// Roots returns the retained window, oldest first.
func (s *State) Roots() []types.Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Roots()
}

func (s *State) IsSpent(nf types.Nullifier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.Contains(nf)
}

func (s *State) TagCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.Len()
}

// TagsDigest commits to the registry contents in insertion order.
func (s *State) TagsDigest() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags.Digest()
}

func (s *State) HasCommitment(cm types.Commitment) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.commitments[cm]
	return ok
}

func (s *State) Leaf(index uint64) (types.Commitment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Leaf(index)
}

// Ciphertext returns the note ciphertext stored with a leaf. Minted leaves
// have none.
func (s *State) Ciphertext(index uint64) (types.NoteCiphertext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ct, ok := s.ciphertexts[index]
	return ct, ok
}

// PathFor returns the authentication path of a leaf under the current root.
func (s *State) PathFor(index uint64) (*accumulator.Path, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.PathFor(index)
}

// Pool returns the shielded supply of asset.
func (s *State) Pool(asset types.AssetID) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.pool[asset]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}
