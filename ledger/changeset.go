package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/kysee/mantapay/types"
)

// Leaf is one commitment to append, with the ciphertext for its recipient.
// Minted leaves carry no ciphertext.
type Leaf struct {
	Commitment types.Commitment
	Ciphertext *types.NoteCiphertext
}

// Changeset collects every mutation of one operation. It is applied whole
// or not at all.
type Changeset struct {
	Asset      types.AssetID
	Nullifiers []types.Nullifier
	Leaves     []Leaf
	// Deposit moves public value into the pool, Withdraw moves it out.
	Deposit  uint64
	Withdraw uint64
}

// Check runs every precondition of cs against the current state without
// mutating anything.
func (s *State) Check(cs *Changeset) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(cs)
}

func (s *State) check(cs *Changeset) error {
	if err := s.tags.CheckFresh(cs.Nullifiers); err != nil {
		return err
	}
	seen := make(map[types.Commitment]struct{}, len(cs.Leaves))
	for _, l := range cs.Leaves {
		if _, ok := s.commitments[l.Commitment]; ok {
			return fmt.Errorf("%w: %s", ErrCommitmentExists, l.Commitment)
		}
		if _, ok := seen[l.Commitment]; ok {
			return fmt.Errorf("%w: %s repeated in operation", ErrCommitmentExists, l.Commitment)
		}
		seen[l.Commitment] = struct{}{}
	}
	if uint64(len(cs.Leaves)) > s.tree.Remaining() {
		return fmt.Errorf("%w: %d leaves requested, %d free", types.ErrAccumulatorFull, len(cs.Leaves), s.tree.Remaining())
	}
	if cs.Withdraw > 0 {
		if bal := s.pool[cs.Asset]; bal == nil || bal.Lt(uint256.NewInt(cs.Withdraw)) {
			return fmt.Errorf("%w: asset %d", ErrPoolOverdrawn, cs.Asset)
		}
	}
	return nil
}

// Apply checks cs, applies it in memory and persists it with a single batch
// write. If the write fails the in-memory state is rolled back. It returns
// the new root, which is also recorded in the retained window.
func (s *State) Apply(cs *Changeset) (types.Root, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(cs); err != nil {
		return types.Root{}, err
	}

	snap := s.tree.Snapshot()
	tagCount := s.tags.Len()
	window := s.history.Roots()
	oldPool, hadPool := s.pool[cs.Asset]
	if hadPool {
		oldPool = oldPool.Clone()
	}
	start := s.tree.Size()

	revert := func() {
		for i := start; i < s.tree.Size(); i++ {
			leaf, _ := s.tree.Leaf(i)
			delete(s.commitments, leaf)
			delete(s.ciphertexts, i)
		}
		s.tree.Revert(snap)
		s.tags.Truncate(tagCount)
		s.history.Reset(window)
		if hadPool {
			s.pool[cs.Asset] = oldPool
		} else {
			delete(s.pool, cs.Asset)
		}
	}

	batch := s.db.NewBatch()
	err := func() error {
		for _, l := range cs.Leaves {
			idx := s.tree.Size()
			if _, err := s.tree.Append(l.Commitment); err != nil {
				return err
			}
			s.commitments[l.Commitment] = idx
			if err := batch.Put(leafKey(idx), l.Commitment[:]); err != nil {
				return err
			}
			if l.Ciphertext != nil {
				s.ciphertexts[idx] = *l.Ciphertext
				if err := batch.Put(ctKey(idx), l.Ciphertext[:]); err != nil {
					return err
				}
			}
		}
		for _, nf := range cs.Nullifiers {
			idx := uint64(s.tags.Len())
			if err := s.tags.Insert(nf); err != nil {
				return err
			}
			if err := batch.Put(tagKey(nf), encodeUint64(idx)); err != nil {
				return err
			}
		}
		if cs.Deposit > 0 || cs.Withdraw > 0 {
			bal := new(uint256.Int)
			if hadPool {
				bal.Set(oldPool)
			}
			bal.Add(bal, uint256.NewInt(cs.Deposit))
			bal.Sub(bal, uint256.NewInt(cs.Withdraw))
			s.pool[cs.Asset] = bal
			if err := batch.Put(poolKey(cs.Asset), bal.Bytes()); err != nil {
				return err
			}
		}
		// an operation without outputs keeps the root and must not evict
		if root, ok := s.history.Latest(); !ok || root != s.tree.Root() {
			s.history.Push(s.tree.Root())
		}
		if err := s.writeMeta(batch); err != nil {
			return err
		}
		return batch.Write()
	}()
	if err != nil {
		revert()
		s.log.Error().Err(err).Msg("ledger write failed, state reverted")
		return types.Root{}, err
	}

	leavesGauge.Update(int64(s.tree.Size()))
	tagsGauge.Update(int64(s.tags.Len()))
	return s.tree.Root(), nil
}
