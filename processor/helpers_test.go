package processor

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/kysee/mantapay/bank"
	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.Account{0xa1}
	bob   = types.Account{0xb0}
)

const testAsset types.AssetID = 1

var testConfig = Config{MaxInputs: 2, MaxOutputs: 2}

// stubVerifier accepts or rejects every proof and counts calls.
type stubVerifier struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int64
}

func (s *stubVerifier) VerifySpend(*types.Spend) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubVerifier) set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type env struct {
	t    *testing.T
	st   *ledger.State
	bank *bank.Bank
	proc *Processor
	stub *stubVerifier
}

func newEnv(t *testing.T, params ledger.Params) *env {
	st, err := ledger.Open(memorydb.New(), params, zerolog.Nop())
	require.NoError(t, err)
	b := bank.New(memorydb.New(), zerolog.Nop())
	_, err = b.Init(alice, testAsset, 1000)
	require.NoError(t, err)
	stub := &stubVerifier{}
	return &env{t: t, st: st, bank: b, proc: New(stub, b, testConfig, zerolog.Nop()), stub: stub}
}

func randMint(amount uint64) *types.Mint {
	k, s := utils.RandElement(), utils.RandElement()
	return &types.Mint{
		Asset:  testAsset,
		Amount: amount,
		Data: types.MintData{
			K:          types.ScalarFromElement(k),
			S:          types.ScalarFromElement(s),
			Commitment: types.NoteCommitment(testAsset, amount, k, s),
		},
	}
}

func randReceiver() types.ReceiverData {
	rd := types.ReceiverData{Commitment: types.CommitmentFromElement(utils.RandElement())}
	rd.Ciphertext[0] = 0x01
	return rd
}

func randSender(root types.Root) types.SenderData {
	return types.SenderData{Root: root, Nullifier: types.NullifierFromElement(utils.RandElement())}
}

func (e *env) transfer(outputs int) *types.PrivateTransfer {
	tx := &types.PrivateTransfer{
		Asset:   testAsset,
		Senders: []types.SenderData{randSender(e.st.Root())},
		Proof:   []byte{0x01},
	}
	for i := 0; i < outputs; i++ {
		tx.Receivers = append(tx.Receivers, randReceiver())
	}
	return tx
}

func (e *env) reclaim(amount uint64) *types.Reclaim {
	return &types.Reclaim{
		Asset:     testAsset,
		Amount:    amount,
		Senders:   []types.SenderData{randSender(e.st.Root())},
		Receivers: []types.ReceiverData{randReceiver()},
		Proof:     []byte{0x01},
	}
}

type snapshot struct {
	root    types.Root
	roots   []types.Root
	leaves  uint64
	tags    int
	pool    uint64
	balance uint64
}

func (e *env) snapshot() snapshot {
	return snapshot{
		root:    e.st.Root(),
		roots:   e.st.Roots(),
		leaves:  e.st.LeafCount(),
		tags:    e.st.TagCount(),
		pool:    e.st.Pool(testAsset).Uint64(),
		balance: balanceOf(e.t, e.bank, alice),
	}
}

func balanceOf(t *testing.T, b *bank.Bank, account types.Account) uint64 {
	t.Helper()
	bal, err := b.Balance(account, testAsset)
	require.NoError(t, err)
	return bal.Uint64()
}

func requireRejected(t *testing.T, err error, target error, stage Stage) {
	t.Helper()
	require.ErrorIs(t, err, target)
	var oe *OpError
	require.ErrorAs(t, err, &oe)
	require.Equal(t, stage, oe.Stage)
}
