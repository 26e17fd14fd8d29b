package processor

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/kysee/mantapay/bank"
	"github.com/kysee/mantapay/circuit"
	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/prover"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/verifier"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const e2eDepth = 4

var (
	e2eOnce sync.Once
	e2eKeys []*circuit.Keys
	e2eErr  error
)

func groth16Keys(t *testing.T) []*circuit.Keys {
	t.Helper()
	e2eOnce.Do(func() {
		for _, shape := range []types.Shape{
			{Kind: types.KindTransfer, Inputs: 1, Outputs: 2},
			{Kind: types.KindReclaim, Inputs: 1, Outputs: 1},
		} {
			k, err := circuit.Setup(shape, e2eDepth)
			if err != nil {
				e2eErr = err
				return
			}
			e2eKeys = append(e2eKeys, k)
		}
	})
	require.NoError(t, e2eErr)
	return e2eKeys
}

type e2eEnv struct {
	st     *ledger.State
	bank   *bank.Bank
	proc   *Processor
	prover *prover.Prover
}

func newE2EEnv(t *testing.T, retain int) *e2eEnv {
	keys := groth16Keys(t)
	backend := verifier.NewGroth16()
	for _, k := range keys {
		backend.Register(k.Shape, k.VK)
	}
	v, err := verifier.New(backend, 16, zerolog.Nop())
	require.NoError(t, err)
	p, err := prover.New(e2eDepth, keys...)
	require.NoError(t, err)

	params := ledger.Params{Depth: e2eDepth, RetainRoots: retain, KeysChecksum: backend.Checksum()}
	st, err := ledger.Open(memorydb.New(), params, zerolog.Nop())
	require.NoError(t, err)
	b := bank.New(memorydb.New(), zerolog.Nop())
	_, err = b.Init(alice, testAsset, 1000)
	require.NoError(t, err)

	return &e2eEnv{st: st, bank: b, proc: New(v, b, testConfig, zerolog.Nop()), prover: p}
}

func (e *e2eEnv) input(t *testing.T, w *prover.Wallet, n *prover.Note, index uint64) prover.Input {
	path, err := e.st.PathFor(index)
	require.NoError(t, err)
	return prover.Input{Note: n, Wallet: w, Path: path, Root: e.st.Root()}
}

func TestShieldedLifecycle(t *testing.T) {
	e := newE2EEnv(t, 8)
	aw, err := prover.NewWallet()
	require.NoError(t, err)
	bw, err := prover.NewWallet()
	require.NoError(t, err)

	// shield 100 of alice's public balance
	mint, minted := prover.Mint(aw, testAsset, 100)
	_, err = e.proc.Process(e.st, alice, mint)
	require.NoError(t, err)
	require.Equal(t, uint64(900), balanceOf(t, e.bank, alice))

	// pay 40 to bob and keep 60
	tx, err := e.prover.Transfer(testAsset,
		[]prover.Input{e.input(t, aw, minted, 0)},
		[]prover.Output{
			prover.Pay(bw.Address(), testAsset, 40),
			prover.Pay(aw.Address(), testAsset, 60),
		})
	require.NoError(t, err)
	_, err = e.proc.Process(e.st, alice, tx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), e.st.LeafCount())

	cm, ok := e.st.Leaf(1)
	require.True(t, ok)
	ct, ok := e.st.Ciphertext(1)
	require.True(t, ok)
	got, ok := bw.Receive(cm, &ct)
	require.True(t, ok)
	require.Equal(t, uint64(40), got.Value)
	_, ok = aw.Receive(cm, &ct)
	require.False(t, ok)

	cm, _ = e.st.Leaf(2)
	ct, _ = e.st.Ciphertext(2)
	change, ok := aw.Receive(cm, &ct)
	require.True(t, ok)
	require.Equal(t, uint64(60), change.Value)

	// unshield the change with an empty change note
	reclaim, err := e.prover.Reclaim(testAsset, 60,
		[]prover.Input{e.input(t, aw, change, 2)},
		[]prover.Output{prover.Pay(aw.Address(), testAsset, 0)})
	require.NoError(t, err)

	tampered := *reclaim
	tampered.Amount = 59
	before := e.st.Root()
	_, err = e.proc.Process(e.st, alice, &tampered)
	requireRejected(t, err, types.ErrProofInvalid, Validated)
	require.Equal(t, before, e.st.Root())
	require.Equal(t, uint64(900), balanceOf(t, e.bank, alice))

	bz, err := types.EncodeOperation(reclaim)
	require.NoError(t, err)
	rcpt, err := e.proc.ProcessBytes(e.st, alice, bz)
	require.NoError(t, err)
	require.Equal(t, types.ActionReclaim, rcpt.Action)

	require.Equal(t, uint64(960), balanceOf(t, e.bank, alice))
	require.Equal(t, uint64(40), e.st.Pool(testAsset).Uint64())
	require.Equal(t, uint64(4), e.st.LeafCount())
	require.Equal(t, 2, e.st.TagCount())
	require.True(t, e.st.IsSpent(aw.Nullifier(minted)))
	require.True(t, e.st.IsSpent(aw.Nullifier(change)))
	require.False(t, e.st.IsSpent(bw.Nullifier(got)))

	_, err = e.proc.ProcessBytes(e.st, alice, bz)
	requireRejected(t, err, types.ErrDoubleSpend, Received)
	require.Equal(t, uint64(960), balanceOf(t, e.bank, alice))
}

func TestProofAgainstOldRoot(t *testing.T) {
	e := newE2EEnv(t, 2)
	aw, err := prover.NewWallet()
	require.NoError(t, err)

	mint, minted := prover.Mint(aw, testAsset, 10)
	_, err = e.proc.Process(e.st, alice, mint)
	require.NoError(t, err)
	in := e.input(t, aw, minted, 0)

	// one more root keeps the proof's root in the window
	filler, _ := prover.Mint(aw, testAsset, 1)
	_, err = e.proc.Process(e.st, alice, filler)
	require.NoError(t, err)

	tx, err := e.prover.Reclaim(testAsset, 10, []prover.Input{in}, []prover.Output{prover.Pay(aw.Address(), testAsset, 0)})
	require.NoError(t, err)
	// a second one pushes it out
	filler, _ = prover.Mint(aw, testAsset, 1)
	_, err = e.proc.Process(e.st, alice, filler)
	require.NoError(t, err)

	_, err = e.proc.Process(e.st, alice, tx)
	requireRejected(t, err, types.ErrStaleRoot, Received)
}
