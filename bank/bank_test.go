package bank

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/kysee/mantapay/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.Account{0x01}
	bob   = types.Account{0x02}
)

func balance(t *testing.T, b *Bank, account types.Account, asset types.AssetID) uint64 {
	t.Helper()
	bal, err := b.Balance(account, asset)
	require.NoError(t, err)
	return bal.Uint64()
}

func supply(t *testing.T, b *Bank, asset types.AssetID) uint64 {
	t.Helper()
	total, err := b.TotalSupply(asset)
	require.NoError(t, err)
	return total.Uint64()
}

func TestInit(t *testing.T) {
	b := New(memorydb.New(), zerolog.Nop())
	done, err := b.Initialized()
	require.NoError(t, err)
	require.False(t, done)
	require.ErrorIs(t, b.Debit(alice, 1, 1), ErrNotInitialized)
	_, err = b.Init(alice, 1, 0)
	require.ErrorIs(t, err, ErrAmountZero)

	ev, err := b.Init(alice, 1, 1000)
	require.NoError(t, err)
	require.Equal(t, types.EventIssued, ev.Kind)
	require.Equal(t, alice, ev.To)
	done, err = b.Initialized()
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, uint64(1000), balance(t, b, alice, 1))
	require.Equal(t, uint64(1000), supply(t, b, 1))

	_, err = b.Init(bob, 1, 5)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestTransfer(t *testing.T) {
	b := New(memorydb.New(), zerolog.Nop())
	_, err := b.Init(alice, 1, 100)
	require.NoError(t, err)

	_, err = b.Transfer(alice, bob, 1, 0)
	require.ErrorIs(t, err, ErrAmountZero)
	_, err = b.Transfer(alice, bob, 1, 101)
	require.ErrorIs(t, err, ErrBalanceLow)
	_, err = b.Transfer(alice, bob, 2, 1)
	require.ErrorIs(t, err, ErrBalanceLow)

	ev, err := b.Transfer(alice, bob, 1, 30)
	require.NoError(t, err)
	require.Equal(t, types.EventTransferred, ev.Kind)
	require.Equal(t, uint64(70), balance(t, b, alice, 1))
	require.Equal(t, uint64(30), balance(t, b, bob, 1))

	_, err = b.Transfer(bob, bob, 1, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(30), balance(t, b, bob, 1))
	require.Equal(t, uint64(100), supply(t, b, 1))
}

func TestDebitCredit(t *testing.T) {
	db := memorydb.New()
	b := New(db, zerolog.Nop())
	_, err := b.Init(alice, 1, 100)
	require.NoError(t, err)

	require.NoError(t, b.Debit(alice, 1, 100))
	require.Zero(t, balance(t, b, alice, 1))
	require.ErrorIs(t, b.Debit(alice, 1, 1), ErrBalanceLow)

	require.NoError(t, b.Credit(bob, 1, 60))
	require.Equal(t, uint64(60), balance(t, New(db, zerolog.Nop()), bob, 1))
}

var errRead = errors.New("read failed")

// flakyStore fails every read while broken is set.
type flakyStore struct {
	ethdb.KeyValueStore
	broken bool
}

func (f *flakyStore) Has(key []byte) (bool, error) {
	if f.broken {
		return false, errRead
	}
	return f.KeyValueStore.Has(key)
}

func (f *flakyStore) Get(key []byte) ([]byte, error) {
	if f.broken {
		return nil, errRead
	}
	return f.KeyValueStore.Get(key)
}

func TestReadFailureKeepsBalances(t *testing.T) {
	db := &flakyStore{KeyValueStore: memorydb.New()}
	b := New(db, zerolog.Nop())
	_, err := b.Init(alice, 1, 1000)
	require.NoError(t, err)

	db.broken = true
	require.ErrorIs(t, b.Credit(alice, 1, 5), errRead)
	require.ErrorIs(t, b.Debit(alice, 1, 5), errRead)
	_, err = b.Transfer(alice, bob, 1, 5)
	require.ErrorIs(t, err, errRead)
	_, err = b.Init(bob, 1, 5)
	require.ErrorIs(t, err, errRead)
	_, err = b.Balance(alice, 1)
	require.ErrorIs(t, err, errRead)
	_, err = b.TotalSupply(1)
	require.ErrorIs(t, err, errRead)

	db.broken = false
	require.Equal(t, uint64(1000), balance(t, b, alice, 1))
	require.Zero(t, balance(t, b, bob, 1))
	require.Equal(t, uint64(1000), supply(t, b, 1))
}
