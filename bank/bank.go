// Package bank is the host ledger of public balances. The shielded pool asks
// it to debit a depositor on Mint and to credit the claimant on Reclaim.
package bank

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/kysee/mantapay/types"
	"github.com/rs/zerolog"
)

var (
	ErrBalanceLow         = errors.New("mantapay: balance too low")
	ErrAmountZero         = types.ErrAmountZero
	ErrAlreadyInitialized = errors.New("mantapay: bank already initialized")
	ErrNotInitialized     = errors.New("mantapay: bank not initialized")
	ErrOverflow           = errors.New("mantapay: balance overflow")
)

var (
	initKey      = []byte("bk-init")
	balPrefix    = []byte("bk-bal-")    // balPrefix + asset (uint32 big endian) + account -> balance
	supplyPrefix = []byte("bk-supply-") // supplyPrefix + asset (uint32 big endian) -> total supply
)

func assetBytes(asset types.AssetID) []byte {
	bz := make([]byte, 4)
	binary.BigEndian.PutUint32(bz, uint32(asset))
	return bz
}

func balanceKey(account types.Account, asset types.AssetID) []byte {
	key := append(append([]byte{}, balPrefix...), assetBytes(asset)...)
	return append(key, account[:]...)
}

func supplyKey(asset types.AssetID) []byte {
	return append(append([]byte{}, supplyPrefix...), assetBytes(asset)...)
}

type genesisRLP struct {
	Account []byte
	Asset   uint32
	Total   uint64
}

// Bank keeps per-asset public balances in an ethdb store. Every call is
// atomic: it writes one batch or nothing.
type Bank struct {
	mu  sync.Mutex
	db  ethdb.KeyValueStore
	log zerolog.Logger
}

func New(db ethdb.KeyValueStore, log zerolog.Logger) *Bank {
	return &Bank{db: db, log: log.With().Str("module", "bank").Logger()}
}

// Init issues total units of asset to account. It can run only once.
func (b *Bank) Init(account types.Account, asset types.AssetID, total uint64) (*types.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	done, err := b.initialized()
	if err != nil {
		return nil, err
	} else if done {
		return nil, ErrAlreadyInitialized
	}
	if total == 0 {
		return nil, ErrAmountZero
	}
	bz, err := rlp.EncodeToBytes(&genesisRLP{Account: account[:], Asset: uint32(asset), Total: total})
	if err != nil {
		return nil, err
	}
	amount := uint256.NewInt(total)
	batch := b.db.NewBatch()
	if err := batch.Put(initKey, bz); err != nil {
		return nil, err
	}
	if err := batch.Put(balanceKey(account, asset), amount.Bytes()); err != nil {
		return nil, err
	}
	if err := batch.Put(supplyKey(asset), amount.Bytes()); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	b.log.Info().Str("account", account.String()).Uint32("asset", uint32(asset)).Uint64("total", total).Msg("issued")
	return &types.Event{Kind: types.EventIssued, Asset: asset, To: account, Amount: total}, nil
}

func (b *Bank) Initialized() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized()
}

func (b *Bank) initialized() (bool, error) {
	return b.db.Has(initKey)
}

// read returns zero for a missing key and the store error for a failed one.
func (b *Bank) read(key []byte) (*uint256.Int, error) {
	has, err := b.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return new(uint256.Int), nil
	}
	bz, err := b.db.Get(key)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(bz), nil
}

func (b *Bank) Balance(account types.Account, asset types.AssetID) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(balanceKey(account, asset))
}

func (b *Bank) TotalSupply(asset types.AssetID) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(supplyKey(asset))
}

// Transfer moves amount of asset between two public balances.
func (b *Bank) Transfer(from, to types.Account, asset types.AssetID, amount uint64) (*types.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.precheck(amount); err != nil {
		return nil, err
	}
	ev := &types.Event{Kind: types.EventTransferred, Asset: asset, From: from, To: to, Amount: amount}
	if from == to {
		if _, err := b.sub(from, asset, amount); err != nil {
			return nil, err
		}
		return ev, nil
	}
	src, err := b.sub(from, asset, amount)
	if err != nil {
		return nil, err
	}
	dst, err := b.add(to, asset, amount)
	if err != nil {
		return nil, err
	}

	batch := b.db.NewBatch()
	if err := batch.Put(balanceKey(from, asset), src.Bytes()); err != nil {
		return nil, err
	}
	if err := batch.Put(balanceKey(to, asset), dst.Bytes()); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, err
	}
	return ev, nil
}

// Debit removes amount from account, failing with ErrBalanceLow if it does
// not hold enough.
func (b *Bank) Debit(account types.Account, asset types.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.precheck(amount); err != nil {
		return err
	}
	bal, err := b.sub(account, asset, amount)
	if err != nil {
		return err
	}
	return b.db.Put(balanceKey(account, asset), bal.Bytes())
}

// Credit adds amount to account.
func (b *Bank) Credit(account types.Account, asset types.AssetID, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.precheck(amount); err != nil {
		return err
	}
	bal, err := b.add(account, asset, amount)
	if err != nil {
		return err
	}
	return b.db.Put(balanceKey(account, asset), bal.Bytes())
}

func (b *Bank) precheck(amount uint64) error {
	done, err := b.initialized()
	if err != nil {
		return err
	} else if !done {
		return ErrNotInitialized
	}
	if amount == 0 {
		return ErrAmountZero
	}
	return nil
}

func (b *Bank) sub(account types.Account, asset types.AssetID, amount uint64) (*uint256.Int, error) {
	bal, err := b.read(balanceKey(account, asset))
	if err != nil {
		return nil, err
	}
	amt := uint256.NewInt(amount)
	if bal.Lt(amt) {
		return nil, fmt.Errorf("%w: %s holds %s of asset %d, needs %d", ErrBalanceLow, account, bal.Dec(), asset, amount)
	}
	return bal.Sub(bal, amt), nil
}

func (b *Bank) add(account types.Account, asset types.AssetID, amount uint64) (*uint256.Int, error) {
	bal, err := b.read(balanceKey(account, asset))
	if err != nil {
		return nil, err
	}
	if _, overflow := bal.AddOverflow(bal, uint256.NewInt(amount)); overflow {
		return nil, ErrOverflow
	}
	return bal, nil
}
