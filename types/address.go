package types

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const (
	addrPrefix  = "mp"
	addrVer     = 0x01
	AccountSize = 32
)

// Account identifies a holder of public balances on the host ledger.
type Account [AccountSize]byte

func EncodeAddress(payload []byte) string {
	return addrPrefix + base58.CheckEncode(payload, addrVer)
}

func DecodeAddress(addr string) ([]byte, error) {
	if !strings.HasPrefix(addr, addrPrefix) {
		if len(addr) > 2 {
			addr = addr[:2]
		}
		return nil, fmt.Errorf("wrong prefix: got(%s)", addr)
	}
	bz, ver, err := base58.CheckDecode(addr[len(addrPrefix):])
	if err != nil {
		return nil, err
	}
	if ver != addrVer {
		return nil, fmt.Errorf("wrong version: expected(%d), got(%d)", addrVer, ver)
	}
	return bz, nil
}

func (a Account) String() string {
	return EncodeAddress(a[:])
}

func ParseAccount(addr string) (Account, error) {
	var acct Account
	bz, err := DecodeAddress(addr)
	if err != nil {
		return acct, err
	}
	if len(bz) != AccountSize {
		return acct, fmt.Errorf("wrong account length: expected(%d), got(%d)", AccountSize, len(bz))
	}
	copy(acct[:], bz)
	return acct, nil
}
