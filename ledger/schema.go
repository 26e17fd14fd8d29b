package ledger

import (
	"encoding/binary"

	"github.com/kysee/mantapay/types"
)

// Database keys. Every key of the shielded pool starts with "mp-".
var (
	paramsKey = []byte("mp-params")
	metaKey   = []byte("mp-meta")
	rootsKey  = []byte("mp-roots")

	leafPrefix = []byte("mp-leaf-") // leafPrefix + index (uint64 big endian) -> commitment
	ctPrefix   = []byte("mp-ct-")   // ctPrefix + index (uint64 big endian) -> ciphertext
	tagPrefix  = []byte("mp-tag-")  // tagPrefix + nullifier -> insertion index (uint64 big endian)
	poolPrefix = []byte("mp-pool-") // poolPrefix + asset (uint32 big endian) -> pool balance
)

func encodeUint64(v uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, v)
	return bz
}

func leafKey(index uint64) []byte {
	return append(append([]byte{}, leafPrefix...), encodeUint64(index)...)
}

func ctKey(index uint64) []byte {
	return append(append([]byte{}, ctPrefix...), encodeUint64(index)...)
}

func tagKey(nf types.Nullifier) []byte {
	return append(append([]byte{}, tagPrefix...), nf[:]...)
}

func poolKey(asset types.AssetID) []byte {
	bz := make([]byte, 4)
	binary.BigEndian.PutUint32(bz, uint32(asset))
	return append(append([]byte{}, poolPrefix...), bz...)
}

type paramsRLP struct {
	Depth       uint64
	RetainRoots uint64
	Checksum    []byte
}

type metaRLP struct {
	LeafCount uint64
	Root      []byte
	Frontier  [][]byte
}
