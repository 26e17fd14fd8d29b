package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/kysee/mantapay/accumulator"
	"golang.org/x/crypto/blake2s"
)

// SchemeVersion changes whenever the hash, tree or public-input layout does.
const SchemeVersion = 1

// Params are the scheme parameters fixed at genesis.
type Params struct {
	Depth       int
	RetainRoots int
	// KeysChecksum commits to the verifying keys, see verifier.Backend.
	KeysChecksum [32]byte
}

func (p Params) Validate() error {
	if p.Depth < 1 || p.Depth > accumulator.MaxDepth {
		return fmt.Errorf("tree depth %d out of range 1..%d", p.Depth, accumulator.MaxDepth)
	}
	if p.RetainRoots < 1 {
		return fmt.Errorf("retained roots %d must be at least 1", p.RetainRoots)
	}
	return nil
}

// Checksum is BLAKE2s over the RLP encoding of the parameters.
func (p Params) Checksum() [32]byte {
	bz, _ := rlp.EncodeToBytes([]interface{}{
		uint64(SchemeVersion),
		uint64(p.Depth),
		uint64(p.RetainRoots),
		p.KeysChecksum[:],
	})
	return blake2s.Sum256(bz)
}
