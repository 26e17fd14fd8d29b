// Package verifier adapts a succinct proof system to spends: it assembles the
// frozen public-input vector, picks the key for the spend's shape and caches
// verification results.
package verifier

import (
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/metrics"
	lru "github.com/hashicorp/golang-lru"
	"github.com/kysee/mantapay/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2s"
)

var (
	verifyTimer     = metrics.NewRegisteredTimer("mantapay/verify", nil)
	verifyCacheHits = metrics.NewRegisteredMeter("mantapay/verify/cachehit", nil)
)

// Verifier is safe for concurrent use as long as its Backend is.
type Verifier struct {
	backend Backend
	cache   *lru.Cache
	log     zerolog.Logger
}

// New wraps backend. A cacheSize of zero disables the result cache.
func New(backend Backend, cacheSize int, log zerolog.Logger) (*Verifier, error) {
	v := &Verifier{
		backend: backend,
		log:     log.With().Str("module", "verifier").Logger(),
	}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, err
		}
		v.cache = cache
	}
	return v, nil
}

func (v *Verifier) Backend() Backend { return v.backend }

// VerifySpend checks the proof of a PrivateTransfer or Reclaim. Verification
// is a pure function of the spend, so results are cached by content.
func (v *Verifier) VerifySpend(sp *types.Spend) error {
	shape := sp.Shape()
	want, ok := v.backend.NumPublic(shape)
	if !ok {
		return fmt.Errorf("%w: no verifying key for %s", types.ErrProofInvalid, shape)
	}
	public := PublicInputs(sp)
	if want != len(public) {
		return fmt.Errorf("%w: key for %s expects %d public inputs, got %d",
			types.ErrProofInvalid, shape, want, len(public))
	}

	key := cacheKey(shape, sp.Proof, public)
	if v.cache != nil {
		if res, ok := v.cache.Get(key); ok {
			verifyCacheHits.Mark(1)
			if res == nil {
				return nil
			}
			return res.(error)
		}
	}

	start := time.Now()
	err := v.backend.Verify(shape, sp.Proof, public)
	verifyTimer.UpdateSince(start)
	v.log.Debug().
		Str("shape", shape.String()).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("verify proof")

	if v.cache != nil {
		v.cache.Add(key, err)
	}
	return err
}

func cacheKey(shape types.Shape, proof []byte, public []fr.Element) [32]byte {
	h, _ := blake2s.New256(nil)
	_, _ = h.Write([]byte(shape.String()))
	_, _ = h.Write(proof)
	for i := range public {
		bz := public[i].Bytes()
		_, _ = h.Write(bz[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
