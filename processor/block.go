package processor

import (
	"context"
	"runtime"

	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/types"
	"golang.org/x/sync/errgroup"
)

// Submission is one operation of a block together with its submitter.
type Submission struct {
	Origin types.Account
	Op     types.Operation
}

// Result is the outcome of one submission. Exactly one of Receipt and Err
// is set.
type Result struct {
	Receipt *Receipt
	Err     error
}

type proofResult struct {
	err error
}

// ApplyBlock processes subs in order. Proofs are verified concurrently up
// front because verification reads no ledger state; mutations are then
// applied one operation at a time in submission order, so the resulting
// roots are the same as with Process called in a loop. The returned error is
// set only if ctx ends during verification, in which case nothing has been
// applied.
func (p *Processor) ApplyBlock(ctx context.Context, st *ledger.State, subs []Submission) ([]Result, error) {
	pre := make([]*proofResult, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, sub := range subs {
		sp := spendOf(sub.Op)
		if sp == nil || p.validateShape(sp) != nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pre[i] = &proofResult{err: p.verifier.VerifySpend(sp)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, len(subs))
	for i, sub := range subs {
		rcpt, err := p.process(st, sub.Origin, sub.Op, pre[i])
		results[i] = Result{Receipt: rcpt, Err: err}
	}
	p.log.Debug().Int("ops", len(subs)).Str("root", st.Root().String()).Msg("applied block")
	return results, nil
}

func spendOf(op types.Operation) *types.Spend {
	switch tx := op.(type) {
	case *types.PrivateTransfer:
		return tx.Spend()
	case *types.Reclaim:
		return tx.Spend()
	}
	return nil
}
