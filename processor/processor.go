// Package processor is the shielded pool state machine. Every operation runs
// Received -> Validated -> ProofChecked -> Applied and either reaches Applied
// or leaves the ledger and the host balances exactly as they were.
package processor

import (
	"fmt"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/kysee/mantapay/circuit"
	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/types"
	"github.com/rs/zerolog"
)

// HostLedger is the authority over public balances.
type HostLedger interface {
	Debit(account types.Account, asset types.AssetID, amount uint64) error
	Credit(account types.Account, asset types.AssetID, amount uint64) error
}

// ProofVerifier checks the proof of a spend. Implementations must be pure
// and safe for concurrent use.
type ProofVerifier interface {
	VerifySpend(sp *types.Spend) error
}

type Config struct {
	MaxInputs  int
	MaxOutputs int
}

type marker interface{ Mark(n int64) }

type meters struct {
	applied  marker
	rejected marker
}

func newMeters(action uint8) meters {
	name := types.ActionName(action)
	return meters{
		applied:  metrics.NewRegisteredMeter("mantapay/"+name+"/applied", nil),
		rejected: metrics.NewRegisteredMeter("mantapay/"+name+"/rejected", nil),
	}
}

var opMeters = map[uint8]meters{
	types.ActionMint:            newMeters(types.ActionMint),
	types.ActionPrivateTransfer: newMeters(types.ActionPrivateTransfer),
	types.ActionReclaim:         newMeters(types.ActionReclaim),
}

// Receipt describes an applied operation.
type Receipt struct {
	Action uint8
	Root   types.Root
	Events []types.Event
}

// Processor holds no ledger state of its own: the state is passed to every
// call, and callers must not run two calls on the same state concurrently.
type Processor struct {
	verifier ProofVerifier
	host     HostLedger
	cfg      Config
	log      zerolog.Logger
}

func New(v ProofVerifier, host HostLedger, cfg Config, log zerolog.Logger) *Processor {
	return &Processor{
		verifier: v,
		host:     host,
		cfg:      cfg,
		log:      log.With().Str("module", "processor").Logger(),
	}
}

// ProcessBytes decodes an encoded operation and processes it.
func (p *Processor) ProcessBytes(st *ledger.State, origin types.Account, data []byte) (*Receipt, error) {
	op, err := types.DecodeOperation(data)
	if err != nil {
		p.log.Info().Err(err).Str("kind", types.ErrorKind(err)).Msg("undecodable operation")
		return nil, &OpError{Op: "decode", Stage: Received, Err: err}
	}
	return p.Process(st, origin, op)
}

// Process runs one operation to completion. On failure the returned error is
// an *OpError and nothing was changed.
func (p *Processor) Process(st *ledger.State, origin types.Account, op types.Operation) (*Receipt, error) {
	return p.process(st, origin, op, nil)
}

func (p *Processor) process(st *ledger.State, origin types.Account, op types.Operation, pre *proofResult) (*Receipt, error) {
	var (
		rcpt *Receipt
		err  error
	)
	switch tx := op.(type) {
	case *types.Mint:
		rcpt, err = p.mint(st, origin, tx)
	case *types.PrivateTransfer:
		rcpt, err = p.spend(st, origin, tx.Spend(), pre)
	case *types.Reclaim:
		rcpt, err = p.spend(st, origin, tx.Spend(), pre)
	default:
		err = opError(0, Received, fmt.Errorf("%w: unknown operation %T", types.ErrMalformedEncoding, op))
	}

	m, ok := opMeters[actionOf(op)]
	if err != nil {
		if ok {
			m.rejected.Mark(1)
		}
		ev := p.log.Info().Err(err).Str("kind", types.ErrorKind(err)).Str("origin", origin.String())
		if oe, isOp := err.(*OpError); isOp {
			ev = ev.Str("op", oe.Op).Stringer("stage", oe.Stage)
		}
		ev.Msg("operation rejected")
		return nil, err
	}
	if ok {
		m.applied.Mark(1)
	}
	p.log.Debug().
		Str("op", types.ActionName(rcpt.Action)).
		Str("origin", origin.String()).
		Str("root", rcpt.Root.String()).
		Msg("operation applied")
	return rcpt, nil
}

func actionOf(op types.Operation) uint8 {
	if op == nil {
		return 0
	}
	return op.Action()
}

func (p *Processor) mint(st *ledger.State, origin types.Account, tx *types.Mint) (*Receipt, error) {
	fail := func(stage Stage, err error) (*Receipt, error) {
		return nil, opError(types.ActionMint, stage, err)
	}

	// Received -> Validated
	if tx.Amount == 0 {
		return fail(Received, types.ErrAmountZero)
	}
	if !tx.Data.K.Valid() || !tx.Data.S.Valid() || !tx.Data.Commitment.Valid() {
		return fail(Received, fmt.Errorf("%w: mint data is not canonical", types.ErrMalformedEncoding))
	}
	if !tx.Data.Opens(tx.Asset, tx.Amount) {
		return fail(Received, fmt.Errorf("%w: commitment does not open to the minted value", types.ErrMalformedEncoding))
	}
	cs := &ledger.Changeset{
		Asset:   tx.Asset,
		Leaves:  []ledger.Leaf{{Commitment: tx.Data.Commitment}},
		Deposit: tx.Amount,
	}
	if err := st.Check(cs); err != nil {
		return fail(Received, err)
	}

	// Validated -> ProofChecked: a mint carries no proof, its value is public.
	// ProofChecked -> Applied: the deposit must be debited first.
	if err := p.host.Debit(origin, tx.Asset, tx.Amount); err != nil {
		return fail(ProofChecked, err)
	}
	root, err := st.Apply(cs)
	if err != nil {
		if cerr := p.host.Credit(origin, tx.Asset, tx.Amount); cerr != nil {
			p.log.Error().Err(cerr).Msg("refund of failed mint")
		}
		return fail(ProofChecked, err)
	}
	return &Receipt{
		Action: types.ActionMint,
		Root:   root,
		Events: []types.Event{{
			Kind:        types.EventMinted,
			Asset:       tx.Asset,
			From:        origin,
			Amount:      tx.Amount,
			Commitments: []types.Commitment{tx.Data.Commitment},
			Root:        root,
		}},
	}, nil
}

// validateShape checks everything about a spend that needs no ledger state.
func (p *Processor) validateShape(sp *types.Spend) error {
	if err := circuit.CheckShape(sp.Shape(), p.cfg.MaxInputs, p.cfg.MaxOutputs); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedEncoding, err)
	}
	if len(sp.Proof) == 0 || len(sp.Proof) > types.MaxProofSize {
		return fmt.Errorf("%w: proof length %d", types.ErrMalformedEncoding, len(sp.Proof))
	}
	for i := range sp.Senders {
		if !sp.Senders[i].Root.Valid() || !sp.Senders[i].Nullifier.Valid() {
			return fmt.Errorf("%w: sender %d is not canonical", types.ErrMalformedEncoding, i)
		}
	}
	for j := range sp.Receivers {
		if !sp.Receivers[j].Commitment.Valid() {
			return fmt.Errorf("%w: receiver %d is not canonical", types.ErrMalformedEncoding, j)
		}
	}
	if sp.Kind == types.KindReclaim && sp.PublicValue == 0 {
		return types.ErrAmountZero
	}
	return nil
}

func (p *Processor) spend(st *ledger.State, origin types.Account, sp *types.Spend, pre *proofResult) (*Receipt, error) {
	action := types.ActionPrivateTransfer
	if sp.Kind == types.KindReclaim {
		action = types.ActionReclaim
	}
	fail := func(stage Stage, err error) (*Receipt, error) {
		return nil, opError(action, stage, err)
	}

	// Received -> Validated
	if err := p.validateShape(sp); err != nil {
		return fail(Received, err)
	}
	nullifiers := sp.Nullifiers()
	seen := make(map[types.Nullifier]struct{}, len(nullifiers))
	for _, nf := range nullifiers {
		if _, dup := seen[nf]; dup {
			return fail(Received, fmt.Errorf("%w: %s repeated in operation", types.ErrDoubleSpend, nf))
		}
		seen[nf] = struct{}{}
	}
	// A replay is a double spend even after its root has left the window.
	for _, nf := range nullifiers {
		if st.IsSpent(nf) {
			return fail(Received, fmt.Errorf("%w: %s already spent", types.ErrDoubleSpend, nf))
		}
	}
	for i := range sp.Senders {
		if !st.ContainsRoot(sp.Senders[i].Root) {
			return fail(Received, fmt.Errorf("%w: sender %d root %s", types.ErrStaleRoot, i, sp.Senders[i].Root))
		}
	}
	cs := &ledger.Changeset{Asset: sp.Asset, Nullifiers: nullifiers}
	for j := range sp.Receivers {
		cs.Leaves = append(cs.Leaves, ledger.Leaf{
			Commitment: sp.Receivers[j].Commitment,
			Ciphertext: &sp.Receivers[j].Ciphertext,
		})
	}
	if sp.Kind == types.KindReclaim {
		cs.Withdraw = sp.PublicValue
	}
	if err := st.Check(cs); err != nil {
		return fail(Received, err)
	}

	// Validated -> ProofChecked
	var err error
	if pre != nil {
		err = pre.err
	} else {
		err = p.verifier.VerifySpend(sp)
	}
	if err != nil {
		return fail(Validated, err)
	}

	// ProofChecked -> Applied
	if sp.Kind == types.KindReclaim {
		if err := p.host.Credit(origin, sp.Asset, sp.PublicValue); err != nil {
			return fail(ProofChecked, err)
		}
	}
	root, err := st.Apply(cs)
	if err != nil {
		if sp.Kind == types.KindReclaim {
			if derr := p.host.Debit(origin, sp.Asset, sp.PublicValue); derr != nil {
				p.log.Error().Err(derr).Msg("revert of failed reclaim credit")
			}
		}
		return fail(ProofChecked, err)
	}

	ev := types.Event{
		Kind:        types.EventPrivateTransferred,
		Asset:       sp.Asset,
		Nullifiers:  nullifiers,
		Commitments: sp.Commitments(),
		Root:        root,
	}
	if sp.Kind == types.KindReclaim {
		ev.Kind = types.EventReclaimed
		ev.To = origin
		ev.Amount = sp.PublicValue
	}
	return &Receipt{Action: action, Root: root, Events: []types.Event{ev}}, nil
}
