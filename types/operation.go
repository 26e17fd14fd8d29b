package types

import "fmt"

const (
	ActionMint            uint8 = 0x01
	ActionPrivateTransfer uint8 = 0x02
	ActionReclaim         uint8 = 0x03
)

// Operation is one submitted Mint, PrivateTransfer or Reclaim.
type Operation interface {
	Action() uint8
}

type Mint struct {
	Asset  AssetID
	Amount uint64
	Data   MintData
}

type PrivateTransfer struct {
	Asset     AssetID
	Senders   []SenderData
	Receivers []ReceiverData
	Proof     []byte
}

// Reclaim spends shielded notes and releases Amount back to a public balance.
// Receivers hold optional change notes.
type Reclaim struct {
	Asset     AssetID
	Amount    uint64
	Senders   []SenderData
	Receivers []ReceiverData
	Proof     []byte
}

func (*Mint) Action() uint8            { return ActionMint }
func (*PrivateTransfer) Action() uint8 { return ActionPrivateTransfer }
func (*Reclaim) Action() uint8         { return ActionReclaim }

func ActionName(action uint8) string {
	switch action {
	case ActionMint:
		return "mint"
	case ActionPrivateTransfer:
		return "transfer"
	case ActionReclaim:
		return "reclaim"
	}
	return fmt.Sprintf("action(%#x)", action)
}

// Kind selects the circuit family a spend is proven with.
type Kind uint8

const (
	KindTransfer Kind = iota + 1
	KindReclaim
)

func (k Kind) String() string {
	switch k {
	case KindTransfer:
		return "transfer"
	case KindReclaim:
		return "reclaim"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Shape identifies a circuit by kind and arity. Every shape has its own
// verifying key.
type Shape struct {
	Kind    Kind
	Inputs  int
	Outputs int
}

func (s Shape) String() string {
	return fmt.Sprintf("%s-%dx%d", s.Kind, s.Inputs, s.Outputs)
}

// NumPublic is the length of the public-input vector for this shape.
func (s Shape) NumPublic() int {
	return 2 + 2*s.Inputs + 2*s.Outputs
}

// Spend is the proof carrying part shared by PrivateTransfer and Reclaim.
type Spend struct {
	Kind        Kind
	Asset       AssetID
	PublicValue uint64
	Senders     []SenderData
	Receivers   []ReceiverData
	Proof       []byte
}

func (tx *PrivateTransfer) Spend() *Spend {
	return &Spend{
		Kind:      KindTransfer,
		Asset:     tx.Asset,
		Senders:   tx.Senders,
		Receivers: tx.Receivers,
		Proof:     tx.Proof,
	}
}

func (tx *Reclaim) Spend() *Spend {
	return &Spend{
		Kind:        KindReclaim,
		Asset:       tx.Asset,
		PublicValue: tx.Amount,
		Senders:     tx.Senders,
		Receivers:   tx.Receivers,
		Proof:       tx.Proof,
	}
}

func (sp *Spend) Shape() Shape {
	return Shape{Kind: sp.Kind, Inputs: len(sp.Senders), Outputs: len(sp.Receivers)}
}

func (sp *Spend) Nullifiers() []Nullifier {
	out := make([]Nullifier, len(sp.Senders))
	for i := range sp.Senders {
		out[i] = sp.Senders[i].Nullifier
	}
	return out
}

func (sp *Spend) Commitments() []Commitment {
	out := make([]Commitment, len(sp.Receivers))
	for i := range sp.Receivers {
		out[i] = sp.Receivers[i].Commitment
	}
	return out
}
