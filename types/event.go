package types

import "fmt"

type EventKind uint8

const (
	EventIssued EventKind = iota + 1
	EventTransferred
	EventMinted
	EventPrivateTransferred
	EventReclaimed
)

func (k EventKind) String() string {
	switch k {
	case EventIssued:
		return "Issued"
	case EventTransferred:
		return "Transferred"
	case EventMinted:
		return "Minted"
	case EventPrivateTransferred:
		return "PrivateTransferred"
	case EventReclaimed:
		return "Reclaimed"
	}
	return fmt.Sprintf("Event(%d)", uint8(k))
}

// Event is emitted by every applied operation. Public fields (From, To,
// Amount) are zero for private transfers.
type Event struct {
	Kind        EventKind
	Asset       AssetID
	From        Account
	To          Account
	Amount      uint64
	Nullifiers  []Nullifier
	Commitments []Commitment
	Root        Root
}
