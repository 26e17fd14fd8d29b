package processor

import (
	"fmt"

	"github.com/kysee/mantapay/types"
)

// Stage is the last state-machine stage an operation reached.
type Stage uint8

const (
	Received Stage = iota
	Validated
	ProofChecked
	Applied
)

func (s Stage) String() string {
	switch s {
	case Received:
		return "Received"
	case Validated:
		return "Validated"
	case ProofChecked:
		return "ProofChecked"
	case Applied:
		return "Applied"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// OpError reports a rejected operation and the stage it had reached. Nothing
// was persisted for it.
type OpError struct {
	Op    string
	Stage Stage
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s rejected at %s: %v", e.Op, e.Stage, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opError(action uint8, stage Stage, err error) *OpError {
	return &OpError{Op: types.ActionName(action), Stage: stage, Err: err}
}
