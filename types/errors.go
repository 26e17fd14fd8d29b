package types

import "errors"

var (
	// ErrMalformedEncoding rejects a submission whose byte layout does not
	// match the canonical codec, before any semantic check runs.
	ErrMalformedEncoding = errors.New("mantapay: malformed encoding")

	// ErrAccumulatorFull indicates the commitment tree has no free leaf slot.
	ErrAccumulatorFull = errors.New("mantapay: accumulator full")

	// ErrDoubleSpend indicates a spend tag that was already consumed, or
	// repeated inside one operation.
	ErrDoubleSpend = errors.New("mantapay: double spend")

	// ErrProofInvalid indicates a proof that does not verify against the
	// assembled public inputs and the registered verifying key.
	ErrProofInvalid = errors.New("mantapay: proof invalid")

	// ErrStaleRoot indicates a referenced root outside the retained window.
	ErrStaleRoot = errors.New("mantapay: stale root")

	// ErrAmountZero rejects public value movements of nothing.
	ErrAmountZero = errors.New("mantapay: amount is zero")
)

// ErrorKind names the core error kind carried by err, or "" when err is not
// one of them. Hosts surface this string to submitters.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedEncoding):
		return "MalformedEncoding"
	case errors.Is(err, ErrAccumulatorFull):
		return "AccumulatorFull"
	case errors.Is(err, ErrDoubleSpend):
		return "DoubleSpend"
	case errors.Is(err, ErrProofInvalid):
		return "ProofInvalid"
	case errors.Is(err, ErrStaleRoot):
		return "StaleRoot"
	}
	return ""
}
