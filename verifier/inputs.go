package verifier

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/kysee/mantapay/types"
)

// PublicInputs assembles the public-input vector of a spend. The layout is
// frozen together with the circuit:
//
//	[0]                asset id
//	[1 .. n]           roots, in sender order
//	[n+1 .. 2n]        nullifiers
//	[2n+1 .. 2n+m]     output commitments
//	[2n+m+1 .. 2n+2m]  ciphertext digests
//	[2n+2m+1]          public value (0 for a private transfer)
func PublicInputs(sp *types.Spend) []fr.Element {
	n, m := len(sp.Senders), len(sp.Receivers)
	out := make([]fr.Element, 0, 2+2*n+2*m)

	out = append(out, sp.Asset.Element())
	for i := range sp.Senders {
		out = append(out, sp.Senders[i].Root.Element())
	}
	for i := range sp.Senders {
		out = append(out, sp.Senders[i].Nullifier.Element())
	}
	for j := range sp.Receivers {
		out = append(out, sp.Receivers[j].Commitment.Element())
	}
	for j := range sp.Receivers {
		out = append(out, sp.Receivers[j].Ciphertext.Digest())
	}

	var pub fr.Element
	if sp.Kind == types.KindReclaim {
		pub.SetUint64(sp.PublicValue)
	}
	return append(out, pub)
}
