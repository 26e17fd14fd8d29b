package types

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// PayloadPrefix tags every encoded operation.
const PayloadPrefix = "MANTAPAY1"

type envelopeRLP struct {
	Action uint8
	Body   []byte
}

type mintRLP struct {
	Asset  uint32
	Amount uint64
	Data   []byte
}

type spendRLP struct {
	Asset     uint32
	Amount    uint64
	Senders   [][]byte
	Receivers [][]byte
	Proof     []byte
}

func EncodeOperation(op Operation) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	switch tx := op.(type) {
	case *Mint:
		body, err = rlp.EncodeToBytes(&mintRLP{
			Asset:  uint32(tx.Asset),
			Amount: tx.Amount,
			Data:   tx.Data.Bytes(),
		})
	case *PrivateTransfer:
		body, err = encodeSpend(tx.Spend())
	case *Reclaim:
		body, err = encodeSpend(tx.Spend())
	default:
		return nil, fmt.Errorf("%w: unknown operation %T", ErrMalformedEncoding, op)
	}
	if err != nil {
		return nil, err
	}
	inner, err := rlp.EncodeToBytes(&envelopeRLP{Action: op.Action(), Body: body})
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(PayloadPrefix)+len(inner))
	copy(out, PayloadPrefix)
	copy(out[len(PayloadPrefix):], inner)
	return out, nil
}

func encodeSpend(sp *Spend) ([]byte, error) {
	raw := spendRLP{
		Asset:     uint32(sp.Asset),
		Amount:    sp.PublicValue,
		Senders:   make([][]byte, len(sp.Senders)),
		Receivers: make([][]byte, len(sp.Receivers)),
		Proof:     common.CopyBytes(sp.Proof),
	}
	for i := range sp.Senders {
		raw.Senders[i] = sp.Senders[i].Bytes()
	}
	for i := range sp.Receivers {
		raw.Receivers[i] = sp.Receivers[i].Bytes()
	}
	return rlp.EncodeToBytes(&raw)
}

// DecodeOperation parses an envelope produced by EncodeOperation. Every
// layout violation is reported as ErrMalformedEncoding.
func DecodeOperation(data []byte) (Operation, error) {
	if len(data) <= len(PayloadPrefix) || !bytes.Equal(data[:len(PayloadPrefix)], []byte(PayloadPrefix)) {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrMalformedEncoding, PayloadPrefix)
	}
	var env envelopeRLP
	if err := rlp.DecodeBytes(data[len(PayloadPrefix):], &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedEncoding, err)
	}
	switch env.Action {
	case ActionMint:
		return decodeMint(env.Body)
	case ActionPrivateTransfer:
		raw, senders, receivers, err := decodeSpend(env.Body)
		if err != nil {
			return nil, err
		}
		if raw.Amount != 0 {
			return nil, fmt.Errorf("%w: transfer carries a public amount", ErrMalformedEncoding)
		}
		return &PrivateTransfer{
			Asset:     AssetID(raw.Asset),
			Senders:   senders,
			Receivers: receivers,
			Proof:     raw.Proof,
		}, nil
	case ActionReclaim:
		raw, senders, receivers, err := decodeSpend(env.Body)
		if err != nil {
			return nil, err
		}
		return &Reclaim{
			Asset:     AssetID(raw.Asset),
			Amount:    raw.Amount,
			Senders:   senders,
			Receivers: receivers,
			Proof:     raw.Proof,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %#x", ErrMalformedEncoding, env.Action)
}

func decodeMint(body []byte) (*Mint, error) {
	var raw mintRLP
	if err := rlp.DecodeBytes(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: mint body: %v", ErrMalformedEncoding, err)
	}
	md, err := DecodeMintData(raw.Data)
	if err != nil {
		return nil, err
	}
	return &Mint{Asset: AssetID(raw.Asset), Amount: raw.Amount, Data: *md}, nil
}

func decodeSpend(body []byte) (*spendRLP, []SenderData, []ReceiverData, error) {
	var raw spendRLP
	if err := rlp.DecodeBytes(body, &raw); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: spend body: %v", ErrMalformedEncoding, err)
	}
	if len(raw.Proof) == 0 || len(raw.Proof) > MaxProofSize {
		return nil, nil, nil, fmt.Errorf("%w: proof length %d", ErrMalformedEncoding, len(raw.Proof))
	}
	senders := make([]SenderData, len(raw.Senders))
	for i, bz := range raw.Senders {
		sd, err := DecodeSenderData(bz)
		if err != nil {
			return nil, nil, nil, err
		}
		senders[i] = *sd
	}
	receivers := make([]ReceiverData, len(raw.Receivers))
	for i, bz := range raw.Receivers {
		rd, err := DecodeReceiverData(bz)
		if err != nil {
			return nil, nil, nil, err
		}
		receivers[i] = *rd
	}
	return &raw, senders, receivers, nil
}
