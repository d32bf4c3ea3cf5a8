package tx

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Encoding errors.
var (
	ErrUnknownTag    = errors.New("unknown type tag")
	ErrUnexpectedTag = errors.New("unexpected type tag")
)

type envelope struct {
	Tag     uint8
	Payload []byte
}

// Wrap encodes payload with RLP and frames it as [tag, payload].
func Wrap(tag Tag, payload interface{}) ([]byte, error) {
	body, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	return rlp.EncodeToBytes(envelope{Tag: uint8(tag), Payload: body})
}

// Unwrap splits a framed encoding into its tag and payload.
func Unwrap(data []byte) (Tag, []byte, error) {
	var env envelope
	if err := rlp.DecodeBytes(data, &env); err != nil {
		return 0, nil, fmt.Errorf("decode envelope: %w", err)
	}
	return Tag(env.Tag), env.Payload, nil
}

func unwrapAs(data []byte, want Tag, payload interface{}) error {
	tag, body, err := Unwrap(data)
	if err != nil {
		return err
	}
	if tag != want {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedTag, tag, want)
	}
	if err := rlp.DecodeBytes(body, payload); err != nil {
		return fmt.Errorf("decode %s: %w", want, err)
	}
	return nil
}

// mustEncode is used where the payload only holds RLP-supported kinds.
func mustEncode(b []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return b
}

type inputWire struct {
	TxID  types.Hash
	Index uint32
}

type transferOutputWire struct {
	Value    uint64
	Receiver []byte
}

type xpeerOutputWire struct {
	Value    uint64
	Receiver []byte
	Sender   []byte
	Exchange types.Hash
}

type feeOutputWire struct {
	Value uint64
}

type transferWire struct {
	Inputs  [][]byte
	Outputs [][]byte
}

type mintingWire struct {
	Outputs [][]byte
	Height  uint64
}

type offerWire struct {
	Inputs               [][]byte
	Outputs              [][]byte
	TokenIn              uint8
	TokenOut             uint8
	ValueIn              uint64
	ValueOut             uint64
	AddressOut           []byte
	Timeout              uint64
	DepositIndex         uint32
	ConfirmationFeeIndex uint32
}

type matchWire struct {
	Inputs               [][]byte
	Outputs              [][]byte
	Exchange             types.Hash
	AddressIn            []byte
	DepositIndex         uint32
	ConfirmationFeeIndex uint32
}

type confirmationWire struct {
	Inputs     [][]byte
	Outputs    [][]byte
	Exchange   types.Hash
	TxInProof  []byte
	TxOutProof []byte
}

type unlockWire struct {
	Inputs       [][]byte
	Outputs      [][]byte
	Exchange     types.Hash
	ProofSide    uint8
	TxProof      []byte
	DepositIndex uint32
}

type signedWire struct {
	Transaction []byte
	Signatures  [][]byte
}

// EncodeInput encodes a TxInput.
func EncodeInput(in Input) ([]byte, error) {
	return Wrap(TagInput, inputWire{TxID: in.PrevOut.TxID, Index: in.PrevOut.Index})
}

// DecodeInput decodes a TxInput.
func DecodeInput(data []byte) (Input, error) {
	var w inputWire
	if err := unwrapAs(data, TagInput, &w); err != nil {
		return Input{}, err
	}
	return Input{PrevOut: types.Outpoint{TxID: w.TxID, Index: w.Index}}, nil
}

// EncodeOutput encodes any output variant.
func EncodeOutput(o Output) ([]byte, error) {
	switch v := o.(type) {
	case *TransferOutput:
		return Wrap(TagTransferOutput, transferOutputWire{Value: v.Value, Receiver: v.Receiver})
	case *XpeerOutput:
		return Wrap(TagXpeerOutput, xpeerOutputWire{
			Value: v.Value, Receiver: v.Receiver, Sender: v.Sender, Exchange: v.Exchange,
		})
	case *XpeerFeeOutput:
		return Wrap(TagXpeerFeeOutput, feeOutputWire{Value: v.Value})
	default:
		return nil, fmt.Errorf("%w: output %T", ErrUnknownTag, o)
	}
}

// DecodeOutput decodes any output variant.
func DecodeOutput(data []byte) (Output, error) {
	tag, body, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagTransferOutput:
		var w transferOutputWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return &TransferOutput{Value: w.Value, Receiver: w.Receiver}, nil
	case TagXpeerOutput:
		var w xpeerOutputWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return &XpeerOutput{Value: w.Value, Receiver: w.Receiver, Sender: w.Sender, Exchange: w.Exchange}, nil
	case TagXpeerFeeOutput:
		var w feeOutputWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		return &XpeerFeeOutput{Value: w.Value}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not an output", ErrUnexpectedTag, tag)
	}
}

func encodeInputs(ins []Input) ([][]byte, error) {
	out := make([][]byte, len(ins))
	for i, in := range ins {
		b, err := EncodeInput(in)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func decodeInputs(raw [][]byte) ([]Input, error) {
	ins := make([]Input, len(raw))
	for i, b := range raw {
		in, err := DecodeInput(b)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		ins[i] = in
	}
	return ins, nil
}

func encodeOutputs(outs []Output) ([][]byte, error) {
	raw := make([][]byte, len(outs))
	for i, o := range outs {
		b, err := EncodeOutput(o)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return raw, nil
}

func decodeOutputs(raw [][]byte) ([]Output, error) {
	outs := make([]Output, len(raw))
	for i, b := range raw {
		o, err := DecodeOutput(b)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		outs[i] = o
	}
	return outs, nil
}

// Encode encodes any transaction variant.
func Encode(t Transaction) ([]byte, error) {
	body := t.Body()
	ins, err := encodeInputs(body.Inputs)
	if err != nil {
		return nil, err
	}
	outs, err := encodeOutputs(body.Outputs)
	if err != nil {
		return nil, err
	}

	switch v := t.(type) {
	case *TransferTx:
		return Wrap(TagTransfer, transferWire{Inputs: ins, Outputs: outs})
	case *MintingTx:
		return Wrap(TagMinting, mintingWire{Outputs: outs, Height: v.Height})
	case *OfferTx:
		return Wrap(TagOffer, offerWire{
			Inputs:               ins,
			Outputs:              outs,
			TokenIn:              uint8(v.TokenIn),
			TokenOut:             uint8(v.TokenOut),
			ValueIn:              v.ValueIn,
			ValueOut:             v.ValueOut,
			AddressOut:           v.AddressOut,
			Timeout:              v.Timeout,
			DepositIndex:         v.DepositIndex,
			ConfirmationFeeIndex: v.ConfirmationFeeIndex,
		})
	case *MatchTx:
		return Wrap(TagMatch, matchWire{
			Inputs:               ins,
			Outputs:              outs,
			Exchange:             v.Exchange,
			AddressIn:            v.AddressIn,
			DepositIndex:         v.DepositIndex,
			ConfirmationFeeIndex: v.ConfirmationFeeIndex,
		})
	case *ConfirmationTx:
		return Wrap(TagConfirmation, confirmationWire{
			Inputs:     ins,
			Outputs:    outs,
			Exchange:   v.Exchange,
			TxInProof:  v.TxInProof,
			TxOutProof: v.TxOutProof,
		})
	case *UnlockingDepositTx:
		return Wrap(TagUnlockingDeposit, unlockWire{
			Inputs:       ins,
			Outputs:      outs,
			Exchange:     v.Exchange,
			ProofSide:    uint8(v.ProofSide),
			TxProof:      v.TxProof,
			DepositIndex: v.DepositIndex,
		})
	default:
		return nil, fmt.Errorf("%w: transaction %T", ErrUnknownTag, t)
	}
}

// Decode decodes any transaction variant.
func Decode(data []byte) (Transaction, error) {
	tag, body, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagTransfer:
		var w transferWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		base, err := decodeBase(w.Inputs, w.Outputs)
		if err != nil {
			return nil, err
		}
		return &TransferTx{Base: base}, nil
	case TagMinting:
		var w mintingWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		outs, err := decodeOutputs(w.Outputs)
		if err != nil {
			return nil, err
		}
		return &MintingTx{Base: Base{Outputs: outs}, Height: w.Height}, nil
	case TagOffer:
		var w offerWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		base, err := decodeBase(w.Inputs, w.Outputs)
		if err != nil {
			return nil, err
		}
		return &OfferTx{
			Base:                 base,
			TokenIn:              types.Token(w.TokenIn),
			TokenOut:             types.Token(w.TokenOut),
			ValueIn:              w.ValueIn,
			ValueOut:             w.ValueOut,
			AddressOut:           w.AddressOut,
			Timeout:              w.Timeout,
			DepositIndex:         w.DepositIndex,
			ConfirmationFeeIndex: w.ConfirmationFeeIndex,
		}, nil
	case TagMatch:
		var w matchWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		base, err := decodeBase(w.Inputs, w.Outputs)
		if err != nil {
			return nil, err
		}
		return &MatchTx{
			Base:                 base,
			Exchange:             w.Exchange,
			AddressIn:            w.AddressIn,
			DepositIndex:         w.DepositIndex,
			ConfirmationFeeIndex: w.ConfirmationFeeIndex,
		}, nil
	case TagConfirmation:
		var w confirmationWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		base, err := decodeBase(w.Inputs, w.Outputs)
		if err != nil {
			return nil, err
		}
		return &ConfirmationTx{
			Base:       base,
			Exchange:   w.Exchange,
			TxInProof:  w.TxInProof,
			TxOutProof: w.TxOutProof,
		}, nil
	case TagUnlockingDeposit:
		var w unlockWire
		if err := rlp.DecodeBytes(body, &w); err != nil {
			return nil, fmt.Errorf("decode %s: %w", tag, err)
		}
		base, err := decodeBase(w.Inputs, w.Outputs)
		if err != nil {
			return nil, err
		}
		return &UnlockingDepositTx{
			Base:         base,
			Exchange:     w.Exchange,
			ProofSide:    Side(w.ProofSide),
			TxProof:      w.TxProof,
			DepositIndex: w.DepositIndex,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a transaction", ErrUnexpectedTag, tag)
	}
}

func decodeBase(rawIns, rawOuts [][]byte) (Base, error) {
	ins, err := decodeInputs(rawIns)
	if err != nil {
		return Base{}, err
	}
	outs, err := decodeOutputs(rawOuts)
	if err != nil {
		return Base{}, err
	}
	return Base{Inputs: ins, Outputs: outs}, nil
}

// EncodeSigned encodes a SignedTransaction. The wrapped transaction is
// nested in its own tagged encoding.
func EncodeSigned(s *Signed) ([]byte, error) {
	inner, err := Encode(s.Tx)
	if err != nil {
		return nil, err
	}
	sigs := s.Signatures
	if sigs == nil {
		sigs = [][]byte{}
	}
	return Wrap(TagSigned, signedWire{Transaction: inner, Signatures: sigs})
}

// DecodeSigned decodes a SignedTransaction.
func DecodeSigned(data []byte) (*Signed, error) {
	var w signedWire
	if err := unwrapAs(data, TagSigned, &w); err != nil {
		return nil, err
	}
	inner, err := Decode(w.Transaction)
	if err != nil {
		return nil, fmt.Errorf("signed transaction: %w", err)
	}
	return &Signed{Tx: inner, Signatures: w.Signatures}, nil
}
