package validation

import (
	"fmt"
	"math"

	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

func checkSize(c *Context) error {
	if c.Size > MaxTxSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrTxTooLarge, c.Size, MaxTxSize)
	}
	return nil
}

func checkDuplicateInputs(c *Context) error {
	seen := make(map[types.Outpoint]struct{}, len(c.Tx.Body().Inputs))
	for i, in := range c.Tx.Body().Inputs {
		if _, dup := seen[in.PrevOut]; dup {
			return fmt.Errorf("%w: input %d spends %s", ErrDuplicateInput, i, in.PrevOut)
		}
		seen[in.PrevOut] = struct{}{}
	}
	return nil
}

func checkInputsExist(c *Context) error {
	ins := c.Tx.Body().Inputs
	c.Inputs = make([]tx.Output, len(ins))
	for i, in := range ins {
		out, ok := c.View.UTXO(in.PrevOut)
		if !ok {
			return fmt.Errorf("%w: input %d spends %s", ErrNonexistentUTXO, i, in.PrevOut)
		}
		c.Inputs[i] = out
	}
	return nil
}

func checkOutputOverflow(c *Context) error {
	sum, err := tx.SumOutputs(c.Tx.Body().Outputs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputOverflow, err)
	}
	c.OutputSum = sum
	return nil
}

func checkSums(c *Context) error {
	var sum uint64
	for _, in := range c.Inputs {
		if sum > math.MaxUint64-in.Amount() {
			return fmt.Errorf("%w: input values overflow", ErrOutputOverflow)
		}
		sum += in.Amount()
	}
	c.InputSum = sum
	if sum < c.OutputSum {
		return fmt.Errorf("%w: inputs %d, outputs %d", ErrInsufficientInputs, sum, c.OutputSum)
	}
	return nil
}

func checkSignatureCount(c *Context) error {
	if len(c.Signatures) != len(c.Tx.Body().Inputs) {
		return fmt.Errorf("%w: %d inputs, %d signatures",
			ErrSignatureCount, len(c.Tx.Body().Inputs), len(c.Signatures))
	}
	return nil
}

// checkSignatures verifies each signature against the owner of the
// output it spends. Fee outputs carry no owner.
func checkSignatures(c *Context) error {
	for i, out := range c.Inputs {
		sig := c.Signatures[i]
		switch o := out.(type) {
		case *tx.TransferOutput:
			if !crypto.VerifySignature(c.Hash[:], sig, o.Receiver) {
				return fmt.Errorf("%w: input %d", ErrBadSignature, i)
			}
		case *tx.XpeerFeeOutput:
		case *tx.XpeerOutput:
			if err := checkExchangeSpend(c, o, sig); err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
		default:
			return fmt.Errorf("%w: input %d is %T", ErrUnknownOutputType, i, out)
		}
	}
	return nil
}

// checkOutputs validates each output's shape. Fee outputs are allowed
// only when allowFee is set.
func checkOutputs(allowFee bool) func(*Context) error {
	return func(c *Context) error {
		for i, out := range c.Tx.Body().Outputs {
			switch o := out.(type) {
			case *tx.TransferOutput:
				if !o.Receiver.Valid() {
					return fmt.Errorf("%w: output %d", ErrBadReceiver, i)
				}
			case *tx.XpeerOutput:
				if !o.Receiver.Valid() {
					return fmt.Errorf("%w: output %d", ErrBadReceiver, i)
				}
				if !o.Sender.Valid() {
					return fmt.Errorf("%w: output %d", ErrBadSender, i)
				}
				if _, ok := c.View.MatchedOffer(o.Exchange); !ok {
					return fmt.Errorf("%w: output %d references %s", ErrExchangeNotMatched, i, o.Exchange)
				}
			case *tx.XpeerFeeOutput:
				if !allowFee {
					return fmt.Errorf("%w: output %d", ErrFeeOutputNotAllowed, i)
				}
			default:
				return fmt.Errorf("%w: output %d is %T", ErrUnknownOutputType, i, out)
			}
		}
		return nil
	}
}

func checkNoFeeInputs(c *Context) error {
	for i, out := range c.Inputs {
		if _, ok := out.(*tx.XpeerFeeOutput); ok {
			return fmt.Errorf("%w: input %d", ErrFeeInputNotAllowed, i)
		}
	}
	return nil
}
