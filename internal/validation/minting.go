package validation

import (
	"fmt"
	"math"

	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/pkg/tx"
)

func checkMintingInBlock(c *Context) error {
	if c.Block == nil {
		return ErrMintingOutsideBlock
	}
	return nil
}

func checkMintingNoInputs(c *Context) error {
	if n := len(c.Tx.Body().Inputs); n != 0 {
		return fmt.Errorf("%w: %d", ErrMintingHasInputs, n)
	}
	if n := len(c.Signatures); n != 0 {
		return fmt.Errorf("%w: %d", ErrMintingHasSignatures, n)
	}
	return nil
}

func checkMintingOutputs(c *Context) error {
	for i, out := range c.Tx.Body().Outputs {
		o, ok := out.(*tx.TransferOutput)
		if !ok {
			return fmt.Errorf("%w: minting output %d is %s", ErrUnknownOutputType, i, out.Tag())
		}
		if !o.Receiver.Valid() {
			return fmt.Errorf("%w: output %d", ErrBadReceiver, i)
		}
	}
	return nil
}

func checkMintingHeight(c *Context) error {
	m := c.Tx.(*tx.MintingTx)
	if m.Height != c.Block.Height {
		return fmt.Errorf("%w: minting %d, block %d", ErrMintingHeight, m.Height, c.Block.Height)
	}
	return nil
}

func checkMintingValue(c *Context) error {
	reward := consensus.MintingValue(c.Block.Height)
	allowed := reward + c.Block.Fees
	if allowed < reward {
		allowed = math.MaxUint64
	}
	if c.OutputSum > allowed {
		return fmt.Errorf("%w: minted %d, allowed %d", ErrMintingValue, c.OutputSum, allowed)
	}
	return nil
}
