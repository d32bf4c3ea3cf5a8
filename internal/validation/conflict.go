package validation

import (
	"fmt"

	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// ExchangeClaims records the exchanges touched by the transactions of one
// block. Every transaction of a block is validated against the state before
// the block, so at most one Offer, Match, Confirmation or UnlockingDeposit
// may change a given exchange, and an exchange output may not be spent in
// the block that changes its exchange.
type ExchangeClaims struct {
	changed map[types.Hash]struct{}
	spent   map[types.Hash]struct{}
}

// NewExchangeClaims returns an empty claim set.
func NewExchangeClaims() *ExchangeClaims {
	return &ExchangeClaims{
		changed: make(map[types.Hash]struct{}),
		spent:   make(map[types.Hash]struct{}),
	}
}

// Check returns ErrExchangeConflict if stx touches an exchange already
// claimed. It does not record stx.
func (c *ExchangeClaims) Check(view ledger.View, stx *tx.Signed) error {
	if ex, ok := tx.Exchange(stx.Tx); ok {
		if _, dup := c.changed[ex]; dup {
			return fmt.Errorf("%w: exchange %s changed twice", ErrExchangeConflict, ex.Short())
		}
		if _, dup := c.spent[ex]; dup {
			return fmt.Errorf("%w: exchange %s changed after its output was spent", ErrExchangeConflict, ex.Short())
		}
	}
	for _, ex := range spentExchanges(view, stx) {
		if _, dup := c.changed[ex]; dup {
			return fmt.Errorf("%w: output of exchange %s spent after it changed", ErrExchangeConflict, ex.Short())
		}
	}
	return nil
}

// Add records the exchanges stx touches.
func (c *ExchangeClaims) Add(view ledger.View, stx *tx.Signed) {
	if ex, ok := tx.Exchange(stx.Tx); ok {
		c.changed[ex] = struct{}{}
	}
	for _, ex := range spentExchanges(view, stx) {
		c.spent[ex] = struct{}{}
	}
}

// Claim is Check followed by Add.
func (c *ExchangeClaims) Claim(view ledger.View, stx *tx.Signed) error {
	if err := c.Check(view, stx); err != nil {
		return err
	}
	c.Add(view, stx)
	return nil
}

// spentExchanges lists the exchanges of the XpeerExchange outputs stx spends.
func spentExchanges(view ledger.View, stx *tx.Signed) []types.Hash {
	var out []types.Hash
	for _, op := range tx.Outpoints(stx.Tx) {
		utxo, ok := view.UTXO(op)
		if !ok {
			continue
		}
		if xo, ok := utxo.(*tx.XpeerOutput); ok {
			out = append(out, xo.Exchange)
		}
	}
	return out
}
