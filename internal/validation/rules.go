package validation

import (
	"fmt"
	"time"

	"github.com/xpeer-network/chasm/internal/ledger"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// MaxTxSize is the largest accepted encoded transaction, in bytes.
const MaxTxSize = 1 << 20

// Context carries a transaction through its rule set. Rules that resolve
// state record it here for later rules.
type Context struct {
	Tx         tx.Transaction
	Signatures [][]byte
	Hash       types.Hash
	Size       int
	View       ledger.View
	Now        time.Time
	Proofs     ProofVerifier

	// Set by the inputsExist and sums rules.
	Inputs    []tx.Output
	InputSum  uint64
	OutputSum uint64

	// Block is nil outside block validation.
	Block *BlockContext
}

// BlockContext is the block a transaction is validated in.
type BlockContext struct {
	Height uint64
	Fees   uint64
}

// Fee returns inputs minus outputs. Valid after the sums rule.
func (c *Context) Fee() uint64 {
	return c.InputSum - c.OutputSum
}

// Rule is one named check.
type Rule struct {
	Name  string
	Check func(*Context) error
}

// RuleSet is an ordered list of rules.
type RuleSet []Rule

// Run applies the rules in order and stops at the first failure.
func (rs RuleSet) Run(ctx *Context) error {
	for _, r := range rs {
		if err := r.Check(ctx); err != nil {
			return fmt.Errorf("tx %s: %s: %w", ctx.Hash.Short(), r.Name, err)
		}
	}
	return nil
}

func rules(base []Rule, extra ...Rule) RuleSet {
	out := make(RuleSet, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// commonRules apply to every signed variant.
var commonRules = []Rule{
	{"size", checkSize},
	{"duplicate inputs", checkDuplicateInputs},
	{"inputs exist", checkInputsExist},
	{"output overflow", checkOutputOverflow},
	{"sums", checkSums},
	{"signature count", checkSignatureCount},
	{"signatures", checkSignatures},
}

var (
	transferRules = rules(commonRules,
		Rule{"outputs", checkOutputs(false)},
		Rule{"fee inputs", checkNoFeeInputs},
	)

	offerRules = rules(commonRules,
		Rule{"outputs", checkOutputs(true)},
		Rule{"fee inputs", checkNoFeeInputs},
		Rule{"tokens", checkOfferTokens},
		Rule{"timeout", checkOfferTimeout},
		Rule{"offer exists", checkOfferNotActive},
		Rule{"address out", checkOfferAddress},
		Rule{"deposit", checkDeposit},
		Rule{"confirmation fee", checkConfirmationFee},
	)

	matchRules = rules(commonRules,
		Rule{"outputs", checkOutputs(true)},
		Rule{"fee inputs", checkNoFeeInputs},
		Rule{"offer active", checkMatchOffer},
		Rule{"address in", checkMatchAddress},
		Rule{"deposit", checkDeposit},
		Rule{"confirmation fee", checkConfirmationFee},
	)

	confirmationRules = rules(commonRules,
		Rule{"outputs", checkOutputs(false)},
		Rule{"exchange matched", checkConfirmationExchange},
		Rule{"fee inputs", checkOnlyFeeInputs},
		Rule{"proofs", checkConfirmationProofs},
	)

	unlockRules = rules(commonRules,
		Rule{"outputs", checkOutputs(false)},
		Rule{"fee inputs", checkNoFeeInputs},
		Rule{"deposit", checkDeposit},
		Rule{"exchange state", checkUnlock},
	)

	mintingRules = RuleSet{
		{"block context", checkMintingInBlock},
		{"size", checkSize},
		{"no inputs", checkMintingNoInputs},
		{"output overflow", checkOutputOverflow},
		{"outputs", checkMintingOutputs},
		{"height", checkMintingHeight},
		{"value", checkMintingValue},
	}
)

// RulesFor returns the rule set of a transaction variant.
func RulesFor(t tx.Transaction) (RuleSet, error) {
	switch t.(type) {
	case *tx.TransferTx:
		return transferRules, nil
	case *tx.MintingTx:
		return mintingRules, nil
	case *tx.OfferTx:
		return offerRules, nil
	case *tx.MatchTx:
		return matchRules, nil
	case *tx.ConfirmationTx:
		return confirmationRules, nil
	case *tx.UnlockingDepositTx:
		return unlockRules, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedVariant, t)
	}
}
