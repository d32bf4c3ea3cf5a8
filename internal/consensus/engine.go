// Package consensus holds the proof-of-work rules: difficulty schedule,
// header hash check, minting schedule and nonce search.
package consensus

import (
	"context"

	"github.com/xpeer-network/chasm/pkg/block"
)

// Engine verifies and seals block headers.
type Engine interface {
	VerifyHeader(header *block.Header) error
	Seal(ctx context.Context, blk *block.Block) error
}
