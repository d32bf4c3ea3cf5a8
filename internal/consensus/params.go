package consensus

import "time"

const (
	// TargetBlockTime is the intended spacing between blocks, in seconds.
	TargetBlockTime = 5

	// DifficultyInterval is the number of blocks between adjustments.
	DifficultyInterval = 10

	// MaxDifficulty is the width of a header hash in bits.
	MaxDifficulty = 256

	// InitialReward is the minting value of the first halving period.
	InitialReward uint64 = 1_000_000_000_000_000_000

	// HalvingPeriod is the number of blocks between reward halvings.
	HalvingPeriod uint64 = 1 << 16

	// ExchangeTimeout is how long after the match block the sender of an
	// exchange output may reclaim it.
	ExchangeTimeout = 14 * 24 * time.Hour
)

// MintingValue returns the block reward at height.
func MintingValue(height uint64) uint64 {
	halvings := height / HalvingPeriod
	if halvings >= 64 {
		return 0
	}
	return InitialReward >> halvings
}
