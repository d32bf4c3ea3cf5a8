package consensus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/types"
)

// PoW errors.
var (
	ErrInsufficientWork = errors.New("hash does not meet difficulty target")
	ErrBadDifficulty    = errors.New("block difficulty does not match expected")
	ErrDifficultyRange  = errors.New("difficulty exceeds hash width")
	ErrNonceExhausted   = errors.New("nonce space exhausted")
)

// PoW implements proof-of-work consensus. Difficulty is the number of
// leading zero bits a header hash must have. The engine holds no mutable
// state; difficulty is derived from the chain and encoded in each block.
type PoW struct {
	InitialDifficulty uint64 // Difficulty of the first block after genesis
	AdjustInterval    int    // Blocks between difficulty adjustments (0 = no adjustment)
	TargetBlockTime   int    // Target seconds between blocks

	// Threads is the number of sealing goroutines; values below 1 mean one.
	Threads int
}

// NewPoW creates a new PoW engine.
func NewPoW(difficulty uint64, adjustInterval, targetBlockTime int) (*PoW, error) {
	if difficulty > MaxDifficulty {
		return nil, fmt.Errorf("%w: %d", ErrDifficultyRange, difficulty)
	}
	return &PoW{
		InitialDifficulty: difficulty,
		AdjustInterval:    adjustInterval,
		TargetBlockTime:   targetBlockTime,
	}, nil
}

// NewDefaultPoW creates an engine with the network schedule.
func NewDefaultPoW(difficulty uint64) (*PoW, error) {
	return NewPoW(difficulty, DifficultyInterval, TargetBlockTime)
}

// ShouldAdjust returns true if difficulty should be recalculated at this height.
func (p *PoW) ShouldAdjust(height uint64) bool {
	return height > uint64(p.AdjustInterval) && p.AdjustInterval > 0 && height%uint64(p.AdjustInterval) == 0
}

// HashSatisfiesDifficulty reports whether the first difficulty bits of
// hash, most significant bit first, are zero.
func HashSatisfiesDifficulty(hash types.Hash, difficulty uint64) bool {
	if difficulty > MaxDifficulty {
		return false
	}
	full := difficulty / 8
	for i := uint64(0); i < full; i++ {
		if hash[i] != 0 {
			return false
		}
	}
	rem := difficulty % 8
	if rem == 0 {
		return true
	}
	return hash[full]>>(8-rem) == 0
}

// VerifyHeader checks that the block header hash meets the stated difficulty.
func (p *PoW) VerifyHeader(header *block.Header) error {
	if header.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d", ErrDifficultyRange, header.Difficulty)
	}
	if !HashSatisfiesDifficulty(header.Hash(), header.Difficulty) {
		return ErrInsufficientWork
	}
	return nil
}

// Seal mines the block without cancellation.
func (p *PoW) Seal(blk *block.Block) error {
	return p.SealWithCancel(context.Background(), blk)
}

// SealWithCancel searches for a nonce that makes the header hash meet the
// difficulty already set in the header. With Threads > 1 the nonce space
// is split into interleaved stripes, one goroutine per stripe. When ctx is
// cancelled the search stops and ctx.Err() is returned.
func (p *PoW) SealWithCancel(ctx context.Context, blk *block.Block) error {
	if blk == nil || blk.Header == nil {
		return fmt.Errorf("nil block or header")
	}
	if blk.Header.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d", ErrDifficultyRange, blk.Header.Difficulty)
	}

	stripes := uint64(max(p.Threads, 1))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once   sync.Once
		winner uint64
		solved bool
		wg     sync.WaitGroup
	)
	search := stripeSearch{
		prefix:     blk.Header.SealPrefix(),
		difficulty: blk.Header.Difficulty,
		stride:     stripes,
	}
	for first := uint64(0); first < stripes; first++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if nonce, ok := search.run(ctx, first); ok {
				once.Do(func() {
					winner, solved = nonce, true
					cancel()
				})
			}
		}()
	}
	wg.Wait()

	if solved {
		blk.Header.Nonce = winner
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrNonceExhausted
}

// stripeSearch scans the nonces first, first+stride, first+2*stride and so
// on for a header hash meeting difficulty.
type stripeSearch struct {
	prefix     []byte
	difficulty uint64
	stride     uint64
}

// cancelCheck is how many nonces a stripe tries between context checks.
const cancelCheck = 1 << 16

func (s stripeSearch) run(ctx context.Context, first uint64) (uint64, bool) {
	buf := make([]byte, len(s.prefix)+8)
	copy(buf, s.prefix)
	for nonce, tried := first, uint64(0); ; nonce, tried = nonce+s.stride, tried+1 {
		if tried%cancelCheck == 0 && ctx.Err() != nil {
			return 0, false
		}
		binary.BigEndian.PutUint64(buf[len(s.prefix):], nonce)
		if HashSatisfiesDifficulty(crypto.Hash(buf), s.difficulty) {
			return nonce, true
		}
		if nonce > ^uint64(0)-s.stride {
			return 0, false
		}
	}
}

// engine adapts PoW to the Engine interface.
type engine struct{ *PoW }

func (e engine) Seal(ctx context.Context, blk *block.Block) error {
	return e.SealWithCancel(ctx, blk)
}

// AsEngine returns p as an Engine.
func (p *PoW) AsEngine() Engine {
	return engine{p}
}

// ExpectedDifficulty computes the difficulty for a block at height.
// prevDifficulty is the difficulty of the block at height-1 (genesis has 0).
// getTimestamp retrieves a block's timestamp by height.
func (p *PoW) ExpectedDifficulty(height uint64, prevDifficulty uint64, getTimestamp func(uint64) (uint64, error)) uint64 {
	// First block after genesis: use initial.
	if height <= 1 {
		return p.InitialDifficulty
	}

	if !p.ShouldAdjust(height) {
		return prevDifficulty
	}

	interval := uint64(p.AdjustInterval)
	startTS, err := getTimestamp(height - interval)
	if err != nil {
		return prevDifficulty
	}
	endTS, err := getTimestamp(height - 1)
	if err != nil {
		return prevDifficulty
	}

	var actual int64
	if endTS > startTS {
		actual = int64(endTS - startTS)
	}
	expected := int64(p.AdjustInterval) * int64(p.TargetBlockTime)
	next := CalcNextDifficulty(prevDifficulty, actual, expected)
	if next != prevDifficulty {
		log.Consensus.Debug().
			Uint64("height", height).
			Uint64("from", prevDifficulty).
			Uint64("to", next).
			Int64("span", actual).
			Int64("target_span", expected).
			Msg("Difficulty adjusted")
	}
	return next
}

// VerifyDifficulty checks that a header at height states the expected difficulty.
func (p *PoW) VerifyDifficulty(header *block.Header, height, prevDifficulty uint64, getTimestamp func(uint64) (uint64, error)) error {
	expected := p.ExpectedDifficulty(height, prevDifficulty, getTimestamp)
	if header.Difficulty != expected {
		return fmt.Errorf("%w: height %d has difficulty %d, want %d",
			ErrBadDifficulty, height, header.Difficulty, expected)
	}
	return nil
}

// CalcNextDifficulty moves the difficulty one bit after a retarget period.
// A period faster than half the expected span adds a bit, one slower than
// twice the expected span removes one. The result stays in [1, MaxDifficulty]
// unless currentDiff is zero, which disables proof of work and is kept.
func CalcNextDifficulty(currentDiff uint64, actualTimeSpan, expectedTimeSpan int64) uint64 {
	if currentDiff == 0 {
		return 0
	}
	switch {
	case actualTimeSpan < expectedTimeSpan/2:
		if currentDiff < MaxDifficulty {
			return currentDiff + 1
		}
	case actualTimeSpan > expectedTimeSpan*2:
		if currentDiff > 1 {
			return currentDiff - 1
		}
	}
	return currentDiff
}
