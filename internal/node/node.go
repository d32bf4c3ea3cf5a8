// Package node wires the ledger, validator and miner into a service that
// can be embedded in a binary.
package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xpeer-network/chasm/config"
	"github.com/xpeer-network/chasm/internal/consensus"
	"github.com/xpeer-network/chasm/internal/ledger"
	klog "github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/internal/metrics"
	"github.com/xpeer-network/chasm/internal/miner"
	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/internal/validation"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// ErrMiningDisabled is returned by MineBlock on a node without a coinbase.
var ErrMiningDisabled = errors.New("mining is not configured")

// Node is a fully-initialized ledger node. Every mutation goes through
// the validator while the ledger lock is held.
type Node struct {
	cfg     *config.Config
	logger  zerolog.Logger
	metrics *metrics.NodeMetrics

	// Core
	db        storage.DB
	ledger    *ledger.Ledger
	pow       *consensus.PoW
	validator *validation.Validator

	// Mining
	miner *miner.Miner

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Node beyond its Config.
type Option func(*options)

type options struct {
	now    func() time.Time
	proofs validation.ProofVerifier
}

// WithClock replaces the wall clock used for validation and block timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithProofVerifier replaces the foreign-chain proof verifier.
func WithProofVerifier(p validation.ProofVerifier) Option {
	return func(o *options) { o.proofs = p }
}

// New creates and initializes a Node from cfg: it sets up logging and
// opens the Badger ledger in the data directory. It does NOT start
// background goroutines; call Start for that.
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	logFile := expandHome(cfg.Log.File)
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "chasm.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	path := expandHome(cfg.LedgerDir())
	db, err := storage.NewBadger(path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	klog.Node.Info().Str("path", path).Msg("Database opened")

	n, err := NewWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

// NewWithDB creates a Node on an already opened store. The node owns db
// and closes it in Stop.
func NewWithDB(cfg *config.Config, db storage.DB, opts ...Option) (*Node, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	pow, err := consensus.NewDefaultPoW(cfg.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("create pow: %w", err)
	}
	pow.Threads = cfg.Mining.Threads

	l, err := ledger.Open(db, ledger.WithPendingSize(cfg.Pending.Size))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	vopts := []validation.Option{validation.WithClock(o.now)}
	if o.proofs != nil {
		vopts = append(vopts, validation.WithProofVerifier(o.proofs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:       cfg,
		logger:    klog.Node,
		metrics:   metrics.Node(),
		db:        db,
		ledger:    l,
		pow:       pow,
		validator: validation.New(pow, vopts...),
		ctx:       ctx,
		cancel:    cancel,
	}

	if cfg.Mining.Coinbase != "" {
		coinbase, err := resolveCoinbase(cfg.Mining.Coinbase)
		if err != nil {
			cancel()
			return nil, err
		}
		n.miner = miner.New(l, pow, n.validator, coinbase, miner.WithClock(o.now))
	}

	n.logger.Info().
		Uint64("height", l.Height()).
		Str("tip", l.Tip().Hash().Short()).
		Uint64("difficulty", cfg.Difficulty).
		Int("pending", l.PendingLen()).
		Str("state_root", l.StateRoot().Short()).
		Msg("Ledger loaded")
	return n, nil
}

// Start launches the miner loop when mining is enabled.
func (n *Node) Start() error {
	if n.cfg.Mining.Enabled {
		if n.miner == nil {
			return fmt.Errorf("start miner: %w", ErrMiningDisabled)
		}
		interval := n.cfg.Mining.Interval
		n.logger.Info().
			Str("coinbase", shortAddress(n.cfg.Mining.Coinbase)).
			Int("threads", n.cfg.Mining.Threads).
			Dur("interval", interval).
			Msg("Block production enabled")

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runMiner(interval)
		}()
	}

	n.logger.Info().
		Uint64("height", n.ledger.Height()).
		Bool("mining", n.cfg.Mining.Enabled).
		Msg("Node started")
	return nil
}

// Stop cancels background work, waits for it and closes the store.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	n.logger.Info().
		Uint64("height", n.ledger.Height()).
		Str("state_root", n.ledger.StateRoot().Short()).
		Msg("Ledger closed")
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Error().Err(err).Msg("Failed to close database")
		}
	}
	n.logger.Info().Msg("Goodbye!")
}

// Ledger returns the node's ledger for read access.
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Height returns the current chain height.
func (n *Node) Height() uint64 {
	return n.ledger.Height()
}

// SubmitTransaction validates stx against the current state and queues it
// with the given priority. It returns the pending queue slot.
func (n *Node) SubmitTransaction(stx *tx.Signed, priority uint64) (uint32, error) {
	if stx == nil || stx.Tx == nil {
		err := fmt.Errorf("%w: nil transaction", validation.ErrUnsupportedVariant)
		n.metrics.ObserveTxSubmitted(err)
		return 0, err
	}
	if err := tx.CheckWellFormed(stx); err != nil {
		n.metrics.ObserveTxSubmitted(err)
		return 0, err
	}
	slot, err := n.ledger.AddPendingValidated(stx, priority, n.validator.TransactionCheck(stx))
	n.metrics.ObserveTxSubmitted(err)
	if err != nil {
		n.logger.Debug().Err(err).Str("tx", stx.Hash().Short()).Msg("Transaction rejected")
		return 0, err
	}
	n.logger.Debug().
		Str("tx", stx.Hash().Short()).
		Str("type", stx.Tx.Tag().String()).
		Uint64("priority", priority).
		Uint32("slot", slot).
		Msg("Transaction queued")
	return slot, nil
}

// SubmitBlock validates blk as the next block and applies it.
func (n *Node) SubmitBlock(blk *block.Block) error {
	if blk == nil {
		n.metrics.ObserveBlockSubmitted(ledger.ErrNilBlock)
		return ledger.ErrNilBlock
	}
	err := n.ledger.ApplyValidated(blk, n.validator.BlockCheck(blk))
	n.metrics.ObserveBlockSubmitted(err)
	if err != nil {
		n.logger.Warn().Err(err).
			Str("hash", blk.Hash().Short()).
			Bool("consensus", validation.IsBlockConsensusError(err)).
			Msg("Block rejected")
		return err
	}
	return nil
}

// MineBlock produces a block from the pending queue and applies it.
func (n *Node) MineBlock(ctx context.Context) (*block.Block, error) {
	if n.miner == nil {
		return nil, ErrMiningDisabled
	}
	blk, err := n.miner.Produce(ctx)
	if err != nil {
		return nil, fmt.Errorf("produce block: %w", err)
	}
	if err := n.SubmitBlock(blk); err != nil {
		return nil, fmt.Errorf("apply own block: %w", err)
	}
	return blk, nil
}

// ── Mining ──────────────────────────────────────────────────────────

func (n *Node) runMiner(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			n.logger.Info().Msg("Block production stopped")
			return
		case <-ticker.C:
			blk, err := n.MineBlock(n.ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				n.logger.Error().Err(err).Msg("Failed to mine block")
				continue
			}
			n.logger.Info().
				Uint64("height", n.ledger.Height()).
				Str("hash", blk.Hash().Short()).
				Int("txs", len(blk.Transactions)).
				Uint64("reward", blk.Transactions[0].Tx.Body().Outputs[0].Amount()).
				Msg("Block produced")
		}
	}
}

// shortAddress abbreviates a hex address for logs.
func shortAddress(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:16] + "..."
}

// Coinbase returns the mining reward address, or nil when mining is not configured.
func (n *Node) Coinbase() types.Address {
	if n.miner == nil {
		return nil
	}
	addr, _ := resolveCoinbase(n.cfg.Mining.Coinbase)
	return addr
}
