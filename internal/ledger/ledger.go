// Package ledger implements the Chasm state engine: the block chain, the
// UTXO and escrowed deposit sets, the exchange indexes and the persisted
// pending queue.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xpeer-network/chasm/internal/log"
	"github.com/xpeer-network/chasm/internal/mempool"
	"github.com/xpeer-network/chasm/internal/metrics"
	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/internal/utxo"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Ledger errors.
var (
	ErrNilBlock          = errors.New("nil block or header")
	ErrBlockKnown        = errors.New("block already applied")
	ErrTxOverwrite       = errors.New("transaction hash already in chain")
	ErrUTXONotFound      = errors.New("input spends unknown utxo")
	ErrUnknownExchange   = errors.New("exchange not in the expected index")
	ErrDepositNotFound   = errors.New("deposit not held in escrow")
	ErrUnknownProofSide  = errors.New("unknown proof side")
	ErrCorruptChain      = errors.New("stored chain is not contiguous")
	ErrPendingQueueFull  = mempool.ErrQueueFull
	ErrPendingQueueEmpty = mempool.ErrQueueEmpty
)

// DefaultPendingSize is the pending queue capacity when none is configured.
const DefaultPendingSize = 1024

// Option configures a Ledger.
type Option func(*Ledger)

// WithPendingSize sets the pending queue capacity.
func WithPendingSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pendingSize = n
		}
	}
}

// WithLogger replaces the ledger logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

type storedBlock struct {
	blk    *block.Block
	height uint64
}

// Ledger is the authoritative chain state. All methods are safe for
// concurrent use; accessors return deep copies.
type Ledger struct {
	mu          sync.RWMutex
	db          storage.DB
	records     *recordStore
	utxoStore   *utxo.Store
	dutxoStore  *utxo.Store
	pendingSize int
	logger      zerolog.Logger
	metrics     *metrics.LedgerMetrics

	height  uint64
	hashes  []types.Hash // by height
	blocks  map[types.Hash]*storedBlock
	txIndex map[types.Hash]TxLocation
	utxos   *utxo.Set
	dutxos  *utxo.Set
	active  map[types.Hash]*tx.OfferTx
	matched map[types.Hash]*MatchedOffer
	pending *mempool.Queue
}

// Open loads a ledger from db, writing the genesis block first when the
// store is fresh.
func Open(db storage.DB, opts ...Option) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("storage db is nil")
	}
	l := &Ledger{
		db:          db,
		records:     &recordStore{db: db},
		utxoStore:   utxo.NewStore(db, utxo.PrefixUTXO),
		dutxoStore:  utxo.NewStore(db, utxo.PrefixDUTXO),
		pendingSize: DefaultPendingSize,
		logger:      log.Ledger,
		metrics:     metrics.Ledger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	_, initialized, err := l.records.height()
	if err != nil {
		return nil, err
	}
	if !initialized {
		batch := db.NewBatch()
		if err := l.records.putBlock(batch, block.Genesis(), 0); err != nil {
			batch.Discard()
			return nil, fmt.Errorf("store genesis: %w", err)
		}
		if err := batch.Commit(); err != nil {
			return nil, fmt.Errorf("store genesis: %w", err)
		}
		l.logger.Info().Str("hash", block.Genesis().Hash().String()).Msg("Genesis block written")
	}

	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload rebuilds every in-memory index from storage.
func (l *Ledger) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload()
}

func (l *Ledger) reload() error {
	defer log.Timed(l.logger, "reload")()
	height, _, err := l.records.height()
	if err != nil {
		return err
	}

	hashes := make([]types.Hash, height+1)
	filled := make([]bool, height+1)
	blocks := make(map[types.Hash]*storedBlock)
	err = l.records.forEachBlock(func(blk *block.Block, h uint64) error {
		if h > height {
			return fmt.Errorf("%w: block at height %d above tip %d", ErrCorruptChain, h, height)
		}
		hash := blk.Hash()
		hashes[h] = hash
		filled[h] = true
		blocks[hash] = &storedBlock{blk: blk, height: h}
		return nil
	})
	if err != nil {
		return fmt.Errorf("load blocks: %w", err)
	}
	for h, ok := range filled {
		if !ok {
			return fmt.Errorf("%w: missing block at height %d", ErrCorruptChain, h)
		}
	}

	txIndex := make(map[types.Hash]TxLocation)
	if err := l.records.forEachTx(func(h types.Hash, loc TxLocation) error {
		txIndex[h] = loc
		return nil
	}); err != nil {
		return fmt.Errorf("load tx index: %w", err)
	}

	utxos, err := l.utxoStore.Load()
	if err != nil {
		return err
	}
	dutxos, err := l.dutxoStore.Load()
	if err != nil {
		return err
	}

	active := make(map[types.Hash]*tx.OfferTx)
	if err := l.records.forEachActive(func(h types.Hash, o *tx.OfferTx) error {
		active[h] = o
		return nil
	}); err != nil {
		return fmt.Errorf("load active offers: %w", err)
	}

	matched := make(map[types.Hash]*MatchedOffer)
	if err := l.records.forEachMatched(func(h types.Hash, m *MatchedOffer) error {
		matched[h] = m
		return nil
	}); err != nil {
		return fmt.Errorf("load matched offers: %w", err)
	}

	pending := mempool.New(l.pendingSize)
	if err := l.records.forEachPending(func(slot uint32, stx *tx.Signed, priority uint64) error {
		return pending.Restore(slot, stx, priority)
	}); err != nil {
		return fmt.Errorf("load pending: %w", err)
	}

	l.height = height
	l.hashes = hashes
	l.blocks = blocks
	l.txIndex = txIndex
	l.utxos = utxos
	l.dutxos = dutxos
	l.active = active
	l.matched = matched
	l.pending = pending
	l.updateGauges()
	return nil
}

func (l *Ledger) updateGauges() {
	l.metrics.SetState(l.height, l.utxos.Len(), l.dutxos.Len(), len(l.active), len(l.matched), l.pending.Len())
}

// Height returns the height of the chain tip.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.height
}

// Tip returns the block at the chain tip.
func (l *Ledger) Tip() *block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[l.hashes[l.height]].blk.Clone()
}

// BlockByHash returns a block and its height.
func (l *Ledger) BlockByHash(hash types.Hash) (*block.Block, uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sb, ok := l.blocks[hash]
	if !ok {
		return nil, 0, false
	}
	return sb.blk.Clone(), sb.height, true
}

// BlockAt returns the block at height.
func (l *Ledger) BlockAt(height uint64) (*block.Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if height > l.height {
		return nil, false
	}
	return l.blocks[l.hashes[height]].blk.Clone(), true
}

// Blocks returns every block, genesis first.
func (l *Ledger) Blocks() []*block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*block.Block, len(l.hashes))
	for i, h := range l.hashes {
		out[i] = l.blocks[h].blk.Clone()
	}
	return out
}

// TxLocation returns where an applied transaction lives.
func (l *Ledger) TxLocation(txHash types.Hash) (TxLocation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.txIndex[txHash]
	return loc, ok
}

// Transaction returns an applied transaction by hash.
func (l *Ledger) Transaction(txHash types.Hash) (*tx.Signed, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.txIndex[txHash]
	if !ok {
		return nil, false
	}
	sb, ok := l.blocks[loc.BlockHash]
	if !ok || int(loc.Position) >= len(sb.blk.Transactions) {
		return nil, false
	}
	return sb.blk.Transactions[loc.Position].Clone(), true
}

// UTXO returns the spendable output at op.
func (l *Ledger) UTXO(op types.Outpoint) (tx.Output, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out, ok := l.utxos.Get(op)
	if !ok {
		return nil, false
	}
	return out.Clone(), true
}

// UTXOs returns every spendable output.
func (l *Ledger) UTXOs() map[types.Outpoint]tx.Output {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.utxos.Copy()
}

// DUTXO returns the escrowed deposit at op.
func (l *Ledger) DUTXO(op types.Outpoint) (tx.Output, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out, ok := l.dutxos.Get(op)
	if !ok {
		return nil, false
	}
	return out.Clone(), true
}

// DUTXOs returns every escrowed deposit.
func (l *Ledger) DUTXOs() map[types.Outpoint]tx.Output {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dutxos.Copy()
}

// ActiveOffers returns the offers awaiting a match, by exchange hash.
func (l *Ledger) ActiveOffers() map[types.Hash]*tx.OfferTx {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[types.Hash]*tx.OfferTx, len(l.active))
	for h, o := range l.active {
		out[h] = o.Clone().(*tx.OfferTx)
	}
	return out
}

// MatchedOffers returns the matched exchanges awaiting resolution.
func (l *Ledger) MatchedOffers() map[types.Hash]*MatchedOffer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[types.Hash]*MatchedOffer, len(l.matched))
	for h, m := range l.matched {
		out[h] = m.Clone()
	}
	return out
}

// StateRoot commits to the UTXO and DUTXO sets.
func (l *Ledger) StateRoot() types.Hash {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return block.ComputeMerkleRoot([]types.Hash{utxo.Commitment(l.utxos), utxo.Commitment(l.dutxos)})
}

// View returns a detached copy of the state validation reads.
func (l *Ledger) View() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := &Snapshot{
		Headers: make([]*block.Header, len(l.hashes)),
		UTXOs:   l.utxos.Copy(),
		Active:  make(map[types.Hash]*tx.OfferTx, len(l.active)),
		Matched: make(map[types.Hash]*MatchedOffer, len(l.matched)),
	}
	for i, h := range l.hashes {
		hdr := *l.blocks[h].blk.Header
		s.Headers[i] = &hdr
	}
	for h, o := range l.active {
		s.Active[h] = o.Clone().(*tx.OfferTx)
	}
	for h, m := range l.matched {
		s.Matched[h] = m.Clone()
	}
	return s
}
