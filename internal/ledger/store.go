package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Key prefixes and state keys.
var (
	prefixBlock   = []byte("b/")  // b/<hash(32)> -> blockRecord
	prefixHeight  = []byte("h/")  // h/<height(8)> -> hash(32)
	prefixTx      = []byte("x/")  // x/<txhash(32)> -> TxLocation
	prefixActive  = []byte("oa/") // oa/<exchange(32)> -> encoded offer
	prefixMatched = []byte("om/") // om/<exchange(32)> -> matchedRecord
	prefixPending = []byte("p/")  // p/<slot(4)> -> pendingRecord
	keyHeight     = []byte("s/height")
)

type blockRecord struct {
	Height uint64
	Block  []byte
}

type matchedRecord struct {
	Offer     []byte
	Match     []byte
	Timestamp uint64
}

type pendingRecord struct {
	Priority uint64
	Tx       []byte
}

// TxLocation is where an applied transaction lives in the chain.
type TxLocation struct {
	BlockHash types.Hash `json:"block_hash"`
	Height    uint64     `json:"height"`
	Position  uint32     `json:"position"`
}

// recordStore reads and writes the ledger's non-output records.
type recordStore struct {
	db storage.DB
}

func hashKey(prefix []byte, h types.Hash) []byte {
	key := make([]byte, len(prefix)+types.HashSize)
	copy(key, prefix)
	copy(key[len(prefix):], h[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}

func slotKey(slot uint32) []byte {
	key := make([]byte, len(prefixPending)+4)
	copy(key, prefixPending)
	binary.BigEndian.PutUint32(key[len(prefixPending):], slot)
	return key
}

func hashFromKey(prefix, key []byte) (types.Hash, error) {
	var h types.Hash
	if len(key) != len(prefix)+types.HashSize {
		return h, fmt.Errorf("corrupt key %x", key)
	}
	copy(h[:], key[len(prefix):])
	return h, nil
}

// putBlock stores blk at height and indexes it and its transactions.
func (s *recordStore) putBlock(b storage.Batch, blk *block.Block, height uint64) error {
	enc, err := blk.Encode()
	if err != nil {
		return fmt.Errorf("block encode: %w", err)
	}
	data, err := rlp.EncodeToBytes(blockRecord{Height: height, Block: enc})
	if err != nil {
		return fmt.Errorf("block record encode: %w", err)
	}
	hash := blk.Hash()
	if err := b.Put(hashKey(prefixBlock, hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := b.Put(heightKey(height), hash[:]); err != nil {
		return fmt.Errorf("height index put: %w", err)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	if err := b.Put(keyHeight, buf[:]); err != nil {
		return fmt.Errorf("set height: %w", err)
	}
	return nil
}

func (s *recordStore) putTx(b storage.Batch, txHash types.Hash, loc TxLocation) error {
	data, err := rlp.EncodeToBytes(loc)
	if err != nil {
		return fmt.Errorf("tx location encode: %w", err)
	}
	if err := b.Put(hashKey(prefixTx, txHash), data); err != nil {
		return fmt.Errorf("tx index put %s: %w", txHash, err)
	}
	return nil
}

func (s *recordStore) putActive(b storage.Batch, exchange types.Hash, offer *tx.OfferTx) error {
	data, err := tx.Encode(offer)
	if err != nil {
		return fmt.Errorf("offer encode: %w", err)
	}
	return b.Put(hashKey(prefixActive, exchange), data)
}

func (s *recordStore) deleteActive(b storage.Batch, exchange types.Hash) error {
	return b.Delete(hashKey(prefixActive, exchange))
}

func (s *recordStore) putMatched(b storage.Batch, exchange types.Hash, m *MatchedOffer) error {
	offer, err := tx.Encode(m.Offer)
	if err != nil {
		return fmt.Errorf("offer encode: %w", err)
	}
	match, err := tx.Encode(m.Match)
	if err != nil {
		return fmt.Errorf("match encode: %w", err)
	}
	data, err := rlp.EncodeToBytes(matchedRecord{Offer: offer, Match: match, Timestamp: m.Timestamp})
	if err != nil {
		return fmt.Errorf("matched record encode: %w", err)
	}
	return b.Put(hashKey(prefixMatched, exchange), data)
}

func (s *recordStore) deleteMatched(b storage.Batch, exchange types.Hash) error {
	return b.Delete(hashKey(prefixMatched, exchange))
}

func (s *recordStore) putPending(b storage.Batch, slot uint32, stx *tx.Signed, priority uint64) error {
	enc, err := tx.EncodeSigned(stx)
	if err != nil {
		return fmt.Errorf("pending encode: %w", err)
	}
	data, err := rlp.EncodeToBytes(pendingRecord{Priority: priority, Tx: enc})
	if err != nil {
		return fmt.Errorf("pending record encode: %w", err)
	}
	return b.Put(slotKey(slot), data)
}

func (s *recordStore) deletePending(b storage.Batch, slot uint32) error {
	return b.Delete(slotKey(slot))
}

// height returns the stored tip height and whether one was ever written.
func (s *recordStore) height() (uint64, bool, error) {
	data, err := s.db.Get(keyHeight)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get height: %w", err)
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("corrupt height: got %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (s *recordStore) forEachBlock(fn func(blk *block.Block, height uint64) error) error {
	return s.db.ForEach(prefixBlock, func(_, value []byte) error {
		var rec blockRecord
		if err := rlp.DecodeBytes(value, &rec); err != nil {
			return fmt.Errorf("block record decode: %w", err)
		}
		blk, err := block.Decode(rec.Block)
		if err != nil {
			return err
		}
		return fn(blk, rec.Height)
	})
}

func (s *recordStore) forEachTx(fn func(txHash types.Hash, loc TxLocation) error) error {
	return s.db.ForEach(prefixTx, func(key, value []byte) error {
		h, err := hashFromKey(prefixTx, key)
		if err != nil {
			return err
		}
		var loc TxLocation
		if err := rlp.DecodeBytes(value, &loc); err != nil {
			return fmt.Errorf("tx location decode: %w", err)
		}
		return fn(h, loc)
	})
}

func (s *recordStore) forEachActive(fn func(exchange types.Hash, offer *tx.OfferTx) error) error {
	return s.db.ForEach(prefixActive, func(key, value []byte) error {
		h, err := hashFromKey(prefixActive, key)
		if err != nil {
			return err
		}
		offer, err := decodeOffer(value)
		if err != nil {
			return err
		}
		return fn(h, offer)
	})
}

func (s *recordStore) forEachMatched(fn func(exchange types.Hash, m *MatchedOffer) error) error {
	return s.db.ForEach(prefixMatched, func(key, value []byte) error {
		h, err := hashFromKey(prefixMatched, key)
		if err != nil {
			return err
		}
		var rec matchedRecord
		if err := rlp.DecodeBytes(value, &rec); err != nil {
			return fmt.Errorf("matched record decode: %w", err)
		}
		offer, err := decodeOffer(rec.Offer)
		if err != nil {
			return err
		}
		t, err := tx.Decode(rec.Match)
		if err != nil {
			return fmt.Errorf("match decode: %w", err)
		}
		match, ok := t.(*tx.MatchTx)
		if !ok {
			return fmt.Errorf("matched record holds %s, want match", t.Tag())
		}
		return fn(h, &MatchedOffer{Offer: offer, Match: match, Timestamp: rec.Timestamp})
	})
}

func (s *recordStore) forEachPending(fn func(slot uint32, stx *tx.Signed, priority uint64) error) error {
	return s.db.ForEach(prefixPending, func(key, value []byte) error {
		if len(key) != len(prefixPending)+4 {
			return fmt.Errorf("corrupt pending key %x", key)
		}
		slot := binary.BigEndian.Uint32(key[len(prefixPending):])
		var rec pendingRecord
		if err := rlp.DecodeBytes(value, &rec); err != nil {
			return fmt.Errorf("pending record decode: %w", err)
		}
		stx, err := tx.DecodeSigned(rec.Tx)
		if err != nil {
			return fmt.Errorf("pending decode slot %d: %w", slot, err)
		}
		return fn(slot, stx, rec.Priority)
	})
}

func decodeOffer(data []byte) (*tx.OfferTx, error) {
	t, err := tx.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("offer decode: %w", err)
	}
	offer, ok := t.(*tx.OfferTx)
	if !ok {
		return nil, fmt.Errorf("offer record holds %s", t.Tag())
	}
	return offer, nil
}
