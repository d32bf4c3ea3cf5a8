package utxo

import (
	"fmt"

	"github.com/xpeer-network/chasm/internal/storage"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Key prefixes for the two output families.
var (
	PrefixUTXO  = []byte("u/") // u/<txid><index> -> encoded output
	PrefixDUTXO = []byte("d/") // d/<txid><index> -> encoded output
)

// Store persists one output family under its own namespace.
type Store struct {
	db *storage.PrefixDB
}

// NewStore creates a store for the family identified by prefix.
func NewStore(db storage.DB, prefix []byte) *Store {
	return &Store{db: storage.NewPrefixDB(db, prefix)}
}

// Put records out at op as part of batch.
func (s *Store) Put(batch storage.Batch, op types.Outpoint, out tx.Output) error {
	data, err := tx.EncodeOutput(out)
	if err != nil {
		return fmt.Errorf("utxo encode %s: %w", op, err)
	}
	if err := s.db.Wrap(batch).Put(op.Key(), data); err != nil {
		return fmt.Errorf("utxo put %s: %w", op, err)
	}
	return nil
}

// Delete removes op as part of batch.
func (s *Store) Delete(batch storage.Batch, op types.Outpoint) error {
	if err := s.db.Wrap(batch).Delete(op.Key()); err != nil {
		return fmt.Errorf("utxo delete %s: %w", op, err)
	}
	return nil
}

// Load reads the whole family into a new Set.
func (s *Store) Load() (*Set, error) {
	set := NewSet()
	err := s.db.ForEach(nil, func(key, value []byte) error {
		op, err := types.OutpointFromKey(key)
		if err != nil {
			return err
		}
		out, err := tx.DecodeOutput(value)
		if err != nil {
			return fmt.Errorf("utxo decode %s: %w", op, err)
		}
		set.Add(op, out)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("utxo load: %w", err)
	}
	return set, nil
}
