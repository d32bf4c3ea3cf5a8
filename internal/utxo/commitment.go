package utxo

import (
	"bytes"
	"sort"

	"github.com/xpeer-network/chasm/pkg/block"
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Commitment computes a merkle root over every output in the set.
// Each entry is hashed as outpoint key | encoded output, the hashes are
// sorted, and a merkle tree is built from them. An empty set commits to
// the zero hash.
func Commitment(s *Set) types.Hash {
	hashes := make([]types.Hash, 0, len(s.outputs))
	for op, out := range s.outputs {
		enc, err := tx.EncodeOutput(out)
		if err != nil {
			continue
		}
		hashes = append(hashes, crypto.Hash(append(op.Key(), enc...)))
	}
	if len(hashes) == 0 {
		return types.Hash{}
	}

	// Map iteration order varies.
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return block.ComputeMerkleRoot(hashes)
}
