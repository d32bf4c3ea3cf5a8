package block

import (
	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/types"
)

// ComputeMerkleRoot folds transaction hashes pairwise into a single root.
// An empty list yields the zero hash and a single hash is its own root.
// Odd layers duplicate their last element.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	switch len(txHashes) {
	case 0:
		return types.Hash{}
	case 1:
		return txHashes[0]
	}

	level := append([]types.Hash(nil), txHashes...)
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		next := make([]types.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, crypto.HashConcat(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}
