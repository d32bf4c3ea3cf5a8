package block

import (
	"encoding/binary"

	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Header contains block metadata. Difficulty is the number of leading
// zero bits the header hash must have.
type Header struct {
	PrevHash   types.Hash `json:"prev_hash"`
	MerkleRoot types.Hash `json:"merkle_root"`
	Difficulty uint64     `json:"difficulty"`
	Nonce      uint64     `json:"nonce"`
	Timestamp  uint64     `json:"timestamp"`
}

// Hash computes the block header hash.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes for hashing.
// Format: prev_hash(32) | merkle_root(32) | difficulty(8) | timestamp(8) | nonce(8)
func (h *Header) SigningBytes() []byte {
	buf := h.SealPrefix()
	return binary.BigEndian.AppendUint64(buf, h.Nonce)
}

// SealPrefix returns SigningBytes without the trailing nonce, so a miner
// can reuse it while searching the nonce space.
func (h *Header) SealPrefix() []byte {
	buf := make([]byte, 0, 88)
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = binary.BigEndian.AppendUint64(buf, h.Difficulty)
	buf = binary.BigEndian.AppendUint64(buf, h.Timestamp)
	return buf
}
