package types

import (
	"encoding/binary"
	"fmt"
)

// OutpointKeySize is the length of Outpoint.Key().
const OutpointKeySize = HashSize + 4

// Outpoint references a specific output in a transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Key returns txid(32) | index(4, big-endian), the storage key suffix.
func (o Outpoint) Key() []byte {
	buf := make([]byte, OutpointKeySize)
	copy(buf, o.TxID[:])
	binary.BigEndian.PutUint32(buf[HashSize:], o.Index)
	return buf
}

// OutpointFromKey parses the output of Key.
func OutpointFromKey(b []byte) (Outpoint, error) {
	if len(b) != OutpointKeySize {
		return Outpoint{}, fmt.Errorf("outpoint key must be %d bytes, got %d", OutpointKeySize, len(b))
	}
	var o Outpoint
	copy(o.TxID[:], b[:HashSize])
	o.Index = binary.BigEndian.Uint32(b[HashSize:])
	return o, nil
}
