package types

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// AddressSize is the length of a native address: the raw uncompressed
// secp256k1 public key without its 0x04 prefix (X || Y).
const AddressSize = 64

// Address holds the raw bytes of a receiver. Native addresses are
// AddressSize bytes; foreign-chain addresses carried by offers and
// matches use the length of their token.
type Address []byte

// Valid reports whether a is a well-formed native address.
func (a Address) Valid() bool {
	return len(a) == AddressSize
}

// Equal reports whether two addresses hold the same bytes.
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a, b)
}

// Clone returns a copy that does not alias a.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	out := make(Address, len(a))
	copy(out, a)
	return out
}

// String returns the hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a)
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return fmt.Errorf("invalid address hex: %w", err)
	}
	*a = b
	return nil
}

// ParseAddress decodes a hex native address, with or without 0x prefix.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid address hex: %w", err)
	}
	if len(b) != AddressSize {
		return nil, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	return Address(b), nil
}
