package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/xpeer-network/chasm/pkg/types"
)

// Signer signs transaction hashes on behalf of an address.
type Signer interface {
	// Sign produces a Schnorr signature over a 32-byte hash.
	Sign(hash []byte) ([]byte, error)
	// Address returns the 64-byte native address of the key.
	Address() types.Address
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (pk *PrivateKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(pk.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// Address returns X || Y of the uncompressed public key.
func (pk *PrivateKey) Address() types.Address {
	return AddressFromPubKey(pk.key.PubKey())
}

// AddressFromPubKey strips the 0x04 prefix off the uncompressed key.
func AddressFromPubKey(pub *secp256k1.PublicKey) types.Address {
	return types.Address(pub.SerializeUncompressed()[1:])
}

// PubKeyFromAddress parses a 64-byte native address back into a key.
func PubKeyFromAddress(addr types.Address) (*secp256k1.PublicKey, error) {
	if !addr.Valid() {
		return nil, fmt.Errorf("address must be %d bytes, got %d", types.AddressSize, len(addr))
	}
	buf := make([]byte, 0, 1+types.AddressSize)
	buf = append(buf, 0x04)
	buf = append(buf, addr...)
	return secp256k1.ParsePubKey(buf)
}

// VerifySignature checks a Schnorr signature against a 32-byte hash
// and a native address. Returns false on any error.
func VerifySignature(hash, signature []byte, addr types.Address) bool {
	pubKey, err := PubKeyFromAddress(addr)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}
