package crypto

import (
	"bytes"
	"testing"

	"github.com/xpeer-network/chasm/pkg/types"
)

func TestGenerateKey_Address(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	addr := key.Address()
	if len(addr) != types.AddressSize {
		t.Fatalf("Address() length = %d, want %d", len(addr), types.AddressSize)
	}

	pub, err := PubKeyFromAddress(addr)
	if err != nil {
		t.Fatalf("PubKeyFromAddress: %v", err)
	}
	if !bytes.Equal(AddressFromPubKey(pub), addr) {
		t.Error("address does not survive a round trip through the public key")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	secret := Hash([]byte("miner seed"))
	a, err := PrivateKeyFromBytes(secret[:])
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	b, err := PrivateKeyFromBytes(secret[:])
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if !a.Address().Equal(b.Address()) {
		t.Error("same secret should give the same address")
	}
	hash := Hash([]byte("payload"))
	sig, err := a.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !VerifySignature(hash[:], sig, b.Address()) {
		t.Error("signature from a restored key should verify")
	}

	for _, n := range []int{0, 16, 64} {
		if _, err := PrivateKeyFromBytes(make([]byte, n)); err == nil {
			t.Errorf("expected error for %d-byte key", n)
		}
	}
}

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	hash := Hash([]byte("test message"))
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if !VerifySignature(hash[:], sig, key.Address()) {
		t.Error("signature should verify against the signing address")
	}
	if VerifySignature(hash[:], sig, other.Address()) {
		t.Error("signature verified against the wrong address")
	}
	wrong := Hash([]byte("other message"))
	if VerifySignature(wrong[:], sig, key.Address()) {
		t.Error("signature verified against the wrong hash")
	}

	corrupted := append([]byte(nil), sig...)
	corrupted[10] ^= 0xff
	if VerifySignature(hash[:], corrupted, key.Address()) {
		t.Error("corrupted signature verified")
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	hash := Hash([]byte("x"))
	if VerifySignature(hash[:], []byte{1, 2, 3}, make(types.Address, types.AddressSize)) {
		t.Error("garbage signature verified")
	}
	if VerifySignature(hash[:], make([]byte, 64), types.Address{1, 2}) {
		t.Error("short address accepted")
	}
}

func TestSign_InvalidHashLength(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("expected error for short hash")
	}
}
