package block

import (
	"testing"

	"github.com/xpeer-network/chasm/pkg/crypto"
	"github.com/xpeer-network/chasm/pkg/tx"
	"github.com/xpeer-network/chasm/pkg/types"
)

func hashes(n int) []types.Hash {
	out := make([]types.Hash, n)
	for i := range out {
		out[i] = crypto.Hash([]byte{byte(i)})
	}
	return out
}

func TestComputeMerkleRoot(t *testing.T) {
	h := hashes(7)
	pair := crypto.HashConcat

	tests := []struct {
		name string
		in   []types.Hash
		want types.Hash
	}{
		{"nil", nil, types.Hash{}},
		{"empty", []types.Hash{}, types.Hash{}},
		{"single is its own root", h[:1], h[0]},
		{"pair", h[:2], pair(h[0], h[1])},
		{"odd layer duplicates last", h[:3], pair(pair(h[0], h[1]), pair(h[2], h[2]))},
		{"four", h[:4], pair(pair(h[0], h[1]), pair(h[2], h[3]))},
		{
			"seven pads at two levels", h,
			pair(
				pair(pair(h[0], h[1]), pair(h[2], h[3])),
				pair(pair(h[4], h[5]), pair(h[6], h[6])),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeMerkleRoot(tt.in); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComputeMerkleRoot_OrderMatters(t *testing.T) {
	h := hashes(2)
	if ComputeMerkleRoot([]types.Hash{h[0], h[1]}) == ComputeMerkleRoot([]types.Hash{h[1], h[0]}) {
		t.Error("swapping leaves must change the root")
	}
}

func TestComputeMerkleRoot_DoesNotMutateInput(t *testing.T) {
	in := hashes(3)
	cp := append([]types.Hash(nil), in...)
	ComputeMerkleRoot(in)
	for i := range in {
		if in[i] != cp[i] {
			t.Fatalf("input[%d] modified", i)
		}
	}
}

func TestBlockMerkleRoot_IgnoresSignatures(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	transfer := tx.NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}}).
		AddTransfer(5, key.Address()).
		Transfer()
	signed, err := tx.Sign(transfer, key)
	if err != nil {
		t.Fatal(err)
	}
	mint := tx.Unsigned(tx.NewBuilder().AddTransfer(1, key.Address()).Minting(1))

	blk := NewBlock(&Header{Timestamp: 1}, []*tx.Signed{mint, signed})
	before := ComputeMerkleRoot(blk.TxHashes())

	signed.Signatures[0] = []byte{0xFF}
	if after := ComputeMerkleRoot(blk.TxHashes()); after != before {
		t.Error("signatures must not affect the merkle root")
	}

	transfer.Outputs[0].(*tx.TransferOutput).Value = 6
	if after := ComputeMerkleRoot(blk.TxHashes()); after == before {
		t.Error("changing a transaction must change the merkle root")
	}
}
