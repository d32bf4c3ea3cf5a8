package tx

import (
	"github.com/xpeer-network/chasm/pkg/types"
)

// Builder accumulates inputs and outputs for any transaction variant.
type Builder struct {
	base Base
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddInput adds an input referencing a previous output.
func (b *Builder) AddInput(prevOut types.Outpoint) *Builder {
	b.base.Inputs = append(b.base.Inputs, Input{PrevOut: prevOut})
	return b
}

// AddTransfer adds a TransferOutput.
func (b *Builder) AddTransfer(value uint64, receiver types.Address) *Builder {
	b.base.Outputs = append(b.base.Outputs, &TransferOutput{Value: value, Receiver: receiver})
	return b
}

// AddXpeer adds the native leg of an exchange.
func (b *Builder) AddXpeer(value uint64, receiver, sender types.Address, exchange types.Hash) *Builder {
	b.base.Outputs = append(b.base.Outputs, &XpeerOutput{
		Value:    value,
		Receiver: receiver,
		Sender:   sender,
		Exchange: exchange,
	})
	return b
}

// AddFee adds an XpeerFeeOutput.
func (b *Builder) AddFee(value uint64) *Builder {
	b.base.Outputs = append(b.base.Outputs, &XpeerFeeOutput{Value: value})
	return b
}

// NextIndex returns the index the next added output will get.
func (b *Builder) NextIndex() uint32 {
	return uint32(len(b.base.Outputs))
}

// Base returns a copy of the accumulated inputs and outputs.
func (b *Builder) Base() Base {
	return b.base.clone()
}

// Transfer builds a TransferTx.
func (b *Builder) Transfer() *TransferTx {
	return &TransferTx{Base: b.Base()}
}

// Minting builds a MintingTx for the given height. Inputs are dropped.
func (b *Builder) Minting(height uint64) *MintingTx {
	return &MintingTx{Base: Base{Outputs: cloneOutputs(b.base.Outputs)}, Height: height}
}
