package types

import "fmt"

// Token identifies an asset that can be exchanged through an offer.
type Token uint8

// Known tokens.
const (
	TokenXpeer    Token = 1
	TokenBitcoin  Token = 2
	TokenEthereum Token = 3
)

var tokenAddressSizes = map[Token]int{
	TokenXpeer:    AddressSize,
	TokenBitcoin:  32,
	TokenEthereum: 20,
}

// Known reports whether t is a supported token.
func (t Token) Known() bool {
	_, ok := tokenAddressSizes[t]
	return ok
}

// AddressSize returns the address length used on the token's chain,
// or 0 for an unknown token.
func (t Token) AddressSize() int {
	return tokenAddressSizes[t]
}

// ValidAddress reports whether addr has the length the token requires.
func (t Token) ValidAddress(addr []byte) bool {
	n, ok := tokenAddressSizes[t]
	return ok && len(addr) == n
}

func (t Token) String() string {
	switch t {
	case TokenXpeer:
		return "XPEER"
	case TokenBitcoin:
		return "BITCOIN"
	case TokenEthereum:
		return "ETHEREUM"
	default:
		return fmt.Sprintf("token(%d)", uint8(t))
	}
}
