package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Bank indexes the token ledgers known to the system by asset address.
type Bank struct {
	tokens map[common.Address]*Token
}

func NewBank() *Bank {
	return &Bank{tokens: make(map[common.Address]*Token)}
}

func (b *Bank) Register(token *Token) {
	b.tokens[token.Address()] = token
}

// Token returns the ledger for an asset address.
func (b *Bank) Token(address common.Address) (*Token, error) {
	token, ok := b.tokens[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address.Hex(), ErrUnknownToken)
	}
	return token, nil
}

// Ensure returns the ledger for an asset address, creating it if needed.
func (b *Bank) Ensure(address common.Address) *Token {
	token, ok := b.tokens[address]
	if !ok {
		token = NewToken(address)
		b.tokens[address] = token
	}
	return token
}
