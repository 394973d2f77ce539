package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownToken          = errors.New("unknown token")
)

// Token is an in-memory fungible-asset ledger: balances, transfers, and
// spender allowances for one asset.
type Token struct {
	address    common.Address
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

func NewToken(address common.Address) *Token {
	return &Token{
		address:    address,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (t *Token) Address() common.Address { return t.address }

// BalanceOf returns a copy of the owner's balance.
func (t *Token) BalanceOf(owner common.Address) *uint256.Int {
	if balance, ok := t.balances[owner]; ok {
		return balance.Clone()
	}
	return new(uint256.Int)
}

// Mint issues new supply to an account. Test and scenario setup only.
func (t *Token) Mint(to common.Address, amount *uint256.Int) {
	balance, ok := t.balances[to]
	if !ok {
		balance = new(uint256.Int)
		t.balances[to] = balance
	}
	balance.Add(balance, amount)
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	balance, ok := t.balances[from]
	if !ok || balance.Lt(amount) {
		return fmt.Errorf("transfer %s from %s: %w", amount.Dec(), from.Hex(), ErrInsufficientBalance)
	}
	balance.Sub(balance, amount)
	t.Mint(to, amount)
	return nil
}

// Approve lets spender move up to amount out of the owner's balance.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) {
	spenders, ok := t.allowances[owner]
	if !ok {
		spenders = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = spenders
	}
	spenders[spender] = amount.Clone()
}

// Allowance returns a copy of what spender may still move for owner.
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	if spenders, ok := t.allowances[owner]; ok {
		if allowance, ok := spenders[spender]; ok {
			return allowance.Clone()
		}
	}
	return new(uint256.Int)
}

// TransferFrom moves amount from "from" to "to" on behalf of spender,
// consuming the allowance. Nothing moves on any failure.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	allowance := t.allowance(from, spender)
	if allowance == nil || allowance.Lt(amount) {
		return fmt.Errorf("spender %s: %w", spender.Hex(), ErrInsufficientAllowance)
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (t *Token) allowance(owner, spender common.Address) *uint256.Int {
	if spenders, ok := t.allowances[owner]; ok {
		return spenders[spender]
	}
	return nil
}
