package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	assetAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	alice     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob       = common.HexToAddress("0x2222222222222222222222222222222222222222")
	carol     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestTokenMintTransfer(t *testing.T) {
	token := NewToken(assetAddr)
	token.Mint(alice, uint256.NewInt(1000))

	if err := token.Transfer(alice, bob, uint256.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := token.BalanceOf(alice).Uint64(); got != 600 {
		t.Fatalf("alice balance: %d", got)
	}
	if got := token.BalanceOf(bob).Uint64(); got != 400 {
		t.Fatalf("bob balance: %d", got)
	}

	if err := token.Transfer(alice, bob, uint256.NewInt(601)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraft: %v", err)
	}
	if err := token.Transfer(carol, bob, uint256.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("transfer from empty account: %v", err)
	}
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	token := NewToken(assetAddr)
	token.Mint(alice, uint256.NewInt(1000))

	balance := token.BalanceOf(alice)
	balance.SetUint64(0)
	if got := token.BalanceOf(alice).Uint64(); got != 1000 {
		t.Fatalf("balance mutated through copy: %d", got)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	token := NewToken(assetAddr)
	token.Mint(alice, uint256.NewInt(1000))
	token.Approve(alice, bob, uint256.NewInt(500))

	if got := token.Allowance(alice, bob).Uint64(); got != 500 {
		t.Fatalf("allowance: %d", got)
	}

	if err := token.TransferFrom(bob, alice, carol, uint256.NewInt(300)); err != nil {
		t.Fatalf("transferFrom: %v", err)
	}
	if got := token.Allowance(alice, bob).Uint64(); got != 200 {
		t.Fatalf("allowance after spend: %d", got)
	}
	if got := token.BalanceOf(carol).Uint64(); got != 300 {
		t.Fatalf("carol balance: %d", got)
	}

	if err := token.TransferFrom(bob, alice, carol, uint256.NewInt(201)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("over-allowance: %v", err)
	}
	if err := token.TransferFrom(carol, alice, bob, uint256.NewInt(1)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("unapproved spender: %v", err)
	}
}

func TestBank(t *testing.T) {
	bank := NewBank()

	if _, err := bank.Token(assetAddr); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("unknown token: %v", err)
	}

	token := NewToken(assetAddr)
	bank.Register(token)
	got, err := bank.Token(assetAddr)
	if err != nil || got != token {
		t.Fatalf("registered token lookup: %v", err)
	}

	other := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	ensured := bank.Ensure(other)
	if ensured == nil || bank.Ensure(other) != ensured {
		t.Fatalf("ensure did not return a stable ledger")
	}
}

func TestStakeLedgerOwnership(t *testing.T) {
	stakes := NewStakeLedger()

	if got := stakes.NextID(); got != 1 {
		t.Fatalf("first id: %d", got)
	}
	id := stakes.Mint(alice)
	if id != 1 || stakes.NextID() != 2 {
		t.Fatalf("mint ids: %d, next %d", id, stakes.NextID())
	}

	owner, err := stakes.OwnerOf(id)
	if err != nil || owner != alice {
		t.Fatalf("owner: %s, %v", owner.Hex(), err)
	}
	if _, err := stakes.OwnerOf(99); !errors.Is(err, ErrUnknownStake) {
		t.Fatalf("unknown id: %v", err)
	}
}

func TestStakeLedgerAuthorization(t *testing.T) {
	stakes := NewStakeLedger()
	id := stakes.Mint(alice)

	if !stakes.IsAuthorized(alice, id) {
		t.Fatalf("owner not authorized")
	}
	if stakes.IsAuthorized(bob, id) {
		t.Fatalf("stranger authorized")
	}

	if err := stakes.Approve(bob, carol, id); err == nil {
		t.Fatalf("non-owner approve succeeded")
	}
	if err := stakes.Approve(alice, bob, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !stakes.IsAuthorized(bob, id) {
		t.Fatalf("approved spender not authorized")
	}

	stakes.SetApprovalForAll(alice, carol, true)
	if !stakes.IsAuthorized(carol, id) {
		t.Fatalf("operator not authorized")
	}
	stakes.SetApprovalForAll(alice, carol, false)
	if stakes.IsAuthorized(carol, id) {
		t.Fatalf("revoked operator still authorized")
	}
}

func TestStakeLedgerTransferClearsApproval(t *testing.T) {
	stakes := NewStakeLedger()
	id := stakes.Mint(alice)
	if err := stakes.Approve(alice, carol, id); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := stakes.Transfer(bob, bob, id); err == nil {
		t.Fatalf("unauthorized transfer succeeded")
	}
	if err := stakes.Transfer(alice, bob, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	owner, err := stakes.OwnerOf(id)
	if err != nil || owner != bob {
		t.Fatalf("owner after transfer: %s, %v", owner.Hex(), err)
	}
	if stakes.IsAuthorized(carol, id) {
		t.Fatalf("approval survived transfer")
	}
}
