package vault

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"rangeswap/internal/amm"
	"rangeswap/internal/ledger"
	"rangeswap/internal/registry"
)

var (
	// ErrExpired rejects a mint whose deadline has passed.
	ErrExpired = errors.New("transaction too old")

	// ErrNotAuthorized rejects burns and collects by non-owners.
	ErrNotAuthorized = errors.New("not authorized")
)

// MintParams describes a deposit into the index-th pool of a pair.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Index          int
	Recipient      common.Address
	Amount0Desired *uint256.Int
	Amount1Desired *uint256.Int
	Deadline       int64
}

type stake struct {
	pool      *amm.Pool
	liquidity *uint256.Int
}

// Vault wraps stakes in pools as transferable tokens. Each stake token is
// backed by its own position in the pool, keyed by an address derived from
// the token id, so the engine settles fees per stake.
type Vault struct {
	address common.Address
	reg     *registry.Registry
	bank    *ledger.Bank
	stakes  *ledger.StakeLedger
	byID    map[uint64]*stake

	// Now supplies the caller-visible current time for deadline checks.
	Now func() int64
}

func NewVault(address common.Address, reg *registry.Registry, bank *ledger.Bank, stakes *ledger.StakeLedger) *Vault {
	return &Vault{
		address: address,
		reg:     reg,
		bank:    bank,
		stakes:  stakes,
		byID:    make(map[uint64]*stake),
		Now:     func() int64 { return time.Now().Unix() },
	}
}

func (v *Vault) Address() common.Address { return v.address }

// Mint converts desired deposit amounts into liquidity in the resolved
// pool, pulls the tokens from the caller, and issues a stake token to the
// recipient. Returns the token id, the minted liquidity, and the amounts
// actually deposited.
func (v *Vault) Mint(caller common.Address, params MintParams) (uint64, *uint256.Int, *uint256.Int, *uint256.Int, error) {
	if v.Now() > params.Deadline {
		return 0, nil, nil, nil, fmt.Errorf("deadline %d: %w", params.Deadline, ErrExpired)
	}
	pool, err := v.reg.PoolAt(params.Token0, params.Token1, params.Index)
	if err != nil {
		return 0, nil, nil, nil, err
	}

	liquidity := amm.LiquidityForAmounts(
		pool.SqrtPriceX96(),
		pool.SqrtRatioLowerX96(),
		pool.SqrtRatioUpperX96(),
		params.Amount0Desired,
		params.Amount1Desired,
	)
	if liquidity.IsZero() {
		return 0, nil, nil, nil, fmt.Errorf("desired amounts yield no liquidity: %w", amm.ErrZeroAmount)
	}

	id := v.stakes.NextID()
	amount0, amount1, err := pool.Mint(positionOwner(id), liquidity, v.payFrom(caller, pool))
	if err != nil {
		return 0, nil, nil, nil, err
	}

	minted := v.stakes.Mint(params.Recipient)
	v.byID[minted] = &stake{pool: pool, liquidity: liquidity.Clone()}

	return minted, liquidity, amount0, amount1, nil
}

// Burn removes the stake's full recorded liquidity from the pool. Only the
// current owner may burn. The token id stays valid for Collect.
func (v *Vault) Burn(caller common.Address, tokenID uint64) (*uint256.Int, *uint256.Int, error) {
	owner, err := v.stakes.OwnerOf(tokenID)
	if err != nil {
		return nil, nil, err
	}
	if owner != caller {
		return nil, nil, fmt.Errorf("burn of id %d by %s: %w", tokenID, caller.Hex(), ErrNotAuthorized)
	}
	st, ok := v.byID[tokenID]
	if !ok {
		return nil, nil, fmt.Errorf("id %d: %w", tokenID, ledger.ErrUnknownStake)
	}
	if st.liquidity.IsZero() {
		return new(uint256.Int), new(uint256.Int), nil
	}

	amount0, amount1, err := st.pool.Burn(positionOwner(tokenID), st.liquidity)
	if err != nil {
		return nil, nil, err
	}
	st.liquidity.Clear()

	return amount0, amount1, nil
}

// Collect pays the stake's owed balances to recipient. The owner or an
// approved party may collect.
func (v *Vault) Collect(caller common.Address, tokenID uint64, recipient common.Address) (*uint256.Int, *uint256.Int, error) {
	if _, err := v.stakes.OwnerOf(tokenID); err != nil {
		return nil, nil, err
	}
	if !v.stakes.IsAuthorized(caller, tokenID) {
		return nil, nil, fmt.Errorf("collect of id %d by %s: %w", tokenID, caller.Hex(), ErrNotAuthorized)
	}
	st, ok := v.byID[tokenID]
	if !ok {
		return nil, nil, fmt.Errorf("id %d: %w", tokenID, ledger.ErrUnknownStake)
	}
	return st.pool.Collect(positionOwner(tokenID), recipient)
}

// OwnerOf delegates to the ownership ledger.
func (v *Vault) OwnerOf(tokenID uint64) (common.Address, error) {
	return v.stakes.OwnerOf(tokenID)
}

// Liquidity returns the stake's recorded liquidity.
func (v *Vault) Liquidity(tokenID uint64) (*uint256.Int, error) {
	st, ok := v.byID[tokenID]
	if !ok {
		return nil, fmt.Errorf("id %d: %w", tokenID, ledger.ErrUnknownStake)
	}
	return st.liquidity.Clone(), nil
}

// payFrom builds the engine callback that moves the computed amounts from
// the caller to the pool. Both sides are checked before either moves, so
// the callback is all-or-nothing.
func (v *Vault) payFrom(caller common.Address, pool *amm.Pool) amm.PayFunc {
	return func(amount0, amount1 *uint256.Int) error {
		token0, err := v.bank.Token(pool.Token0())
		if err != nil {
			return err
		}
		token1, err := v.bank.Token(pool.Token1())
		if err != nil {
			return err
		}

		if token0.Allowance(caller, v.address).Lt(amount0) {
			return fmt.Errorf("token0: %w", ledger.ErrInsufficientAllowance)
		}
		if token1.Allowance(caller, v.address).Lt(amount1) {
			return fmt.Errorf("token1: %w", ledger.ErrInsufficientAllowance)
		}
		if token0.BalanceOf(caller).Lt(amount0) {
			return fmt.Errorf("token0: %w", ledger.ErrInsufficientBalance)
		}
		if token1.BalanceOf(caller).Lt(amount1) {
			return fmt.Errorf("token1: %w", ledger.ErrInsufficientBalance)
		}

		if err := token0.TransferFrom(v.address, caller, pool.Address(), amount0); err != nil {
			return err
		}
		return token1.TransferFrom(v.address, caller, pool.Address(), amount1)
	}
}

// positionOwner derives the engine-side position key for a stake token id.
// The 0xee prefix keeps derived keys out of the regular account space.
func positionOwner(id uint64) common.Address {
	var addr common.Address
	addr[0] = 0xee
	binary.BigEndian.PutUint64(addr[12:], id)
	return addr
}
