package amm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// AssetLedger is the fungible-asset collaborator the pool settles against.
type AssetLedger interface {
	BalanceOf(owner common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
}

// PayFunc supplies the token amounts a mint or swap requires, by
// transferring them to the pool address. Implementations must either move
// both amounts in full or return an error having moved nothing; the pool
// verifies its balances before committing any state change.
type PayFunc func(amount0, amount1 *uint256.Int) error

// Config describes an immutable pool instance.
type Config struct {
	Address   common.Address
	Token0    common.Address
	Token1    common.Address
	Fee       uint32 // parts per million, e.g. 3000 = 0.30%
	TickLower int
	TickUpper int
	Ledger0   AssetLedger
	Ledger1   AssetLedger
}

// Pool is a single-range concentrated-liquidity pool: one fixed price
// range, one price, one liquidity figure, and lazily settled fees.
type Pool struct {
	address   common.Address
	token0    common.Address
	token1    common.Address
	fee       uint32
	tickLower int
	tickUpper int
	sqrtLower *uint256.Int
	sqrtUpper *uint256.Int

	ledger0 AssetLedger
	ledger1 AssetLedger

	sqrtPriceX96         *uint256.Int // nil until Initialize
	liquidity            *uint256.Int
	feeGrowthGlobal0X128 *uint256.Int
	feeGrowthGlobal1X128 *uint256.Int
	positions            map[common.Address]*Position
}

// NewPool builds an uninitialized pool for the given configuration.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.TickLower >= cfg.TickUpper {
		return nil, fmt.Errorf("tick range [%d, %d) is empty", cfg.TickLower, cfg.TickUpper)
	}
	if cfg.Ledger0 == nil || cfg.Ledger1 == nil {
		return nil, fmt.Errorf("both asset ledgers are required")
	}
	sqrtLower, err := SqrtRatioAtTick(cfg.TickLower)
	if err != nil {
		return nil, fmt.Errorf("lower bound: %w", err)
	}
	sqrtUpper, err := SqrtRatioAtTick(cfg.TickUpper)
	if err != nil {
		return nil, fmt.Errorf("upper bound: %w", err)
	}

	return &Pool{
		address:              cfg.Address,
		token0:               cfg.Token0,
		token1:               cfg.Token1,
		fee:                  cfg.Fee,
		tickLower:            cfg.TickLower,
		tickUpper:            cfg.TickUpper,
		sqrtLower:            sqrtLower,
		sqrtUpper:            sqrtUpper,
		ledger0:              cfg.Ledger0,
		ledger1:              cfg.Ledger1,
		liquidity:            new(uint256.Int),
		feeGrowthGlobal0X128: new(uint256.Int),
		feeGrowthGlobal1X128: new(uint256.Int),
		positions:            make(map[common.Address]*Position),
	}, nil
}

// Initialize sets the starting price. It can succeed at most once, and the
// price must lie inside the pool's range.
func (p *Pool) Initialize(sqrtPriceX96 *uint256.Int) error {
	if p.sqrtPriceX96 != nil {
		return ErrAlreadyInitialized
	}
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return ErrZeroAmount
	}
	if sqrtPriceX96.Lt(p.sqrtLower) || sqrtPriceX96.Gt(p.sqrtUpper) {
		return fmt.Errorf("initial price outside range: %w", ErrPriceLimit)
	}
	p.sqrtPriceX96 = sqrtPriceX96.Clone()
	return nil
}

// Mint adds liquidity to the owner's position. The required token amounts
// are pulled through pay and verified against the pool's ledger balances
// before any state is committed.
func (p *Pool) Mint(owner common.Address, liquidityDelta *uint256.Int, pay PayFunc) (*uint256.Int, *uint256.Int, error) {
	if p.sqrtPriceX96 == nil {
		return nil, nil, ErrUninitialized
	}
	if liquidityDelta == nil || liquidityDelta.IsZero() {
		return nil, nil, fmt.Errorf("mint liquidity: %w", ErrZeroAmount)
	}
	// Pool liquidity stays below 2^128; the amount math relies on it.
	if total, overflow := new(uint256.Int).AddOverflow(p.liquidity, liquidityDelta); overflow || total.BitLen() > 128 {
		return nil, nil, fmt.Errorf("mint liquidity: %w", ErrLiquidityOverflow)
	}
	if pay == nil {
		return nil, nil, fmt.Errorf("mint: %w", ErrFundsNotReceived)
	}

	// Amounts owed to the pool round up.
	amount0, amount1 := amountsForLiquidity(p.sqrtPriceX96, p.sqrtLower, p.sqrtUpper, liquidityDelta, true)

	balance0Before := p.ledger0.BalanceOf(p.address)
	balance1Before := p.ledger1.BalanceOf(p.address)
	if err := pay(amount0.Clone(), amount1.Clone()); err != nil {
		return nil, nil, fmt.Errorf("mint payment: %w", err)
	}
	if err := p.verifyReceived(p.ledger0, balance0Before, amount0); err != nil {
		return nil, nil, fmt.Errorf("token0: %w", err)
	}
	if err := p.verifyReceived(p.ledger1, balance1Before, amount1); err != nil {
		return nil, nil, fmt.Errorf("token1: %w", err)
	}

	position := p.position(owner)
	position.settle(p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)
	position.Liquidity.Add(position.Liquidity, liquidityDelta)
	p.liquidity.Add(p.liquidity, liquidityDelta)

	return amount0, amount1, nil
}

// Burn removes liquidity from the owner's position. The freed amounts are
// only credited to tokensOwed; withdrawal happens through Collect.
func (p *Pool) Burn(owner common.Address, liquidityDelta *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if p.sqrtPriceX96 == nil {
		return nil, nil, ErrUninitialized
	}
	if liquidityDelta == nil || liquidityDelta.IsZero() {
		return nil, nil, fmt.Errorf("burn liquidity: %w", ErrZeroAmount)
	}
	position, ok := p.positions[owner]
	if !ok || liquidityDelta.Gt(position.Liquidity) {
		return nil, nil, fmt.Errorf("burn %s exceeds position: %w", liquidityDelta.Dec(), ErrInsufficientLiquidity)
	}

	position.settle(p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)

	// Amounts returned to the provider round down.
	amount0, amount1 := amountsForLiquidity(p.sqrtPriceX96, p.sqrtLower, p.sqrtUpper, liquidityDelta, false)
	position.Liquidity.Sub(position.Liquidity, liquidityDelta)
	p.liquidity.Sub(p.liquidity, liquidityDelta)
	position.TokensOwed0.Add(position.TokensOwed0, amount0)
	position.TokensOwed1.Add(position.TokensOwed1, amount1)

	return amount0, amount1, nil
}

// Collect pays out everything the owner's position is owed. Collecting with
// nothing owed transfers zero and succeeds.
func (p *Pool) Collect(owner, recipient common.Address) (*uint256.Int, *uint256.Int, error) {
	if p.sqrtPriceX96 == nil {
		return nil, nil, ErrUninitialized
	}
	position, ok := p.positions[owner]
	if !ok {
		return new(uint256.Int), new(uint256.Int), nil
	}
	position.settle(p.feeGrowthGlobal0X128, p.feeGrowthGlobal1X128)

	// Rounding dust stays in the pool, so owed amounts never exceed the
	// pool balance; the clamp guards a misbehaving ledger, and whatever
	// cannot be paid now stays owed.
	amount0 := minU256(position.TokensOwed0, p.ledger0.BalanceOf(p.address)).Clone()
	amount1 := minU256(position.TokensOwed1, p.ledger1.BalanceOf(p.address)).Clone()

	if !amount0.IsZero() {
		if err := p.ledger0.Transfer(p.address, recipient, amount0); err != nil {
			return nil, nil, fmt.Errorf("collect token0: %w", err)
		}
	}
	if !amount1.IsZero() {
		if err := p.ledger1.Transfer(p.address, recipient, amount1); err != nil {
			return nil, nil, fmt.Errorf("collect token1: %w", err)
		}
	}
	position.TokensOwed0.Sub(position.TokensOwed0, amount0)
	position.TokensOwed1.Sub(position.TokensOwed1, amount1)

	return amount0, amount1, nil
}

// Swap trades an exact input amount against the pool in a single step. The
// fee is deducted from the input and folded into the matching fee-growth
// accumulator; liquidity is unchanged. Returns the gross input consumed and
// the output pushed to recipient.
func (p *Pool) Swap(recipient common.Address, amountSpecified, sqrtPriceLimitX96 *uint256.Int, zeroForOne bool, pay PayFunc) (*uint256.Int, *uint256.Int, error) {
	if p.sqrtPriceX96 == nil {
		return nil, nil, ErrUninitialized
	}
	if p.liquidity.IsZero() {
		return nil, nil, fmt.Errorf("swap: %w", ErrInsufficientLiquidity)
	}
	if amountSpecified == nil || amountSpecified.IsZero() {
		return nil, nil, fmt.Errorf("swap input: %w", ErrZeroAmount)
	}
	if pay == nil {
		return nil, nil, fmt.Errorf("swap: %w", ErrFundsNotReceived)
	}

	var sqrtTarget *uint256.Int
	if zeroForOne {
		if sqrtPriceLimitX96 == nil || sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) >= 0 {
			return nil, nil, fmt.Errorf("limit above current price: %w", ErrPriceLimit)
		}
		sqrtTarget = maxU256(sqrtPriceLimitX96, p.sqrtLower)
	} else {
		if sqrtPriceLimitX96 == nil || sqrtPriceLimitX96.Cmp(p.sqrtPriceX96) <= 0 {
			return nil, nil, fmt.Errorf("limit below current price: %w", ErrPriceLimit)
		}
		sqrtTarget = minU256(sqrtPriceLimitX96, p.sqrtUpper)
	}

	step := computeSwapStep(p.sqrtPriceX96, sqrtTarget, p.liquidity, amountSpecified, p.fee)
	if step.amountOut.IsZero() {
		return nil, nil, fmt.Errorf("swap output: %w", ErrZeroAmount)
	}
	amountIn := new(uint256.Int).Add(step.amountIn, step.feeAmount)

	inLedger, outLedger := p.ledger0, p.ledger1
	if !zeroForOne {
		inLedger, outLedger = p.ledger1, p.ledger0
	}
	if outLedger.BalanceOf(p.address).Lt(step.amountOut) {
		return nil, nil, fmt.Errorf("swap output reserve: %w", ErrInsufficientLiquidity)
	}

	inBalanceBefore := inLedger.BalanceOf(p.address)
	if zeroForOne {
		if err := pay(amountIn.Clone(), new(uint256.Int)); err != nil {
			return nil, nil, fmt.Errorf("swap payment: %w", err)
		}
	} else {
		if err := pay(new(uint256.Int), amountIn.Clone()); err != nil {
			return nil, nil, fmt.Errorf("swap payment: %w", err)
		}
	}
	if err := p.verifyReceived(inLedger, inBalanceBefore, amountIn); err != nil {
		return nil, nil, fmt.Errorf("swap input: %w", err)
	}
	if err := outLedger.Transfer(p.address, recipient, step.amountOut); err != nil {
		return nil, nil, fmt.Errorf("swap output: %w", err)
	}

	p.sqrtPriceX96 = step.sqrtPriceNextX96
	feeGrowth := mulDiv(step.feeAmount, q128, p.liquidity)
	if zeroForOne {
		p.feeGrowthGlobal0X128.Add(p.feeGrowthGlobal0X128, feeGrowth)
	} else {
		p.feeGrowthGlobal1X128.Add(p.feeGrowthGlobal1X128, feeGrowth)
	}

	return amountIn, step.amountOut, nil
}

func (p *Pool) verifyReceived(ledger AssetLedger, balanceBefore, expected *uint256.Int) error {
	if expected.IsZero() {
		return nil
	}
	balance := ledger.BalanceOf(p.address)
	received := new(uint256.Int)
	if balance.Gt(balanceBefore) {
		received.Sub(balance, balanceBefore)
	}
	if received.Lt(expected) {
		return fmt.Errorf("received %s of %s: %w", received.Dec(), expected.Dec(), ErrFundsNotReceived)
	}
	return nil
}

func (p *Pool) position(owner common.Address) *Position {
	position, ok := p.positions[owner]
	if !ok {
		position = newPosition()
		p.positions[owner] = position
	}
	return position
}

// Position returns a copy of the owner's position state.
func (p *Pool) Position(owner common.Address) (Position, bool) {
	position, ok := p.positions[owner]
	if !ok {
		return Position{}, false
	}
	return position.clone(), true
}

// PositionLiquiditySum adds up the liquidity of every position, which must
// always equal Liquidity().
func (p *Pool) PositionLiquiditySum() *uint256.Int {
	sum := new(uint256.Int)
	for _, position := range p.positions {
		sum.Add(sum, position.Liquidity)
	}
	return sum
}

func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) Token0() common.Address  { return p.token0 }
func (p *Pool) Token1() common.Address  { return p.token1 }
func (p *Pool) Fee() uint32             { return p.fee }
func (p *Pool) TickLower() int          { return p.tickLower }
func (p *Pool) TickUpper() int          { return p.tickUpper }

// Initialized reports whether the starting price has been set.
func (p *Pool) Initialized() bool { return p.sqrtPriceX96 != nil }

// SqrtPriceX96 returns the current price, or zero before initialization.
func (p *Pool) SqrtPriceX96() *uint256.Int {
	if p.sqrtPriceX96 == nil {
		return new(uint256.Int)
	}
	return p.sqrtPriceX96.Clone()
}

func (p *Pool) Liquidity() *uint256.Int { return p.liquidity.Clone() }

func (p *Pool) SqrtRatioLowerX96() *uint256.Int { return p.sqrtLower.Clone() }
func (p *Pool) SqrtRatioUpperX96() *uint256.Int { return p.sqrtUpper.Clone() }

func (p *Pool) FeeGrowthGlobal0X128() *uint256.Int { return p.feeGrowthGlobal0X128.Clone() }
func (p *Pool) FeeGrowthGlobal1X128() *uint256.Int { return p.feeGrowthGlobal1X128.Clone() }
