package amm

import "errors"

var (
	// ErrAlreadyInitialized is returned by Initialize after the price is set.
	ErrAlreadyInitialized = errors.New("pool already initialized")

	// ErrUninitialized is returned by operations that need a price.
	ErrUninitialized = errors.New("pool not initialized")

	// ErrZeroAmount covers degenerate mints and swaps that would move nothing.
	ErrZeroAmount = errors.New("zero amount")

	// ErrInsufficientLiquidity covers burns beyond a position's liquidity
	// and swaps against an empty pool.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrLiquidityOverflow rejects mints that would push pool liquidity to
	// 2^128 or beyond.
	ErrLiquidityOverflow = errors.New("liquidity overflow")

	// ErrPriceLimit is returned when the current price already satisfies
	// the requested swap limit, or an initial price falls outside the range.
	ErrPriceLimit = errors.New("price limit reached")

	// ErrFundsNotReceived is returned when a payer callback reports success
	// but the pool's ledger balance did not grow by the requested amount.
	ErrFundsNotReceived = errors.New("requested funds not received")
)
