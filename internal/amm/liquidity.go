package amm

import "github.com/holiman/uint256"

// LiquidityForAmounts converts desired deposit amounts into the largest
// liquidity the range can honor without exceeding either amount. The
// current price picks the limiting side.
func LiquidityForAmounts(sqrtPrice, sqrtA, sqrtB, amount0, amount1 *uint256.Int) *uint256.Int {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		return liquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtPrice.Cmp(sqrtB) < 0:
		liquidity0 := liquidityForAmount0(sqrtPrice, sqrtB, amount0)
		liquidity1 := liquidityForAmount1(sqrtA, sqrtPrice, amount1)
		return minU256(liquidity0, liquidity1).Clone()
	default:
		return liquidityForAmount1(sqrtA, sqrtB, amount1)
	}
}

// liquidityForAmount0 inverts amount0 = L * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func liquidityForAmount0(sqrtA, sqrtB, amount0 *uint256.Int) *uint256.Int {
	intermediate := mulDiv(sqrtA, sqrtB, q96)
	return mulDiv(amount0, intermediate, new(uint256.Int).Sub(sqrtB, sqrtA))
}

// liquidityForAmount1 inverts amount1 = L * (sqrtB - sqrtA) / 2^96.
func liquidityForAmount1(sqrtA, sqrtB, amount1 *uint256.Int) *uint256.Int {
	return mulDiv(amount1, q96, new(uint256.Int).Sub(sqrtB, sqrtA))
}

// amountsForLiquidity returns the token amounts backing the given liquidity
// at the current price, clamped to the range bounds.
func amountsForLiquidity(sqrtPrice, sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) (*uint256.Int, *uint256.Int) {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	amount0 := new(uint256.Int)
	amount1 := new(uint256.Int)
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		amount0 = amount0Delta(sqrtA, sqrtB, liquidity, roundUp)
	case sqrtPrice.Cmp(sqrtB) < 0:
		amount0 = amount0Delta(sqrtPrice, sqrtB, liquidity, roundUp)
		amount1 = amount1Delta(sqrtA, sqrtPrice, liquidity, roundUp)
	default:
		amount1 = amount1Delta(sqrtA, sqrtB, liquidity, roundUp)
	}
	return amount0, amount1
}
