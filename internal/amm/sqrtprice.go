package amm

import "github.com/holiman/uint256"

// amount0Delta returns how much token0 corresponds to the given liquidity
// between two sqrt prices: L * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func amount0Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return divRoundingUp(mulDivRoundingUp(numerator1, numerator2, sqrtB), sqrtA)
	}
	return new(uint256.Int).Div(mulDiv(numerator1, numerator2, sqrtB), sqrtA)
}

// amount1Delta returns how much token1 corresponds to the given liquidity
// between two sqrt prices: L * (sqrtB - sqrtA) / 2^96.
func amount1Delta(sqrtA, sqrtB, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	if sqrtA.Gt(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, q96)
	}
	return mulDiv(liquidity, diff, q96)
}

// nextSqrtPriceFromInput returns the price after consuming amountIn of the
// input asset against fixed liquidity, rounded so the pool never gives away
// more output than the exact curve allows.
func nextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn *uint256.Int, zeroForOne bool) *uint256.Int {
	if zeroForOne {
		return nextSqrtPriceFromAmount0(sqrtPrice, liquidity, amountIn)
	}
	return nextSqrtPriceFromAmount1(sqrtPrice, liquidity, amountIn)
}

// nextSqrtPriceFromAmount0 solves for the lower price reached by adding
// token0: sqrtNext = L * sqrtP / (L + amount * sqrtP / 2^96), rounding up.
func nextSqrtPriceFromAmount0(sqrtPrice, liquidity, amount *uint256.Int) *uint256.Int {
	if amount.IsZero() {
		return sqrtPrice.Clone()
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	product, overflow := new(uint256.Int).MulOverflow(amount, sqrtPrice)
	if !overflow {
		denominator, carry := new(uint256.Int).AddOverflow(numerator1, product)
		if !carry {
			return mulDivRoundingUp(numerator1, sqrtPrice, denominator)
		}
	}

	// Overflowing intermediate: fall back to the precision-losing form
	// L * 2^96 / (L * 2^96 / sqrtP + amount).
	denominator := new(uint256.Int).Add(new(uint256.Int).Div(numerator1, sqrtPrice), amount)
	return divRoundingUp(numerator1, denominator)
}

// nextSqrtPriceFromAmount1 solves for the higher price reached by adding
// token1: sqrtNext = sqrtP + amount * 2^96 / L, rounding down.
func nextSqrtPriceFromAmount1(sqrtPrice, liquidity, amount *uint256.Int) *uint256.Int {
	quotient := mulDiv(amount, q96, liquidity)
	return new(uint256.Int).Add(sqrtPrice, quotient)
}
