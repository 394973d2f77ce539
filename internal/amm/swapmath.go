package amm

import "github.com/holiman/uint256"

// swapStep is the outcome of advancing the price toward a target with an
// exact input budget.
type swapStep struct {
	sqrtPriceNextX96 *uint256.Int
	amountIn         *uint256.Int
	amountOut        *uint256.Int
	feeAmount        *uint256.Int
}

// computeSwapStep consumes as much of amountRemaining as the distance to
// sqrtTarget allows, charging feePips parts-per-million on the consumed
// input. Input amounts round up and output amounts round down, so rounding
// always favors the pool.
func computeSwapStep(sqrtPrice, sqrtTarget, liquidity, amountRemaining *uint256.Int, feePips uint32) swapStep {
	zeroForOne := sqrtPrice.Cmp(sqrtTarget) >= 0
	feeFactor := uint256.NewInt(uint64(1_000_000 - feePips))
	amountRemainingLessFee := mulDiv(amountRemaining, feeFactor, feePpmDenominator)

	var amountIn *uint256.Int
	if zeroForOne {
		amountIn = amount0Delta(sqrtTarget, sqrtPrice, liquidity, true)
	} else {
		amountIn = amount1Delta(sqrtPrice, sqrtTarget, liquidity, true)
	}

	var sqrtNext *uint256.Int
	if amountRemainingLessFee.Cmp(amountIn) >= 0 {
		sqrtNext = sqrtTarget.Clone()
	} else {
		sqrtNext = nextSqrtPriceFromInput(sqrtPrice, liquidity, amountRemainingLessFee, zeroForOne)
	}
	reachedTarget := sqrtNext.Eq(sqrtTarget)

	var amountOut *uint256.Int
	if zeroForOne {
		if !reachedTarget {
			amountIn = amount0Delta(sqrtNext, sqrtPrice, liquidity, true)
		}
		amountOut = amount1Delta(sqrtNext, sqrtPrice, liquidity, false)
	} else {
		if !reachedTarget {
			amountIn = amount1Delta(sqrtPrice, sqrtNext, liquidity, true)
		}
		amountOut = amount0Delta(sqrtPrice, sqrtNext, liquidity, false)
	}

	var feeAmount *uint256.Int
	if !reachedTarget {
		// The whole budget is consumed; whatever the curve did not need
		// becomes the fee.
		feeAmount = new(uint256.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount = mulDivRoundingUp(amountIn, uint256.NewInt(uint64(feePips)), feeFactor)
	}

	return swapStep{
		sqrtPriceNextX96: sqrtNext,
		amountIn:         amountIn,
		amountOut:        amountOut,
		feeAmount:        feeAmount,
	}
}
