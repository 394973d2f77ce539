package amm

import "github.com/holiman/uint256"

// Position tracks one provider's stake in the pool together with the lazy
// fee-settlement state: a snapshot of the global fee-growth accumulators at
// the last touch plus the amounts already owed.
type Position struct {
	Liquidity                *uint256.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *uint256.Int
	TokensOwed1              *uint256.Int
}

func newPosition() *Position {
	return &Position{
		Liquidity:                new(uint256.Int),
		FeeGrowthInside0LastX128: new(uint256.Int),
		FeeGrowthInside1LastX128: new(uint256.Int),
		TokensOwed0:              new(uint256.Int),
		TokensOwed1:              new(uint256.Int),
	}
}

// settle credits fees accrued since the last touch and advances the
// snapshots: owed += liquidity * (global - last) / 2^128 per asset.
func (p *Position) settle(feeGrowthGlobal0X128, feeGrowthGlobal1X128 *uint256.Int) {
	if !p.Liquidity.IsZero() {
		delta0 := new(uint256.Int).Sub(feeGrowthGlobal0X128, p.FeeGrowthInside0LastX128)
		delta1 := new(uint256.Int).Sub(feeGrowthGlobal1X128, p.FeeGrowthInside1LastX128)
		p.TokensOwed0.Add(p.TokensOwed0, mulDiv(delta0, p.Liquidity, q128))
		p.TokensOwed1.Add(p.TokensOwed1, mulDiv(delta1, p.Liquidity, q128))
	}
	p.FeeGrowthInside0LastX128 = feeGrowthGlobal0X128.Clone()
	p.FeeGrowthInside1LastX128 = feeGrowthGlobal1X128.Clone()
}

func (p *Position) clone() Position {
	return Position{
		Liquidity:                p.Liquidity.Clone(),
		FeeGrowthInside0LastX128: p.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: p.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              p.TokensOwed0.Clone(),
		TokensOwed1:              p.TokensOwed1.Clone(),
	}
}
