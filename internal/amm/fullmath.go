package amm

import "github.com/holiman/uint256"

var (
	q96  = uint256.MustFromHex("0x1000000000000000000000000")
	q128 = uint256.MustFromHex("0x100000000000000000000000000000000")

	feePpmDenominator = uint256.NewInt(1_000_000)
)

// mulDiv returns floor(a*b/d) using a 512-bit intermediate product. The
// quotient must fit 256 bits: pool liquidity is held below 2^128 and sqrt
// prices below 2^160, which bounds every quotient the pool computes.
func mulDiv(a, b, d *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	z.MulDivOverflow(a, b, d)
	return z
}

// mulDivRoundingUp returns ceil(a*b/d).
func mulDivRoundingUp(a, b, d *uint256.Int) *uint256.Int {
	z := mulDiv(a, b, d)
	if !new(uint256.Int).MulMod(a, b, d).IsZero() {
		z.AddUint64(z, 1)
	}
	return z
}

// divRoundingUp returns ceil(a/d).
func divRoundingUp(a, d *uint256.Int) *uint256.Int {
	z := new(uint256.Int)
	m := new(uint256.Int)
	z.DivMod(a, d, m)
	if !m.IsZero() {
		z.AddUint64(z, 1)
	}
	return z
}

func minU256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}

func maxU256(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return a
	}
	return b
}
