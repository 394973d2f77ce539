package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Tick bounds of the logarithmic price grid, matching a minimum price of
// 2^-128 and a maximum of 2^128 between the two assets.
const (
	MinTick = -887272
	MaxTick = 887272
)

var (
	maxUint256 = uint256.MustFromHex("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	mask32     = uint256.NewInt(0xffffffff)

	// Q128.128 multiplier for an odd tick, i.e. sqrt(1/1.0001) << 128.
	tickBaseOdd = uint256.MustFromHex("0xfffcb933bd6fad37aa2d162d1a594001")

	// Per-bit multipliers for ticks 2^1 .. 2^19, each sqrt(1.0001^-2^i) << 128.
	tickMultipliers = []*uint256.Int{
		uint256.MustFromHex("0xfff97272373d413259a46990580e213a"),
		uint256.MustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
		uint256.MustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
		uint256.MustFromHex("0xffcb9843d60f6159c9db58835c926644"),
		uint256.MustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
		uint256.MustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
		uint256.MustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
		uint256.MustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
		uint256.MustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
		uint256.MustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
		uint256.MustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
		uint256.MustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
		uint256.MustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
		uint256.MustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
		uint256.MustFromHex("0x31be135f97d08fd981231505542fcfa6"),
		uint256.MustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
		uint256.MustFromHex("0x5d6af8dedb81196699c329225ee604"),
		uint256.MustFromHex("0x2216e584f5fa1ea926041bedfe98"),
		uint256.MustFromHex("0x48a170391f7dc42444e8fa2"),
	}
)

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed-point number.
func SqrtRatioAtTick(tick int) (*uint256.Int, error) {
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}
	if absTick > MaxTick {
		return nil, fmt.Errorf("tick %d out of range", tick)
	}

	var ratio *uint256.Int
	if absTick&1 != 0 {
		ratio = tickBaseOdd.Clone()
	} else {
		ratio = q128.Clone()
	}
	for i, multiplier := range tickMultipliers {
		if absTick&(1<<(uint(i)+1)) != 0 {
			ratio = mulDiv(ratio, multiplier, q128)
		}
	}
	if tick > 0 {
		ratio = new(uint256.Int).Div(maxUint256, ratio)
	}

	// Q128.128 down to Q64.96, rounding up so the two conversions of a
	// round trip never land below the tick boundary.
	sqrtPrice := new(uint256.Int).Rsh(ratio, 32)
	if !new(uint256.Int).And(ratio, mask32).IsZero() {
		sqrtPrice.AddUint64(sqrtPrice, 1)
	}
	return sqrtPrice, nil
}
