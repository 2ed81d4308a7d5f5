// Package tickmath converts between discretized tick indices and Q64.64
// square-root prices. Price grows by a factor of 1.0001 per tick; the
// conversion is pure integer math built from a precomputed ladder of Q64
// multipliers, one per bit of the tick index.
package tickmath

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"

	"solclmm/pkg/fixedmath"
)

const (
	// MinTick and MaxTick bound the representable price range.
	MinTick int32 = -443636
	MaxTick int32 = 443636

	// bitPrecision is the number of fractional log2 bits resolved when
	// inverting a sqrt price back to a tick.
	bitPrecision = 14
)

var (
	ErrTickOutOfRange  = errorsmod.Register("tickmath", 2, "tick index out of range")
	ErrPriceOutOfRange = errorsmod.Register("tickmath", 3, "sqrt price out of range")

	// MinSqrtPriceX64 and MaxSqrtPriceX64 are the ladder values at the tick
	// bounds; every valid pool price lies in [MinSqrtPriceX64, MaxSqrtPriceX64].
	MinSqrtPriceX64 = cosmath.NewIntFromUint64(4295048016)
	MaxSqrtPriceX64 = mustIntFromString("79226673521066979257578248091")

	maxUint128 = cosmath.NewIntFromBigInt(
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))

	// sqrt(1/1.0001)^(2^i) in Q64, for each bit i of a negative tick.
	tickLadder = [19]uint64{
		18445821805675395072,
		18444899583751176192,
		18443055278223355904,
		18439367220385607680,
		18431993317065453568,
		18417254355718170624,
		18387811781193609216,
		18329067761203558400,
		18212142134806163456,
		17980523815641700352,
		17526086738831433728,
		16651378430235570176,
		15030750278694412288,
		12247334978884435968,
		8131365268886854656,
		3584323654725218816,
		696457651848324352,
		26294789957507116,
		37481735321082,
	}

	logB2X32               = cosmath.NewIntFromUint64(59543866431248)
	logBPErrMarginLowerX64 = cosmath.NewIntFromUint64(184467440737095516)
	logBPErrMarginUpperX64 = mustIntFromString("15793534762490258745")

	q64Int = cosmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
)

// SqrtPriceFromTick returns the Q64.64 sqrt price at the given tick index.
func SqrtPriceFromTick(tick int32) (cosmath.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return cosmath.Int{}, errorsmod.Wrapf(ErrTickOutOfRange, "tick %d", tick)
	}

	tickAbs := tick
	if tickAbs < 0 {
		tickAbs = -tickAbs
	}

	ratio := q64Int
	if tickAbs&1 != 0 {
		ratio = cosmath.NewIntFromUint64(tickLadder[0])
	}
	for i := 1; i < len(tickLadder); i++ {
		if tickAbs&(1<<i) != 0 {
			ratio = fixedmath.MulShiftRight64(ratio, cosmath.NewIntFromUint64(tickLadder[i]))
		}
	}

	if tick > 0 {
		ratio = maxUint128.Quo(ratio)
	}
	return ratio, nil
}

// TickFromSqrtPrice returns the greatest tick whose sqrt price does not
// exceed the input. The fractional log2 is resolved by repeated squaring to
// bitPrecision bits, then converted to base 1.0001 with a fixed error margin
// and disambiguated against the exact ladder.
func TickFromSqrtPrice(sqrtPriceX64 cosmath.Int) (int32, error) {
	if sqrtPriceX64.LT(MinSqrtPriceX64) || sqrtPriceX64.GT(MaxSqrtPriceX64) {
		return 0, errorsmod.Wrapf(ErrPriceOutOfRange, "sqrt price %s", sqrtPriceX64)
	}

	msb := sqrtPriceX64.BigInt().BitLen() - 1
	log2IntegerX32 := new(big.Int).Lsh(big.NewInt(int64(msb-64)), 32)

	var r *big.Int
	if msb >= 64 {
		r = new(big.Int).Rsh(sqrtPriceX64.BigInt(), uint(msb-63))
	} else {
		r = new(big.Int).Lsh(sqrtPriceX64.BigInt(), uint(63-msb))
	}

	bit := new(big.Int).Lsh(big.NewInt(1), 63)
	log2FractionX64 := big.NewInt(0)
	for precision := 0; bit.Sign() > 0 && precision < bitPrecision; precision++ {
		r.Mul(r, r)
		overflow := new(big.Int).Rsh(r, 127)
		r.Rsh(r, uint(63+overflow.Int64()))
		log2FractionX64.Add(log2FractionX64, new(big.Int).Mul(bit, overflow))
		bit.Rsh(bit, 1)
	}

	log2X32 := new(big.Int).Add(log2IntegerX32, new(big.Int).Rsh(log2FractionX64, 32))
	logBPX64 := new(big.Int).Mul(log2X32, logB2X32.BigInt())

	tickLow := new(big.Int).Rsh(
		new(big.Int).Sub(logBPX64, logBPErrMarginLowerX64.BigInt()), 64)
	tickHigh := new(big.Int).Rsh(
		new(big.Int).Add(logBPX64, logBPErrMarginUpperX64.BigInt()), 64)

	if tickLow.Cmp(tickHigh) == 0 {
		return int32(tickLow.Int64()), nil
	}

	high := int32(tickHigh.Int64())
	if high > MaxTick {
		high = MaxTick
	}
	highSqrtPrice, err := SqrtPriceFromTick(high)
	if err != nil {
		return 0, err
	}
	if highSqrtPrice.LTE(sqrtPriceX64) {
		return high, nil
	}
	return int32(tickLow.Int64()), nil
}

// NearestValidTick rounds a tick toward zero to the nearest multiple of the
// pool's tick spacing, clamped to the representable range.
func NearestValidTick(tick int32, spacing uint16) int32 {
	s := int32(spacing)
	rounded := (tick / s) * s
	if rounded < MinTick {
		rounded += s
	} else if rounded > MaxTick {
		rounded -= s
	}
	return rounded
}

// IsAligned reports whether the tick is a valid boundary for the spacing.
func IsAligned(tick int32, spacing uint16) bool {
	return tick%int32(spacing) == 0
}

func mustIntFromString(s string) cosmath.Int {
	v, ok := cosmath.NewIntFromString(s)
	if !ok {
		panic("tickmath: bad integer constant " + s)
	}
	return v
}
