// Package fixedmath provides the checked Q64.64 fixed-point primitives the
// pool engine is built on. All intermediate math runs on arbitrary-precision
// integers; results are bounds-checked against the 128-bit storage width
// before they are handed back. SettleGrowth is the one clamping operation,
// and documents why.
package fixedmath

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"
)

var (
	ErrMulDivOverflow = errorsmod.Register("fixedmath", 2, "mul-div result exceeds 128 bits")
	ErrDivideByZero   = errorsmod.Register("fixedmath", 3, "division by zero")
	ErrInvalidInput   = errorsmod.Register("fixedmath", 4, "sqrt price and liquidity must be positive")
	ErrAmountExceeds  = errorsmod.Register("fixedmath", 5, "amount exceeds virtual reserve")
)

// Resolution is the fractional bit width of the Q64.64 price format.
const Resolution = 64

var (
	// Q64 is 2^64, the fixed-point scaling factor.
	Q64 = new(big.Int).Lsh(big.NewInt(1), Resolution)

	// MaxUint128 bounds every stored accumulator and liquidity value.
	MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	maxUint128Int = cosmath.NewIntFromBigInt(MaxUint128)
	oneInt        = cosmath.OneInt()
)

// MulDivFloor returns floor(a*b/denominator), failing if the result does not
// fit in 128 bits.
func MulDivFloor(a, b, denominator cosmath.Int) (cosmath.Int, error) {
	if denominator.IsZero() {
		return cosmath.Int{}, ErrDivideByZero
	}
	result := a.Mul(b).Quo(denominator)
	if result.GT(maxUint128Int) {
		return cosmath.Int{}, errorsmod.Wrapf(ErrMulDivOverflow, "%s * %s / %s", a, b, denominator)
	}
	return result, nil
}

// MulDivCeil returns ceil(a*b/denominator), failing if the result does not
// fit in 128 bits.
func MulDivCeil(a, b, denominator cosmath.Int) (cosmath.Int, error) {
	if denominator.IsZero() {
		return cosmath.Int{}, ErrDivideByZero
	}
	numerator := a.Mul(b).Add(denominator.Sub(oneInt))
	result := numerator.Quo(denominator)
	if result.GT(maxUint128Int) {
		return cosmath.Int{}, errorsmod.Wrapf(ErrMulDivOverflow, "%s * %s / %s", a, b, denominator)
	}
	return result, nil
}

// MulShiftRight64 returns floor((a*b) >> 64). Used by the tick ladder where
// both operands are below 2^128 and the result is known to fit.
func MulShiftRight64(a, b cosmath.Int) cosmath.Int {
	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	return cosmath.NewIntFromBigInt(product.Rsh(product, Resolution))
}

// GrowthDelta converts a fee (or reward) amount into a per-unit-of-liquidity
// X64 accumulator increment: floor(amount << 64 / liquidity).
func GrowthDelta(amount, liquidity cosmath.Int) (uint128.Uint128, error) {
	if liquidity.IsZero() {
		return uint128.Zero, ErrDivideByZero
	}
	shifted := new(big.Int).Lsh(amount.BigInt(), Resolution)
	delta := shifted.Quo(shifted, liquidity.BigInt())
	return ToUint128(cosmath.NewIntFromBigInt(delta))
}

// ToUint128 converts a non-negative Int into its fixed-width storage form.
func ToUint128(v cosmath.Int) (uint128.Uint128, error) {
	if v.IsNegative() || v.GT(maxUint128Int) {
		return uint128.Zero, errorsmod.Wrapf(ErrMulDivOverflow, "value %s does not fit in u128", v)
	}
	return uint128.FromBig(v.BigInt()), nil
}

// FromUint128 widens a stored value back into math form.
func FromUint128(v uint128.Uint128) cosmath.Int {
	return cosmath.NewIntFromBigInt(v.Big())
}

// SettleGrowth scales an X64 growth delta back into a token amount owed for
// the given liquidity: floor(liquidity * growthDelta >> 64), capped at the
// u128 maximum. Settlement runs after boundary ticks have been mutated, so
// it must not be able to fail; the owed sink saturates at its own width
// anyway, so the cap never changes what a position is paid.
func SettleGrowth(liquidity cosmath.Int, growthDelta uint128.Uint128) cosmath.Int {
	product := new(big.Int).Mul(liquidity.BigInt(), growthDelta.Big())
	result := cosmath.NewIntFromBigInt(product.Rsh(product, Resolution))
	if result.GT(maxUint128Int) {
		return maxUint128Int
	}
	return result
}
