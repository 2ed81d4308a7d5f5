package fixedmath

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
)

// AmountADelta returns the amount of token A held between two sqrt prices for
// the given liquidity: L * (sqrtB - sqrtA) / (sqrtB * sqrtA), with the
// rounding direction chosen by the caller (deposits and swap inputs round up,
// withdrawals and swap outputs round down).
func AmountADelta(sqrtPriceA, sqrtPriceB, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	lower, upper := orderSqrtPrices(sqrtPriceA, sqrtPriceB)
	if !lower.IsPositive() {
		return cosmath.Int{}, ErrInvalidInput
	}

	numerator1 := cosmath.NewIntFromBigInt(new(big.Int).Lsh(liquidity.BigInt(), Resolution))
	numerator2 := upper.Sub(lower)

	if roundUp {
		inner, err := MulDivCeil(numerator1, numerator2, upper)
		if err != nil {
			return cosmath.Int{}, err
		}
		return MulDivCeil(inner, oneInt, lower)
	}
	inner, err := MulDivFloor(numerator1, numerator2, upper)
	if err != nil {
		return cosmath.Int{}, err
	}
	return inner.Quo(lower), nil
}

// AmountBDelta returns the amount of token B held between two sqrt prices for
// the given liquidity: L * (sqrtB - sqrtA) >> 64.
func AmountBDelta(sqrtPriceA, sqrtPriceB, liquidity cosmath.Int, roundUp bool) (cosmath.Int, error) {
	lower, upper := orderSqrtPrices(sqrtPriceA, sqrtPriceB)
	if !lower.IsPositive() {
		return cosmath.Int{}, ErrInvalidInput
	}

	diff := upper.Sub(lower)
	q64 := cosmath.NewIntFromBigInt(Q64)
	if roundUp {
		return MulDivCeil(liquidity, diff, q64)
	}
	return MulDivFloor(liquidity, diff, q64)
}

// NextSqrtPriceFromInput returns the sqrt price after consuming amountIn
// against the given liquidity. Token A input pushes the price down, token B
// input pushes it up. Rounding always favors the pool.
func NextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn cosmath.Int, aToB bool) (cosmath.Int, error) {
	if !sqrtPrice.IsPositive() || !liquidity.IsPositive() {
		return cosmath.Int{}, ErrInvalidInput
	}
	if amountIn.IsZero() {
		return sqrtPrice, nil
	}
	if aToB {
		return nextSqrtPriceFromAmountARoundingUp(sqrtPrice, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmountBRoundingDown(sqrtPrice, liquidity, amountIn, true)
}

// NextSqrtPriceFromOutput returns the sqrt price after paying amountOut from
// the given liquidity. Fails when the requested output exceeds what the
// virtual reserve can provide.
func NextSqrtPriceFromOutput(sqrtPrice, liquidity, amountOut cosmath.Int, aToB bool) (cosmath.Int, error) {
	if !sqrtPrice.IsPositive() || !liquidity.IsPositive() {
		return cosmath.Int{}, ErrInvalidInput
	}
	if aToB {
		return nextSqrtPriceFromAmountBRoundingDown(sqrtPrice, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmountARoundingUp(sqrtPrice, liquidity, amountOut, false)
}

func nextSqrtPriceFromAmountARoundingUp(sqrtPrice, liquidity, amount cosmath.Int, add bool) (cosmath.Int, error) {
	if amount.IsZero() {
		return sqrtPrice, nil
	}
	numerator1 := cosmath.NewIntFromBigInt(new(big.Int).Lsh(liquidity.BigInt(), Resolution))

	if add {
		denominator := numerator1.Add(amount.Mul(sqrtPrice))
		return MulDivCeil(numerator1, sqrtPrice, denominator)
	}

	product := amount.Mul(sqrtPrice)
	if numerator1.LTE(product) {
		return cosmath.Int{}, errorsmod.Wrap(ErrAmountExceeds, "token A output too large for liquidity")
	}
	denominator := numerator1.Sub(product)
	return MulDivCeil(numerator1, sqrtPrice, denominator)
}

func nextSqrtPriceFromAmountBRoundingDown(sqrtPrice, liquidity, amount cosmath.Int, add bool) (cosmath.Int, error) {
	shifted := cosmath.NewIntFromBigInt(new(big.Int).Lsh(amount.BigInt(), Resolution))

	if add {
		next := sqrtPrice.Add(shifted.Quo(liquidity))
		if next.GT(maxUint128Int) {
			return cosmath.Int{}, errorsmod.Wrap(ErrMulDivOverflow, "sqrt price overflow")
		}
		return next, nil
	}

	quotient, err := MulDivCeil(shifted, oneInt, liquidity)
	if err != nil {
		return cosmath.Int{}, err
	}
	if sqrtPrice.LTE(quotient) {
		return cosmath.Int{}, errorsmod.Wrap(ErrAmountExceeds, "token B output too large for liquidity")
	}
	return sqrtPrice.Sub(quotient), nil
}

func orderSqrtPrices(a, b cosmath.Int) (lower, upper cosmath.Int) {
	if a.GT(b) {
		return b, a
	}
	return a, b
}
