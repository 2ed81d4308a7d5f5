package fixedmath

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestMulDivRounding(t *testing.T) {
	floor, err := MulDivFloor(cosmath.NewInt(7), cosmath.NewInt(3), cosmath.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(10), floor.Int64())

	ceil, err := MulDivCeil(cosmath.NewInt(7), cosmath.NewInt(3), cosmath.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(11), ceil.Int64())

	exact, err := MulDivFloor(cosmath.NewInt(6), cosmath.NewInt(3), cosmath.NewInt(2))
	require.NoError(t, err)
	exactCeil, err := MulDivCeil(cosmath.NewInt(6), cosmath.NewInt(3), cosmath.NewInt(2))
	require.NoError(t, err)
	require.True(t, exact.Equal(exactCeil), "floor and ceil must agree on exact division")
}

func TestMulDivErrors(t *testing.T) {
	big := cosmath.NewIntFromBigInt(MaxUint128)

	_, err := MulDivFloor(big, cosmath.NewInt(2), cosmath.OneInt())
	require.ErrorIs(t, err, ErrMulDivOverflow)

	_, err = MulDivFloor(cosmath.OneInt(), cosmath.OneInt(), cosmath.ZeroInt())
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = MulDivCeil(cosmath.OneInt(), cosmath.OneInt(), cosmath.ZeroInt())
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestGrowthDeltaSettleGrowth(t *testing.T) {
	liquidity := cosmath.NewInt(1_000_000)

	delta, err := GrowthDelta(cosmath.NewInt(22), liquidity)
	require.NoError(t, err)
	require.Equal(t, "405828369621610", delta.String())

	// Settling loses at most one unit to flooring.
	earned := SettleGrowth(liquidity, delta)
	require.Equal(t, int64(21), earned.Int64())
}

func TestSettleGrowthCapsAtUint128(t *testing.T) {
	max := cosmath.NewIntFromBigInt(MaxUint128)
	earned := SettleGrowth(max, uint128.Max)
	require.True(t, earned.Equal(max))
}

func TestUint128Conversions(t *testing.T) {
	v := cosmath.NewIntFromBigInt(MaxUint128)
	u, err := ToUint128(v)
	require.NoError(t, err)
	require.True(t, FromUint128(u).Equal(v))

	_, err = ToUint128(v.Add(cosmath.OneInt()))
	require.Error(t, err)
	_, err = ToUint128(cosmath.NewInt(-1))
	require.Error(t, err)
}
