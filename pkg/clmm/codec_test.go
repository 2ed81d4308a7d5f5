package clmm

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestPoolRecordRoundTrip(t *testing.T) {
	pool := newTestPool(t, 0)
	pos := openWithLiquidity(t, pool, -128, 128, 1_000_000)
	_, err := pool.Swap(SwapParams{Amount: 5_000, ExactInput: true, AToB: true})
	require.NoError(t, err)

	data := pool.EncodePool()
	require.Len(t, data, PoolRecordLen)

	decoded, err := DecodePool(data)
	require.NoError(t, err)
	require.Equal(t, pool.PoolId, decoded.PoolId)
	require.Equal(t, pool.TickSpacing, decoded.TickSpacing)
	require.Equal(t, pool.FeeRate, decoded.FeeRate)
	require.Equal(t, pool.SplitPolicy, decoded.SplitPolicy)
	require.True(t, decoded.SqrtPrice.Equals(pool.SqrtPrice))
	require.Equal(t, pool.TickCurrent, decoded.TickCurrent)
	require.True(t, decoded.Liquidity.Equals(pool.Liquidity))
	require.True(t, decoded.FeeGrowthGlobalA.Equals(pool.FeeGrowthGlobalA))
	require.Equal(t, pool.ProtocolFeeOwedA, decoded.ProtocolFeeOwedA)
	require.True(t, decoded.SwapInAmountA.Equals(pool.SwapInAmountA))

	// Tick and position records restore the companion stores.
	pool.Ticks.IterInitialized(func(tk *Tick) {
		restored, err := DecodeTick(EncodeTick(tk))
		require.NoError(t, err)
		decoded.Ticks.RestoreTick(restored)
	})
	require.Equal(t, pool.Ticks.InitializedCount(), decoded.Ticks.InitializedCount())
	got, initialized := decoded.Ticks.Get(-128)
	require.True(t, initialized)
	require.True(t, got.LiquidityNet.Equal(cosmath.NewInt(1_000_000)))

	posData, err := EncodePosition(pos)
	require.NoError(t, err)
	require.Len(t, posData, PositionRecordLen)
	restoredPos, err := DecodePosition(posData)
	require.NoError(t, err)
	decoded.Positions.RestorePosition(restoredPos)

	// The restored pool keeps trading identically.
	want, err := pool.QuoteSwap(SwapParams{Amount: 1_000, ExactInput: true, AToB: true})
	require.NoError(t, err)
	reloaded, err := decoded.QuoteSwap(SwapParams{Amount: 1_000, ExactInput: true, AToB: true})
	require.NoError(t, err)
	require.Equal(t, want, reloaded)
}

func TestTickRecordNegativeNet(t *testing.T) {
	tick := Tick{
		Index:          -128,
		LiquidityNet:   cosmath.NewInt(-1_000_000),
		LiquidityGross: uint128.From64(1_000_000),
	}
	decoded, err := DecodeTick(EncodeTick(&tick))
	require.NoError(t, err)
	require.Equal(t, int32(-128), decoded.Index)
	require.True(t, decoded.LiquidityNet.Equal(cosmath.NewInt(-1_000_000)))
	require.True(t, decoded.LiquidityGross.Equals(uint128.From64(1_000_000)))
}

func TestRecordValidation(t *testing.T) {
	pool := newTestPool(t, 0)
	data := pool.EncodePool()

	_, err := DecodePool(data[:100])
	require.ErrorIs(t, err, ErrRecordTooShort)

	data[0] ^= 0xff
	_, err = DecodePool(data)
	require.ErrorIs(t, err, ErrRecordDiscriminator)

	_, err = DecodeTick(make([]byte, 8))
	require.ErrorIs(t, err, ErrRecordTooShort)
	_, err = DecodePosition(make([]byte, PositionRecordLen))
	require.ErrorIs(t, err, ErrRecordDiscriminator)
}
