package clmm

import (
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"solclmm/pkg/tickmath"
)

func TestSwapExactInSingleInterval(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	res, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: true})
	require.NoError(t, err)

	require.Equal(t, int64(9975), res.AmountIn.Int64())
	require.Equal(t, int64(25), res.FeeAmount.Int64())
	require.Equal(t, int64(9876), res.AmountOut.Int64())
	require.Equal(t, uint64(3), res.ProtocolFee)
	require.Equal(t, "18264555136225700256", res.SqrtPrice.String())
	require.Equal(t, int32(-199), res.Tick)
	require.Empty(t, res.CrossedTicks)

	require.Equal(t, int32(-199), pool.TickCurrent)
	require.Equal(t, uint64(3), pool.ProtocolFeeOwedA)
	require.Equal(t, "405828369621610", pool.FeeGrowthGlobalA.String())
	require.True(t, pool.FeeGrowthGlobalB.IsZero())
	require.Equal(t, "10000", pool.SwapInAmountA.String())
	require.Equal(t, "9876", pool.SwapOutAmountB.String())
}

func TestSwapExactInBToA(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	res, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: false})
	require.NoError(t, err)

	require.Equal(t, int64(9975), res.AmountIn.Int64())
	require.Equal(t, int64(25), res.FeeAmount.Int64())
	require.Equal(t, int64(9876), res.AmountOut.Int64())
	require.Equal(t, "18630750345844804393", res.SqrtPrice.String())
	require.Equal(t, int32(198), res.Tick)
	require.Equal(t, uint64(3), pool.ProtocolFeeOwedB)
	require.True(t, pool.FeeGrowthGlobalA.IsZero())
}

func TestSwapExactOut(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	res, err := pool.Swap(SwapParams{Amount: 5_000, ExactInput: false, AToB: true})
	require.NoError(t, err)

	require.Equal(t, int64(5000), res.AmountOut.Int64())
	require.Equal(t, int64(5026), res.AmountIn.Int64())
	require.Equal(t, int64(13), res.FeeAmount.Int64())
	require.Equal(t, uint64(1), res.ProtocolFee)
	require.Equal(t, "18354510353341003857", res.SqrtPrice.String())
	require.Equal(t, int32(-101), res.Tick)
}

func TestSwapCrossesInitializedTick(t *testing.T) {
	pool := newTestPool(t, 0)
	p1 := openWithLiquidity(t, pool, -128, 128, 1_000_000)
	p2 := openWithLiquidity(t, pool, -512, -128, 2_000_000)

	res, err := pool.Swap(SwapParams{Amount: 25_000, ExactInput: true, AToB: true})
	require.NoError(t, err)

	require.Equal(t, int64(24936), res.AmountIn.Int64())
	require.Equal(t, int64(24491), res.AmountOut.Int64())
	require.Equal(t, int64(64), res.FeeAmount.Int64())
	require.Equal(t, uint64(7), res.ProtocolFee)
	require.Equal(t, "18162005567644791361", res.SqrtPrice.String())
	require.Equal(t, int32(-312), res.Tick)
	require.Equal(t, []int32{-128}, res.CrossedTicks)

	// After crossing, only the second range is active.
	require.Equal(t, int64(2_000_000), pool.ActiveLiquidity().Int64())

	// Fee attribution splits at the crossed boundary.
	feeA1, _, err := pool.CollectFees(p1.ID, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(14), feeA1)
	feeA2, _, err := pool.CollectFees(p2.ID, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(41), feeA2)
}

func TestSwapFailsAcrossLiquidityGap(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -128, 128, 1_000_000)
	// Disjoint second range: [-256, -128) holds no liquidity at all, even
	// though initialized boundaries exist beyond it.
	openWithLiquidity(t, pool, -512, -256, 1_000_000)

	before := pool.CurrentSqrtPrice()
	_, err := pool.Swap(SwapParams{Amount: 25_000, ExactInput: true, AToB: true})
	require.ErrorIs(t, err, ErrZeroLiquidityAtPrice, "a dead interval must not be glided across")

	// Failed swaps leave no trace.
	require.True(t, pool.CurrentSqrtPrice().Equal(before))
	require.Equal(t, int32(0), pool.TickCurrent)
	require.Equal(t, int64(1_000_000), pool.ActiveLiquidity().Int64())
	require.True(t, pool.FeeGrowthGlobalA.IsZero())
	require.True(t, pool.SwapInAmountA.IsZero())
}

func TestSwapZeroLiquidityExhaustion(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -128, 128, 1_000_000)
	openWithLiquidity(t, pool, -256, -128, 2_000_000)

	before := pool.CurrentSqrtPrice()
	_, err := pool.Swap(SwapParams{Amount: 30_000, ExactInput: true, AToB: true})
	require.ErrorIs(t, err, ErrZeroLiquidityAtPrice)

	// Failed swaps leave no trace.
	require.True(t, pool.CurrentSqrtPrice().Equal(before))
	require.Equal(t, int32(0), pool.TickCurrent)
	require.Equal(t, int64(1_000_000), pool.ActiveLiquidity().Int64())
	require.True(t, pool.FeeGrowthGlobalA.IsZero())
	require.Equal(t, uint64(0), pool.ProtocolFeeOwedA)
	require.True(t, pool.SwapInAmountA.IsZero())
}

func TestSwapAmountThreshold(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)
	before := pool.CurrentSqrtPrice()

	// Exact-in: the output would be 9876.
	_, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: true, AmountThreshold: 9_900})
	require.ErrorIs(t, err, ErrAmountOutBelowMinimum)
	require.True(t, pool.CurrentSqrtPrice().Equal(before), "rejected swap must not move the price")

	// Exact-out: the total input would be 5039.
	_, err = pool.Swap(SwapParams{Amount: 5_000, ExactInput: false, AToB: true, AmountThreshold: 5_000})
	require.ErrorIs(t, err, ErrAmountInAboveMaximum)

	_, err = pool.Swap(SwapParams{Amount: 5_000, ExactInput: false, AToB: true, AmountThreshold: 5_039})
	require.NoError(t, err)
}

func TestSwapSqrtPriceLimit(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	// A limit on the wrong side of the current price is rejected.
	_, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: true, SqrtPriceLimit: tickmath.MaxSqrtPriceX64})
	require.ErrorIs(t, err, ErrInvalidSqrtPriceLimit)
	_, err = pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: false, SqrtPriceLimit: tickmath.MinSqrtPriceX64})
	require.ErrorIs(t, err, ErrInvalidSqrtPriceLimit)

	// A limit inside the path stops execution exactly there, partially
	// filling the order.
	limit, err := tickmath.SqrtPriceFromTick(-100)
	require.NoError(t, err)
	res, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: true, SqrtPriceLimit: limit})
	require.NoError(t, err)
	require.True(t, res.SqrtPrice.Equal(limit))
	require.True(t, res.AmountIn.Add(res.FeeAmount).LT(cosmath.NewInt(10_000)))
}

func TestSwapInvalidAmount(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)
	_, err := pool.Swap(SwapParams{Amount: 0, ExactInput: true, AToB: true})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestQuoteSwapMatchesSwapAndLeavesStateAlone(t *testing.T) {
	build := func() *Pool {
		pool := newTestPool(t, 0)
		openWithLiquidity(t, pool, -128, 128, 1_000_000)
		openWithLiquidity(t, pool, -512, -128, 2_000_000)
		return pool
	}

	quotePool := build()
	before := quotePool.CurrentSqrtPrice()
	quote, err := quotePool.QuoteSwap(SwapParams{Amount: 25_000, ExactInput: true, AToB: true})
	require.NoError(t, err)
	require.True(t, quotePool.CurrentSqrtPrice().Equal(before))
	require.Equal(t, int32(0), quotePool.TickCurrent)
	require.Equal(t, int64(1_000_000), quotePool.ActiveLiquidity().Int64())

	swapPool := build()
	swapped, err := swapPool.Swap(SwapParams{Amount: 25_000, ExactInput: true, AToB: true})
	require.NoError(t, err)
	require.Equal(t, swapped, quote)
}

func TestSwapDeterminism(t *testing.T) {
	run := func() *SwapResult {
		pool := newTestPool(t, 0)
		openWithLiquidity(t, pool, -128, 128, 1_000_000)
		openWithLiquidity(t, pool, -512, -128, 2_000_000)
		res, err := pool.Swap(SwapParams{Amount: 25_000, ExactInput: true, AToB: true})
		require.NoError(t, err)
		return res
	}
	require.Equal(t, run(), run())
}

func TestSwapRoundTripMonotonicFees(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	// Swapping back and forth only ever grows the fee accumulators.
	prevA, prevB := pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB
	for i := 0; i < 10; i++ {
		aToB := i%2 == 0
		_, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: aToB})
		require.NoError(t, err)
		require.False(t, pool.FeeGrowthGlobalA.Cmp(prevA) < 0)
		require.False(t, pool.FeeGrowthGlobalB.Cmp(prevB) < 0)
		prevA, prevB = pool.FeeGrowthGlobalA, pool.FeeGrowthGlobalB
	}
}

func TestProtocolFeeCollection(t *testing.T) {
	pool := newTestPool(t, 0)
	openWithLiquidity(t, pool, -443584, 443584, 1_000_000)

	_, err := pool.Swap(SwapParams{Amount: 10_000, ExactInput: true, AToB: true})
	require.NoError(t, err)

	amountA, amountB := pool.CollectProtocolFees()
	require.Equal(t, uint64(3), amountA)
	require.Equal(t, uint64(0), amountB)

	amountA, amountB = pool.CollectProtocolFees()
	require.Equal(t, uint64(0), amountA)
	require.Equal(t, uint64(0), amountB)
}
