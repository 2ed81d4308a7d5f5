package clmm

import (
	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"solclmm/pkg/feetier"
	"solclmm/pkg/fixedmath"
	"solclmm/pkg/tickmath"
)

// maxSwapSteps bounds the tick-interval loop. A swap that walks this many
// initialized boundaries is malformed input, not a real trade.
const maxSwapSteps = 1024

// SwapParams describes one swap request.
type SwapParams struct {
	// Amount is the input amount when ExactInput, the output amount
	// otherwise. Must be nonzero.
	Amount     uint64
	ExactInput bool
	// AToB is the direction: true swaps token A for token B, driving the
	// sqrt price down.
	AToB bool
	// SqrtPriceLimit stops execution when the price would move past it.
	// Zero selects the directional bound, disabling the limit.
	SqrtPriceLimit cosmath.Int
	// AmountThreshold is the minimum output for exact-input swaps and the
	// maximum total input for exact-output swaps. Zero disables the check.
	AmountThreshold uint64
	// Now is the caller-supplied unix timestamp used to advance reward
	// emission before the swap executes.
	Now uint64
}

// SwapResult reports an executed (or quoted) swap.
type SwapResult struct {
	AmountIn     cosmath.Int // input principal, fee excluded
	AmountOut    cosmath.Int
	FeeAmount    cosmath.Int
	ProtocolFee  uint64
	SqrtPrice    cosmath.Int
	Tick         int32
	CrossedTicks []int32
}

// tickCrossing captures which boundary a swap computation crossed and what
// the growth globals were at that instant, so commit can flip the outside
// snapshots against the correct values.
type tickCrossing struct {
	tick          int32
	feeGlobalA    uint128.Uint128
	feeGlobalB    uint128.Uint128
	rewardGlobals [NumRewards]uint128.Uint128
}

// swapState is the shadow state a swap computes into. Nothing touches the
// pool until the computation, including the slippage check, has succeeded.
type swapState struct {
	amountRemaining  cosmath.Int
	amountIn         cosmath.Int
	amountOut        cosmath.Int
	feeAmount        cosmath.Int
	protocolFee      uint64
	sqrtPrice        cosmath.Int
	tick             int32
	liquidity        cosmath.Int
	feeGrowthGlobal  uint128.Uint128
	crossings        []tickCrossing
}

// Swap executes a swap against the pool. The computation runs entirely on
// shadow state; the pool commits only after every check, the amount
// threshold included, has passed.
func (p *Pool) Swap(params SwapParams) (*SwapResult, error) {
	rewardGrowths := p.advancedRewardGrowths(params.Now)
	state, err := p.computeSwap(params, rewardGrowths)
	if err != nil {
		return nil, err
	}
	if err := p.commitSwap(params, state, rewardGrowths); err != nil {
		return nil, err
	}
	return swapResultFrom(state), nil
}

// QuoteSwap runs the same computation as Swap without committing anything.
func (p *Pool) QuoteSwap(params SwapParams) (*SwapResult, error) {
	rewardGrowths := p.advancedRewardGrowths(params.Now)
	state, err := p.computeSwap(params, rewardGrowths)
	if err != nil {
		return nil, err
	}
	return swapResultFrom(state), nil
}

func swapResultFrom(state *swapState) *SwapResult {
	crossed := make([]int32, len(state.crossings))
	for i, c := range state.crossings {
		crossed[i] = c.tick
	}
	return &SwapResult{
		AmountIn:     state.amountIn,
		AmountOut:    state.amountOut,
		FeeAmount:    state.feeAmount,
		ProtocolFee:  state.protocolFee,
		SqrtPrice:    state.sqrtPrice,
		Tick:         state.tick,
		CrossedTicks: crossed,
	}
}

func (p *Pool) computeSwap(params SwapParams, rewardGrowths [NumRewards]uint128.Uint128) (*swapState, error) {
	if params.Amount == 0 {
		return nil, errorsmod.Wrap(ErrInvalidAmount, "swap amount is zero")
	}
	limit, err := p.resolveSqrtPriceLimit(params)
	if err != nil {
		return nil, err
	}

	feeGlobalIn := p.FeeGrowthGlobalA
	if !params.AToB {
		feeGlobalIn = p.FeeGrowthGlobalB
	}
	state := &swapState{
		amountRemaining:  cosmath.NewIntFromUint64(params.Amount),
		amountIn:         cosmath.ZeroInt(),
		amountOut:        cosmath.ZeroInt(),
		feeAmount:        cosmath.ZeroInt(),
		sqrtPrice:        fixedmath.FromUint128(p.SqrtPrice),
		tick:             p.TickCurrent,
		liquidity:        fixedmath.FromUint128(p.Liquidity),
		feeGrowthGlobal:  feeGlobalIn,
	}

	steps := 0
	for state.amountRemaining.IsPositive() && !state.sqrtPrice.Equal(limit) {
		steps++
		if steps > maxSwapSteps {
			return nil, errorsmod.Wrapf(ErrSwapStepLimitExceeded, "more than %d tick intervals", maxSwapSteps)
		}

		// A gap interval with amount still to fill is a structural pool
		// failure, not something to glide across.
		if state.liquidity.IsZero() {
			return nil, errorsmod.Wrapf(ErrZeroLiquidityAtPrice, "no liquidity at tick %d with %s remaining", state.tick, state.amountRemaining)
		}
		tickNext, initialized := p.Ticks.NextInitializedTick(state.tick, params.AToB)
		sqrtPriceNext, err := tickmath.SqrtPriceFromTick(tickNext)
		if err != nil {
			return nil, err
		}
		target := sqrtPriceNext
		if params.AToB {
			if limit.GT(target) {
				target = limit
			}
		} else if limit.LT(target) {
			target = limit
		}

		step, err := swapStep(state.sqrtPrice, target, state.liquidity, state.amountRemaining, p.FeeRate, params.ExactInput, params.AToB)
		if err != nil {
			return nil, err
		}

		if params.ExactInput {
			state.amountRemaining = state.amountRemaining.Sub(step.amountIn).Sub(step.feeAmount)
		} else {
			state.amountRemaining = state.amountRemaining.Sub(step.amountOut)
		}
		state.amountIn = state.amountIn.Add(step.amountIn)
		state.amountOut = state.amountOut.Add(step.amountOut)
		state.feeAmount = state.feeAmount.Add(step.feeAmount)

		lpFee, protoFee := feetier.SplitFee(step.feeAmount, p.ProtocolFeeShare, p.SplitPolicy)
		state.protocolFee += protoFee
		if lpFee.IsPositive() && state.liquidity.IsPositive() {
			delta, err := fixedmath.GrowthDelta(lpFee, state.liquidity)
			if err != nil {
				return nil, err
			}
			state.feeGrowthGlobal = state.feeGrowthGlobal.AddWrap(delta)
		}

		if step.nextSqrtPrice.Equal(sqrtPriceNext) {
			if initialized {
				state.recordCrossing(p, params.AToB, tickNext, rewardGrowths)
				t, _ := p.Ticks.Get(tickNext)
				net := t.LiquidityNet
				if params.AToB {
					net = net.Neg()
				}
				state.liquidity = state.liquidity.Add(net)
				if state.liquidity.IsNegative() {
					return nil, errorsmod.Wrapf(ErrInsufficientLiquidity, "tick %d drives liquidity negative", tickNext)
				}
			}
			if params.AToB {
				state.tick = tickNext - 1
			} else {
				state.tick = tickNext
			}
		} else if !step.nextSqrtPrice.Equal(state.sqrtPrice) {
			state.tick, err = tickmath.TickFromSqrtPrice(step.nextSqrtPrice)
			if err != nil {
				return nil, err
			}
		}
		state.sqrtPrice = step.nextSqrtPrice
	}

	if params.AmountThreshold != 0 {
		threshold := cosmath.NewIntFromUint64(params.AmountThreshold)
		if params.ExactInput && state.amountOut.LT(threshold) {
			return nil, errorsmod.Wrapf(ErrAmountOutBelowMinimum, "output %s below threshold %s", state.amountOut, threshold)
		}
		if !params.ExactInput && state.amountIn.Add(state.feeAmount).GT(threshold) {
			return nil, errorsmod.Wrapf(ErrAmountInAboveMaximum, "input %s above threshold %s", state.amountIn.Add(state.feeAmount), threshold)
		}
	}
	return state, nil
}

func (state *swapState) recordCrossing(p *Pool, aToB bool, tick int32, rewardGrowths [NumRewards]uint128.Uint128) {
	feeA, feeB := p.FeeGrowthGlobalA, p.FeeGrowthGlobalB
	if aToB {
		feeA = state.feeGrowthGlobal
	} else {
		feeB = state.feeGrowthGlobal
	}
	state.crossings = append(state.crossings, tickCrossing{
		tick:          tick,
		feeGlobalA:    feeA,
		feeGlobalB:    feeB,
		rewardGlobals: rewardGrowths,
	})
}

// commitSwap applies a validated computation to the pool: crossings replay
// in order against the globals captured when each happened, then the final
// price, tick, liquidity, fee, and volume state lands in one pass.
func (p *Pool) commitSwap(params SwapParams, state *swapState, rewardGrowths [NumRewards]uint128.Uint128) error {
	for _, c := range state.crossings {
		p.FeeGrowthGlobalA = c.feeGlobalA
		p.FeeGrowthGlobalB = c.feeGlobalB
		for i := 0; i < NumRewards; i++ {
			p.RewardInfos[i].GrowthGlobalX64 = c.rewardGlobals[i]
		}
		if err := p.CrossTick(c.tick, params.AToB); err != nil {
			return err
		}
	}

	if params.AToB {
		p.FeeGrowthGlobalA = state.feeGrowthGlobal
	} else {
		p.FeeGrowthGlobalB = state.feeGrowthGlobal
	}
	sqrtPriceU, err := fixedmath.ToUint128(state.sqrtPrice)
	if err != nil {
		return err
	}
	liquidityU, err := fixedmath.ToUint128(state.liquidity)
	if err != nil {
		return errorsmod.Wrap(ErrLiquidityOverflow, "post-swap liquidity")
	}
	p.SqrtPrice = sqrtPriceU
	p.TickCurrent = state.tick
	p.Liquidity = liquidityU

	grossIn := state.amountIn.Add(state.feeAmount)
	if params.AToB {
		p.ProtocolFeeOwedA = saturatingAddU64(p.ProtocolFeeOwedA, cosmath.NewIntFromUint64(state.protocolFee))
		p.SwapInAmountA = p.SwapInAmountA.AddWrap(mustUint128(grossIn))
		p.SwapOutAmountB = p.SwapOutAmountB.AddWrap(mustUint128(state.amountOut))
	} else {
		p.ProtocolFeeOwedB = saturatingAddU64(p.ProtocolFeeOwedB, cosmath.NewIntFromUint64(state.protocolFee))
		p.SwapInAmountB = p.SwapInAmountB.AddWrap(mustUint128(grossIn))
		p.SwapOutAmountA = p.SwapOutAmountA.AddWrap(mustUint128(state.amountOut))
	}
	p.commitRewardGrowths(rewardGrowths, params.Now)
	return nil
}

func (p *Pool) resolveSqrtPriceLimit(params SwapParams) (cosmath.Int, error) {
	current := fixedmath.FromUint128(p.SqrtPrice)
	if params.SqrtPriceLimit.IsNil() || params.SqrtPriceLimit.IsZero() {
		if params.AToB {
			return tickmath.MinSqrtPriceX64, nil
		}
		return tickmath.MaxSqrtPriceX64, nil
	}
	limit := params.SqrtPriceLimit
	if params.AToB {
		if limit.GTE(current) || limit.LT(tickmath.MinSqrtPriceX64) {
			return cosmath.Int{}, errorsmod.Wrapf(ErrInvalidSqrtPriceLimit, "limit %s, current %s, direction a->b", limit, current)
		}
	} else if limit.LTE(current) || limit.GT(tickmath.MaxSqrtPriceX64) {
		return cosmath.Int{}, errorsmod.Wrapf(ErrInvalidSqrtPriceLimit, "limit %s, current %s, direction b->a", limit, current)
	}
	return limit, nil
}

// stepResult is one tick interval's worth of swap execution.
type stepResult struct {
	nextSqrtPrice cosmath.Int
	amountIn      cosmath.Int
	amountOut     cosmath.Int
	feeAmount     cosmath.Int
}

// swapStep advances the price within a single tick interval, stopping at
// whichever comes first: the target price or exhaustion of the remaining
// amount. Input amounts round up and output amounts round down, always in
// the pool's favor.
func swapStep(
	sqrtPrice, target, liquidity, amountRemaining cosmath.Int,
	feeRate uint16,
	exactInput, aToB bool,
) (stepResult, error) {
	var res stepResult
	var err error

	feeRateInt := cosmath.NewIntFromUint64(uint64(feeRate))
	feeDenom := cosmath.NewIntFromUint64(feetier.FeeRateDenominator)

	if exactInput {
		remainingLessFee, ferr := fixedmath.MulDivFloor(amountRemaining, feeDenom.Sub(feeRateInt), feeDenom)
		if ferr != nil {
			return res, ferr
		}
		res.amountIn, err = amountInToTarget(sqrtPrice, target, liquidity, aToB)
		if err != nil {
			return res, err
		}
		if remainingLessFee.GTE(res.amountIn) {
			res.nextSqrtPrice = target
		} else {
			res.nextSqrtPrice, err = fixedmath.NextSqrtPriceFromInput(sqrtPrice, liquidity, remainingLessFee, aToB)
			if err != nil {
				return res, err
			}
		}
	} else {
		res.amountOut, err = amountOutToTarget(sqrtPrice, target, liquidity, aToB)
		if err != nil {
			return res, err
		}
		if amountRemaining.GTE(res.amountOut) {
			res.nextSqrtPrice = target
		} else {
			res.nextSqrtPrice, err = fixedmath.NextSqrtPriceFromOutput(sqrtPrice, liquidity, amountRemaining, aToB)
			if err != nil {
				return res, err
			}
		}
	}
	reachedTarget := res.nextSqrtPrice.Equal(target)

	if !(exactInput && reachedTarget) {
		res.amountIn, err = amountInToTarget(sqrtPrice, res.nextSqrtPrice, liquidity, aToB)
		if err != nil {
			return res, err
		}
	}
	if !(!exactInput && reachedTarget) {
		res.amountOut, err = amountOutToTarget(sqrtPrice, res.nextSqrtPrice, liquidity, aToB)
		if err != nil {
			return res, err
		}
	}
	// Never hand out more than the caller asked for on exact-output.
	if !exactInput && res.amountOut.GT(amountRemaining) {
		res.amountOut = amountRemaining
	}

	if exactInput && !reachedTarget {
		res.feeAmount = amountRemaining.Sub(res.amountIn)
	} else {
		res.feeAmount, err = fixedmath.MulDivCeil(res.amountIn, feeRateInt, feeDenom.Sub(feeRateInt))
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// amountInToTarget is the input-token reserve delta between two prices:
// token A when swapping a->b, token B otherwise. Rounds up.
func amountInToTarget(sqrtPrice, target, liquidity cosmath.Int, aToB bool) (cosmath.Int, error) {
	if aToB {
		return fixedmath.AmountADelta(target, sqrtPrice, liquidity, true)
	}
	return fixedmath.AmountBDelta(sqrtPrice, target, liquidity, true)
}

// amountOutToTarget is the output-token reserve delta. Rounds down.
func amountOutToTarget(sqrtPrice, target, liquidity cosmath.Int, aToB bool) (cosmath.Int, error) {
	if aToB {
		return fixedmath.AmountBDelta(target, sqrtPrice, liquidity, false)
	}
	return fixedmath.AmountADelta(sqrtPrice, target, liquidity, false)
}
