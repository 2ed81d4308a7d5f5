package clmm

import (
	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"solclmm/pkg/fixedmath"
	"solclmm/pkg/tickmath"
)

// LiquidityResult reports the token amounts moved by a liquidity change.
type LiquidityResult struct {
	PositionID string
	AmountA    cosmath.Int
	AmountB    cosmath.Int
}

// OpenPosition creates an empty position over [tickLower, tickUpper). Both
// boundaries must be spacing-aligned and inside the supported tick range.
func (p *Pool) OpenPosition(owner solana.PublicKey, tickLower, tickUpper int32) (*Position, error) {
	if err := p.validateRange(tickLower, tickUpper); err != nil {
		return nil, err
	}
	return p.Positions.Open(p.PoolId, owner, tickLower, tickUpper), nil
}

func (p *Pool) validateRange(tickLower, tickUpper int32) error {
	if tickLower >= tickUpper {
		return errorsmod.Wrapf(ErrInvalidRange, "lower %d >= upper %d", tickLower, tickUpper)
	}
	if tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return errorsmod.Wrapf(ErrInvalidRange, "[%d, %d) outside supported ticks", tickLower, tickUpper)
	}
	if !tickmath.IsAligned(tickLower, p.TickSpacing) || !tickmath.IsAligned(tickUpper, p.TickSpacing) {
		return errorsmod.Wrapf(ErrInvalidRange, "[%d, %d) not aligned to spacing %d", tickLower, tickUpper, p.TickSpacing)
	}
	return nil
}

// IncreaseLiquidity deposits liquidity into a position. Token amounts are
// rounded up in the pool's favor; maxAmountA/maxAmountB cap what the caller
// is willing to pay, with zero meaning no cap. Fails atomically: on any
// error no pool, tick, or position state changes.
func (p *Pool) IncreaseLiquidity(positionID string, liquidityDelta cosmath.Int, maxAmountA, maxAmountB uint64, now uint64) (*LiquidityResult, error) {
	pos, err := p.Positions.Get(positionID)
	if err != nil {
		return nil, err
	}
	if !liquidityDelta.IsPositive() {
		return nil, errorsmod.Wrap(ErrZeroLiquidity, "liquidity delta must be positive")
	}

	amountA, amountB, err := p.amountsForLiquidity(pos.TickLower, pos.TickUpper, liquidityDelta, true)
	if err != nil {
		return nil, err
	}
	if maxAmountA != 0 && amountA.GT(cosmath.NewIntFromUint64(maxAmountA)) {
		return nil, errorsmod.Wrapf(ErrAmountInAboveMaximum, "token A needs %s, cap %d", amountA, maxAmountA)
	}
	if maxAmountB != 0 && amountB.GT(cosmath.NewIntFromUint64(maxAmountB)) {
		return nil, errorsmod.Wrapf(ErrAmountInAboveMaximum, "token B needs %s, cap %d", amountB, maxAmountB)
	}

	if err := p.Ticks.CheckUpdate(pos.TickLower, liquidityDelta); err != nil {
		return nil, err
	}
	if err := p.Ticks.CheckUpdate(pos.TickUpper, liquidityDelta); err != nil {
		return nil, err
	}

	inRange := pos.TickLower <= p.TickCurrent && p.TickCurrent < pos.TickUpper
	var activeAfter uint128.Uint128
	if inRange {
		afterActive := fixedmath.FromUint128(p.Liquidity).Add(liquidityDelta)
		activeAfter, err = fixedmath.ToUint128(afterActive)
		if err != nil {
			return nil, errorsmod.Wrap(ErrLiquidityOverflow, "active liquidity")
		}
	}

	rewardGrowths := p.advancedRewardGrowths(now)

	// Validation is complete; everything below must succeed.
	if _, err := p.Ticks.UpdateLiquidity(pos.TickLower, true, liquidityDelta, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGrowths); err != nil {
		return nil, err
	}
	if _, err := p.Ticks.UpdateLiquidity(pos.TickUpper, false, liquidityDelta, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGrowths); err != nil {
		return nil, err
	}

	p.settlePosition(pos, rewardGrowths)
	liqAfter, err := fixedmath.ToUint128(fixedmath.FromUint128(pos.Liquidity).Add(liquidityDelta))
	if err != nil {
		return nil, errorsmod.Wrap(ErrLiquidityOverflow, "position liquidity")
	}
	pos.Liquidity = liqAfter
	if inRange {
		p.Liquidity = activeAfter
	}
	p.commitRewardGrowths(rewardGrowths, now)

	return &LiquidityResult{PositionID: pos.ID, AmountA: amountA, AmountB: amountB}, nil
}

// DecreaseLiquidity withdraws liquidity from a position. Token amounts are
// rounded down in the pool's favor and credited to the position's owed
// balances; minAmountA/minAmountB guard against unfavorable execution.
func (p *Pool) DecreaseLiquidity(positionID string, liquidityDelta cosmath.Int, minAmountA, minAmountB uint64, now uint64) (*LiquidityResult, error) {
	pos, err := p.Positions.Get(positionID)
	if err != nil {
		return nil, err
	}
	if !liquidityDelta.IsPositive() {
		return nil, errorsmod.Wrap(ErrZeroLiquidity, "liquidity delta must be positive")
	}
	held := fixedmath.FromUint128(pos.Liquidity)
	if liquidityDelta.GT(held) {
		return nil, errorsmod.Wrapf(ErrInsufficientLiquidity, "position holds %s, withdrawing %s", held, liquidityDelta)
	}

	amountA, amountB, err := p.amountsForLiquidity(pos.TickLower, pos.TickUpper, liquidityDelta, false)
	if err != nil {
		return nil, err
	}
	if amountA.LT(cosmath.NewIntFromUint64(minAmountA)) {
		return nil, errorsmod.Wrapf(ErrAmountOutBelowMinimum, "token A yields %s, floor %d", amountA, minAmountA)
	}
	if amountB.LT(cosmath.NewIntFromUint64(minAmountB)) {
		return nil, errorsmod.Wrapf(ErrAmountOutBelowMinimum, "token B yields %s, floor %d", amountB, minAmountB)
	}

	neg := liquidityDelta.Neg()
	if err := p.Ticks.CheckUpdate(pos.TickLower, neg); err != nil {
		return nil, err
	}
	if err := p.Ticks.CheckUpdate(pos.TickUpper, neg); err != nil {
		return nil, err
	}

	rewardGrowths := p.advancedRewardGrowths(now)

	// Settle against the live outside snapshots before touching the
	// boundaries: a full withdrawal deinitializes them, and a
	// deinitialized tick reads as all-zero snapshots.
	p.settlePosition(pos, rewardGrowths)

	flippedLower, err := p.Ticks.UpdateLiquidity(pos.TickLower, true, neg, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGrowths)
	if err != nil {
		return nil, err
	}
	flippedUpper, err := p.Ticks.UpdateLiquidity(pos.TickUpper, false, neg, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB, rewardGrowths)
	if err != nil {
		return nil, err
	}

	pos.Liquidity = pos.Liquidity.Sub(mustUint128(liquidityDelta))
	pos.FeeOwedA = saturatingAddU64(pos.FeeOwedA, amountA)
	pos.FeeOwedB = saturatingAddU64(pos.FeeOwedB, amountB)

	if flippedLower {
		p.Ticks.MaybeDeinitialize(pos.TickLower)
	}
	if flippedUpper {
		p.Ticks.MaybeDeinitialize(pos.TickUpper)
	}

	if pos.TickLower <= p.TickCurrent && p.TickCurrent < pos.TickUpper {
		p.Liquidity = p.Liquidity.Sub(mustUint128(liquidityDelta))
	}
	p.commitRewardGrowths(rewardGrowths, now)

	return &LiquidityResult{PositionID: pos.ID, AmountA: amountA, AmountB: amountB}, nil
}

// CollectFees settles and drains a position's owed token balances. Calling
// it twice in a row returns zero the second time.
func (p *Pool) CollectFees(positionID string, now uint64) (amountA, amountB uint64, err error) {
	pos, err := p.Positions.Get(positionID)
	if err != nil {
		return 0, 0, err
	}
	rewardGrowths := p.advancedRewardGrowths(now)
	if !pos.Liquidity.IsZero() {
		p.settlePosition(pos, rewardGrowths)
	}
	p.commitRewardGrowths(rewardGrowths, now)
	amountA, amountB = pos.FeeOwedA, pos.FeeOwedB
	pos.FeeOwedA = 0
	pos.FeeOwedB = 0
	return amountA, amountB, nil
}

// CollectRewards settles and drains all reward balances owed to a position.
func (p *Pool) CollectRewards(positionID string, now uint64) ([NumRewards]uint64, error) {
	var out [NumRewards]uint64
	pos, err := p.Positions.Get(positionID)
	if err != nil {
		return out, err
	}
	rewardGrowths := p.advancedRewardGrowths(now)
	if !pos.Liquidity.IsZero() {
		p.settlePosition(pos, rewardGrowths)
	}
	p.commitRewardGrowths(rewardGrowths, now)
	out = pos.RewardsOwed
	pos.RewardsOwed = [NumRewards]uint64{}
	return out, nil
}

// ClosePosition removes a fully drained position from the ledger.
func (p *Pool) ClosePosition(positionID string) error {
	pos, err := p.Positions.Get(positionID)
	if err != nil {
		return err
	}
	if !pos.Empty() {
		return errorsmod.Wrapf(ErrPositionNotEmpty, "position %s still holds liquidity or owed balances", positionID)
	}
	p.Positions.Remove(positionID)
	return nil
}

func (p *Pool) settlePosition(pos *Position, rewardGrowths [NumRewards]uint128.Uint128) {
	insideA, insideB := p.Ticks.FeeGrowthInside(pos.TickLower, pos.TickUpper, p.TickCurrent, p.FeeGrowthGlobalA, p.FeeGrowthGlobalB)
	rewardsInside := p.Ticks.RewardGrowthsInside(pos.TickLower, pos.TickUpper, p.TickCurrent, rewardGrowths)
	pos.settle(insideA, insideB, rewardsInside)
}

// amountsForLiquidity maps a liquidity delta over a range to token amounts
// at the current price: entirely token A above the range of the price,
// entirely token B below it, and a mix when the price is inside.
func (p *Pool) amountsForLiquidity(tickLower, tickUpper int32, liquidity cosmath.Int, roundUp bool) (amountA, amountB cosmath.Int, err error) {
	sqrtLower, err := tickmath.SqrtPriceFromTick(tickLower)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	sqrtUpper, err := tickmath.SqrtPriceFromTick(tickUpper)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	amountA = cosmath.ZeroInt()
	amountB = cosmath.ZeroInt()
	switch {
	case p.TickCurrent < tickLower:
		amountA, err = fixedmath.AmountADelta(sqrtLower, sqrtUpper, liquidity, roundUp)
	case p.TickCurrent >= tickUpper:
		amountB, err = fixedmath.AmountBDelta(sqrtLower, sqrtUpper, liquidity, roundUp)
	default:
		sqrtCurrent := fixedmath.FromUint128(p.SqrtPrice)
		amountA, err = fixedmath.AmountADelta(sqrtCurrent, sqrtUpper, liquidity, roundUp)
		if err != nil {
			return cosmath.Int{}, cosmath.Int{}, err
		}
		amountB, err = fixedmath.AmountBDelta(sqrtLower, sqrtCurrent, liquidity, roundUp)
	}
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	return amountA, amountB, nil
}

// mustUint128 converts a value already validated to fit 128 bits.
func mustUint128(v cosmath.Int) uint128.Uint128 {
	u, err := fixedmath.ToUint128(v)
	if err != nil {
		panic(err)
	}
	return u
}
