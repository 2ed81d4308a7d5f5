// Package clmm implements a single pool's concentrated-liquidity state
// machine: tick-bounded swap execution, range-position accounting, and
// fee/reward growth attribution. The engine is a pure state-transition
// core; signing, submission, and price feeds live with the caller.
package clmm

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"solclmm/pkg/feetier"
	"solclmm/pkg/fixedmath"
	"solclmm/pkg/tickmath"
)

// NumRewards is the fixed number of reward slots per pool.
const NumRewards = 3

// RewardInfo configures one reward token's emission and tracks its global
// per-unit-liquidity growth.
type RewardInfo struct {
	Mint                  solana.PublicKey
	Vault                 solana.PublicKey
	Authority             solana.PublicKey
	EmissionsPerSecondX64 uint128.Uint128
	GrowthGlobalX64       uint128.Uint128
}

// Initialized reports whether the slot has a reward token configured.
func (r *RewardInfo) Initialized() bool {
	return !r.Mint.IsZero()
}

// Pool is the single mutable record for one trading pair at one fee tier.
// Every public operation is an atomic state transition: a failure anywhere
// leaves the pool, its ticks, and its positions exactly as they were.
type Pool struct {
	PoolId      solana.PublicKey
	TokenMintA  solana.PublicKey
	TokenMintB  solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey

	TickSpacing      uint16
	FeeRate          uint16 // hundredths of a basis point
	ProtocolFeeShare uint16 // basis points of the collected fee
	SplitPolicy      feetier.SplitPolicy

	SqrtPrice        uint128.Uint128 // Q64.64
	TickCurrent      int32
	Liquidity        uint128.Uint128
	FeeGrowthGlobalA uint128.Uint128
	FeeGrowthGlobalB uint128.Uint128
	ProtocolFeeOwedA uint64
	ProtocolFeeOwedB uint64

	// Cumulative committed swap volume, per direction.
	SwapInAmountA  uint128.Uint128
	SwapOutAmountB uint128.Uint128
	SwapInAmountB  uint128.Uint128
	SwapOutAmountA uint128.Uint128

	RewardLastUpdated uint64
	RewardInfos       [NumRewards]RewardInfo

	Ticks     *TickRegistry
	Positions *PositionLedger
}

// NewPool creates a pool for an asset pair at the given tier and initial
// sqrt price. The current tick is derived from the price so that
// tick_to_sqrt_price(current_tick) <= sqrt_price always holds.
func NewPool(
	poolID, mintA, mintB, vaultA, vaultB solana.PublicKey,
	tier feetier.Tier,
	sqrtPriceX64 cosmath.Int,
	now uint64,
) (*Pool, error) {
	tick, err := tickmath.TickFromSqrtPrice(sqrtPriceX64)
	if err != nil {
		return nil, err
	}
	priceU, err := fixedmath.ToUint128(sqrtPriceX64)
	if err != nil {
		return nil, err
	}
	return &Pool{
		PoolId:            poolID,
		TokenMintA:        mintA,
		TokenMintB:        mintB,
		TokenVaultA:       vaultA,
		TokenVaultB:       vaultB,
		TickSpacing:       tier.TickSpacing,
		FeeRate:           tier.FeeRate,
		ProtocolFeeShare:  tier.ProtocolFeeShare,
		SplitPolicy:       tier.SplitPolicy,
		SqrtPrice:         priceU,
		TickCurrent:       tick,
		RewardLastUpdated: now,
		Ticks:             NewTickRegistry(tier.TickSpacing),
		Positions:         NewPositionLedger(),
	}, nil
}

// InitializeReward configures a reward slot. Slots are append-only; an
// already-configured slot cannot be replaced.
func (p *Pool) InitializeReward(index int, mint, vault, authority solana.PublicKey, emissionsPerSecondX64 uint128.Uint128) error {
	if index < 0 || index >= NumRewards {
		return errorsmod.Wrapf(ErrInvalidRewardIndex, "index %d", index)
	}
	if p.RewardInfos[index].Initialized() {
		return errorsmod.Wrapf(ErrPoolAlreadyInitialized, "reward slot %d", index)
	}
	p.RewardInfos[index] = RewardInfo{
		Mint:                  mint,
		Vault:                 vault,
		Authority:             authority,
		EmissionsPerSecondX64: emissionsPerSecondX64,
	}
	return nil
}

// SetEmissionRate updates a configured reward slot's emission rate. Growth
// accrued at the old rate is committed up to now before the rate changes.
func (p *Pool) SetEmissionRate(index int, emissionsPerSecondX64 uint128.Uint128, now uint64) error {
	if index < 0 || index >= NumRewards {
		return errorsmod.Wrapf(ErrInvalidRewardIndex, "index %d", index)
	}
	if !p.RewardInfos[index].Initialized() {
		return errorsmod.Wrapf(ErrInvalidRewardIndex, "reward slot %d not configured", index)
	}
	p.commitRewardGrowths(p.advancedRewardGrowths(now), now)
	p.RewardInfos[index].EmissionsPerSecondX64 = emissionsPerSecondX64
	return nil
}

// advancedRewardGrowths computes, without mutating the pool, the reward
// growth globals as of the given timestamp. Emission accrues only while the
// pool has active liquidity; elapsed time with an empty active range is
// simply skipped, as there is no liquidity to attribute it to.
func (p *Pool) advancedRewardGrowths(now uint64) [NumRewards]uint128.Uint128 {
	var out [NumRewards]uint128.Uint128
	for i := range p.RewardInfos {
		out[i] = p.RewardInfos[i].GrowthGlobalX64
	}
	if now <= p.RewardLastUpdated || p.Liquidity.IsZero() {
		return out
	}
	dt := new(big.Int).SetUint64(now - p.RewardLastUpdated)
	liquidity := p.Liquidity.Big()
	for i := range p.RewardInfos {
		info := &p.RewardInfos[i]
		if !info.Initialized() || info.EmissionsPerSecondX64.IsZero() {
			continue
		}
		emitted := new(big.Int).Mul(info.EmissionsPerSecondX64.Big(), dt)
		delta := emitted.Quo(emitted, liquidity)
		// Growth accumulators wrap mod 2^128 by design.
		wrapped := new(big.Int).And(delta, fixedmath.MaxUint128)
		out[i] = out[i].AddWrap(uint128.FromBig(wrapped))
	}
	return out
}

// commitRewardGrowths writes previously computed reward growths.
func (p *Pool) commitRewardGrowths(growths [NumRewards]uint128.Uint128, now uint64) {
	for i := range p.RewardInfos {
		p.RewardInfos[i].GrowthGlobalX64 = growths[i]
	}
	if now > p.RewardLastUpdated {
		p.RewardLastUpdated = now
	}
}

// CrossTick moves the current price past an initialized tick boundary:
// the tick's liquidity_net (negated when crossing downward) is applied to
// the pool's active liquidity and every outside-growth snapshot is flipped
// against the current globals, preserving the inside/outside identity.
func (p *Pool) CrossTick(tickIndex int32, aToB bool) error {
	t, initialized := p.Ticks.Get(tickIndex)
	if !initialized {
		return errorsmod.Wrapf(ErrInvalidRange, "crossing uninitialized tick %d", tickIndex)
	}

	t.FeeGrowthOutsideA = p.FeeGrowthGlobalA.SubWrap(t.FeeGrowthOutsideA)
	t.FeeGrowthOutsideB = p.FeeGrowthGlobalB.SubWrap(t.FeeGrowthOutsideB)
	for i := 0; i < NumRewards; i++ {
		t.RewardGrowthsOutside[i] = p.RewardInfos[i].GrowthGlobalX64.SubWrap(t.RewardGrowthsOutside[i])
	}

	net := t.LiquidityNet
	if aToB {
		net = net.Neg()
	}
	liquidity := fixedmath.FromUint128(p.Liquidity).Add(net)
	if liquidity.IsNegative() {
		return errorsmod.Wrapf(ErrInsufficientLiquidity, "crossing tick %d drives liquidity negative", tickIndex)
	}
	liquidityU, err := fixedmath.ToUint128(liquidity)
	if err != nil {
		return errorsmod.Wrapf(ErrLiquidityOverflow, "crossing tick %d", tickIndex)
	}
	p.Liquidity = liquidityU
	return nil
}

// CollectProtocolFees drains the protocol's accumulated share.
func (p *Pool) CollectProtocolFees() (amountA, amountB uint64) {
	amountA, amountB = p.ProtocolFeeOwedA, p.ProtocolFeeOwedB
	p.ProtocolFeeOwedA = 0
	p.ProtocolFeeOwedB = 0
	return amountA, amountB
}

// CurrentSqrtPrice returns the pool price in math form.
func (p *Pool) CurrentSqrtPrice() cosmath.Int {
	return fixedmath.FromUint128(p.SqrtPrice)
}

// ActiveLiquidity returns the in-range liquidity in math form.
func (p *Pool) ActiveLiquidity() cosmath.Int {
	return fixedmath.FromUint128(p.Liquidity)
}
