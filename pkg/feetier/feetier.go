// Package feetier supplies per-tier swap parameters at pool-creation time:
// tick spacing, the trade fee rate, and how the collected fee is split
// between liquidity providers and the protocol.
package feetier

import (
	"fmt"
	"sort"
	"sync"

	cosmath "cosmossdk.io/math"
)

// FeeRateDenominator scales Tier.FeeRate: a rate of 2500 is 0.25%.
const FeeRateDenominator = 1_000_000

// ProtocolShareDenominator scales Tier.ProtocolFeeShare, expressed in basis
// points of the collected fee.
const ProtocolShareDenominator = 10_000

// SplitPolicy selects which share of a step's fee is floored first; the
// counterpart receives the exact remainder so no dust is lost.
type SplitPolicy uint8

const (
	// ProtocolShareFirst floors the protocol share, LPs get the remainder.
	ProtocolShareFirst SplitPolicy = iota
	// LPShareFirst floors the LP share, the protocol gets the remainder.
	LPShareFirst
)

// SplitFee divides one step's collected fee between LPs and the protocol.
// The floored party depends on the policy; the other side always receives
// the exact remainder so the two shares sum to the fee.
func SplitFee(fee cosmath.Int, protocolShare uint16, policy SplitPolicy) (lpFee cosmath.Int, protocolFee uint64) {
	if fee.IsNil() || !fee.IsPositive() || protocolShare == 0 {
		return fee, 0
	}
	denom := cosmath.NewInt(ProtocolShareDenominator)
	share := cosmath.NewInt(int64(protocolShare))
	if policy == LPShareFirst {
		lpFee = fee.Mul(denom.Sub(share)).Quo(denom)
		return lpFee, fee.Sub(lpFee).Uint64()
	}
	proto := fee.Mul(share).Quo(denom)
	return fee.Sub(proto), proto.Uint64()
}

// Tier fixes the immutable swap parameters of one fee tier.
type Tier struct {
	TickSpacing      uint16
	FeeRate          uint16 // hundredths of a basis point
	ProtocolFeeShare uint16 // basis points of the collected fee
	SplitPolicy      SplitPolicy
}

// Registry holds the tiers available for pool creation, keyed by fee rate.
type Registry struct {
	mu    sync.RWMutex
	tiers map[uint16]Tier
}

// NewRegistry returns a registry preloaded with the standard tiers.
func NewRegistry() *Registry {
	r := &Registry{tiers: make(map[uint16]Tier)}
	for _, t := range []Tier{
		{TickSpacing: 1, FeeRate: 100, ProtocolFeeShare: 1200},
		{TickSpacing: 8, FeeRate: 500, ProtocolFeeShare: 1200},
		{TickSpacing: 64, FeeRate: 2500, ProtocolFeeShare: 1200},
		{TickSpacing: 128, FeeRate: 10000, ProtocolFeeShare: 1200},
	} {
		r.tiers[t.FeeRate] = t
	}
	return r
}

// Register adds or replaces a tier. Tick spacing must be positive and the
// fee plus protocol share must leave something for LPs.
func (r *Registry) Register(t Tier) error {
	if t.TickSpacing == 0 {
		return fmt.Errorf("feetier: tick spacing must be positive")
	}
	if uint32(t.FeeRate) >= FeeRateDenominator {
		return fmt.Errorf("feetier: fee rate %d out of range", t.FeeRate)
	}
	if t.ProtocolFeeShare > ProtocolShareDenominator {
		return fmt.Errorf("feetier: protocol share %d exceeds 100%%", t.ProtocolFeeShare)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[t.FeeRate] = t
	return nil
}

// Get returns the tier for a fee rate.
func (r *Registry) Get(feeRate uint16) (Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tiers[feeRate]
	if !ok {
		return Tier{}, fmt.Errorf("feetier: no tier registered for fee rate %d", feeRate)
	}
	return t, nil
}

// List returns all tiers ordered by fee rate.
func (r *Registry) List() []Tier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tier, 0, len(r.tiers))
	for _, t := range r.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeeRate < out[j].FeeRate })
	return out
}
