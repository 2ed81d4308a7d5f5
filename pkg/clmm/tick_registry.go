package clmm

import (
	"math/big"
	"math/bits"
	"sort"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"lukechampine.com/uint128"

	"solclmm/pkg/fixedmath"
	"solclmm/pkg/tickmath"
)

// bucketWidth is the number of spaced ticks covered by one bucket; the
// bucket's occupancy bitmap is a single machine word.
const bucketWidth = 64

// Tick is the per-boundary record. LiquidityNet is the signed delta applied
// to the pool's active liquidity when the price crosses this tick upward;
// the "outside" accumulators are snapshots flipped at every crossing, which
// is what makes range accounting O(1) regardless of pool age.
type Tick struct {
	Index                int32
	LiquidityNet         cosmath.Int
	LiquidityGross       uint128.Uint128
	FeeGrowthOutsideA    uint128.Uint128
	FeeGrowthOutsideB    uint128.Uint128
	RewardGrowthsOutside [NumRewards]uint128.Uint128
}

type tickBucket struct {
	bitmap uint64
	ticks  [bucketWidth]Tick
}

// TickRegistry is the sparse tick store for one pool: fixed-size buckets
// keyed by compressed tick index, each holding an occupancy bitmap plus the
// per-tick records. Bucket keys are kept sorted so boundary searches are
// monotonic and never skip an initialized tick.
type TickRegistry struct {
	spacing           uint16
	maxLiquidityGross cosmath.Int
	buckets           map[int32]*tickBucket
	keys              []int32
}

// NewTickRegistry creates an empty registry for the given tick spacing.
func NewTickRegistry(spacing uint16) *TickRegistry {
	return &TickRegistry{
		spacing:           spacing,
		maxLiquidityGross: maxLiquidityPerTick(spacing),
		buckets:           make(map[int32]*tickBucket),
	}
}

// maxLiquidityPerTick spreads the 128-bit liquidity budget across every
// valid boundary for the spacing, so no single tick can absorb an amount
// the pool-wide accumulators cannot represent.
func maxLiquidityPerTick(spacing uint16) cosmath.Int {
	s := int32(spacing)
	minAligned := (tickmath.MinTick / s) * s
	maxAligned := (tickmath.MaxTick / s) * s
	numTicks := int64((maxAligned-minAligned)/s) + 1
	maxU128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	return cosmath.NewIntFromBigInt(maxU128.Quo(maxU128, big.NewInt(numTicks)))
}

// MaxLiquidityGross returns the per-tick liquidity cap for this spacing.
func (r *TickRegistry) MaxLiquidityGross() cosmath.Int {
	return r.maxLiquidityGross
}

// GetOrInit returns the record for a tick, creating a zeroed one on first
// reference. A record exists independently of being initialized; a tick is
// initialized only while its gross liquidity is positive.
func (r *TickRegistry) GetOrInit(tickIndex int32) *Tick {
	key, slot := r.locate(tickIndex)
	bucket, ok := r.buckets[key]
	if !ok {
		bucket = &tickBucket{}
		r.buckets[key] = bucket
		r.insertKey(key)
	}
	t := &bucket.ticks[slot]
	if t.LiquidityNet.IsNil() {
		t.Index = tickIndex
		t.LiquidityNet = cosmath.ZeroInt()
	}
	return t
}

// Get returns the tick record and whether the tick is initialized.
func (r *TickRegistry) Get(tickIndex int32) (*Tick, bool) {
	key, slot := r.locate(tickIndex)
	bucket, ok := r.buckets[key]
	if !ok {
		return nil, false
	}
	return &bucket.ticks[slot], bucket.bitmap&(1<<slot) != 0
}

// CheckUpdate validates a boundary-liquidity adjustment without applying
// it, so callers can stage both boundaries of a range before mutating.
func (r *TickRegistry) CheckUpdate(tickIndex int32, delta cosmath.Int) error {
	gross := cosmath.ZeroInt()
	if t, _ := r.Get(tickIndex); t != nil {
		gross = fixedmath.FromUint128(t.LiquidityGross)
	}
	grossAfter := gross.Add(delta)
	if grossAfter.IsNegative() {
		return errorsmod.Wrapf(ErrInsufficientLiquidity, "tick %d gross %s delta %s", tickIndex, gross, delta)
	}
	if grossAfter.GT(r.maxLiquidityGross) {
		return errorsmod.Wrapf(ErrLiquidityOverflow, "tick %d gross would be %s", tickIndex, grossAfter)
	}
	return nil
}

// UpdateLiquidity adjusts a boundary's net and gross liquidity. When the
// tick transitions from empty to initialized and sits at or below the
// current tick, its outside snapshots take on the current globals so that
// growth "behind" the tick is attributed correctly. Returns whether the
// initialized state flipped.
func (r *TickRegistry) UpdateLiquidity(
	tickIndex int32,
	isLowerBoundary bool,
	delta cosmath.Int,
	currentTick int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
	rewardGrowthsGlobal [NumRewards]uint128.Uint128,
) (bool, error) {
	if err := r.CheckUpdate(tickIndex, delta); err != nil {
		return false, err
	}

	t := r.GetOrInit(tickIndex)
	grossBefore := fixedmath.FromUint128(t.LiquidityGross)
	grossAfter := grossBefore.Add(delta)
	flipped := grossAfter.IsZero() != grossBefore.IsZero()

	if grossBefore.IsZero() && tickIndex <= currentTick {
		t.FeeGrowthOutsideA = feeGrowthGlobalA
		t.FeeGrowthOutsideB = feeGrowthGlobalB
		t.RewardGrowthsOutside = rewardGrowthsGlobal
	}

	grossU, err := fixedmath.ToUint128(grossAfter)
	if err != nil {
		return false, errorsmod.Wrapf(ErrLiquidityOverflow, "tick %d", tickIndex)
	}
	t.LiquidityGross = grossU
	if isLowerBoundary {
		t.LiquidityNet = t.LiquidityNet.Add(delta)
	} else {
		t.LiquidityNet = t.LiquidityNet.Sub(delta)
	}

	key, slot := r.locate(tickIndex)
	if flipped {
		bucket := r.buckets[key]
		if grossAfter.IsZero() {
			bucket.bitmap &^= 1 << slot
		} else {
			bucket.bitmap |= 1 << slot
		}
	}
	return flipped, nil
}

// MaybeDeinitialize resets a tick to empty once nothing references it as a
// boundary, reclaiming the bucket when it holds no other initialized ticks.
func (r *TickRegistry) MaybeDeinitialize(tickIndex int32) {
	key, slot := r.locate(tickIndex)
	bucket, ok := r.buckets[key]
	if !ok {
		return
	}
	if !bucket.ticks[slot].LiquidityGross.IsZero() {
		return
	}
	bucket.ticks[slot] = Tick{}
	bucket.bitmap &^= 1 << slot
	if bucket.bitmap == 0 {
		delete(r.buckets, key)
		r.removeKey(key)
	}
}

// NextInitializedTick returns the next initialized tick boundary from the
// given tick. Downward (aToB) searches include the starting tick itself;
// upward searches are strictly greater, matching the swap loop's crossing
// bookkeeping. When no boundary remains in the direction of travel the
// range bound is returned with initialized == false.
func (r *TickRegistry) NextInitializedTick(fromTick int32, aToB bool) (int32, bool) {
	cf := floorDiv(fromTick, int32(r.spacing))
	k0 := floorDiv(cf, bucketWidth)
	slot0 := cf - k0*bucketWidth

	if aToB {
		i := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] > k0 })
		for i--; i >= 0; i-- {
			key := r.keys[i]
			mask := r.buckets[key].bitmap
			if key == k0 && slot0 < bucketWidth-1 {
				mask &= (uint64(1) << (slot0 + 1)) - 1
			}
			if mask != 0 {
				bit := int32(63 - bits.LeadingZeros64(mask))
				return (key*bucketWidth + bit) * int32(r.spacing), true
			}
		}
		return tickmath.MinTick, false
	}

	i := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] >= k0 })
	for ; i < len(r.keys); i++ {
		key := r.keys[i]
		mask := r.buckets[key].bitmap
		if key == k0 {
			if slot0 == bucketWidth-1 {
				continue
			}
			mask &^= (uint64(1) << (slot0 + 1)) - 1
		}
		if mask != 0 {
			bit := int32(bits.TrailingZeros64(mask))
			return (key*bucketWidth + bit) * int32(r.spacing), true
		}
	}
	return tickmath.MaxTick, false
}

// FeeGrowthInside computes the fee growth per unit of liquidity accrued
// strictly inside [lower, upper], using the outside-snapshot identity with
// wraparound arithmetic.
func (r *TickRegistry) FeeGrowthInside(
	lower, upper, currentTick int32,
	feeGrowthGlobalA, feeGrowthGlobalB uint128.Uint128,
) (uint128.Uint128, uint128.Uint128) {
	lowerOutA, lowerOutB := r.outsideFees(lower)
	upperOutA, upperOutB := r.outsideFees(upper)

	var belowA, belowB uint128.Uint128
	if currentTick >= lower {
		belowA, belowB = lowerOutA, lowerOutB
	} else {
		belowA = feeGrowthGlobalA.SubWrap(lowerOutA)
		belowB = feeGrowthGlobalB.SubWrap(lowerOutB)
	}

	var aboveA, aboveB uint128.Uint128
	if currentTick < upper {
		aboveA, aboveB = upperOutA, upperOutB
	} else {
		aboveA = feeGrowthGlobalA.SubWrap(upperOutA)
		aboveB = feeGrowthGlobalB.SubWrap(upperOutB)
	}

	insideA := feeGrowthGlobalA.SubWrap(belowA).SubWrap(aboveA)
	insideB := feeGrowthGlobalB.SubWrap(belowB).SubWrap(aboveB)
	return insideA, insideB
}

// RewardGrowthsInside is the reward counterpart of FeeGrowthInside.
func (r *TickRegistry) RewardGrowthsInside(
	lower, upper, currentTick int32,
	rewardGrowthsGlobal [NumRewards]uint128.Uint128,
) [NumRewards]uint128.Uint128 {
	var inside [NumRewards]uint128.Uint128
	for i := 0; i < NumRewards; i++ {
		lowerOut := r.outsideReward(lower, i)
		upperOut := r.outsideReward(upper, i)

		var below uint128.Uint128
		if currentTick >= lower {
			below = lowerOut
		} else {
			below = rewardGrowthsGlobal[i].SubWrap(lowerOut)
		}
		var above uint128.Uint128
		if currentTick < upper {
			above = upperOut
		} else {
			above = rewardGrowthsGlobal[i].SubWrap(upperOut)
		}
		inside[i] = rewardGrowthsGlobal[i].SubWrap(below).SubWrap(above)
	}
	return inside
}

// SumLiquidityNet returns the sum of liquidity_net over all initialized
// ticks; the registry invariant is that this is always exactly zero.
func (r *TickRegistry) SumLiquidityNet() cosmath.Int {
	sum := cosmath.ZeroInt()
	r.IterInitialized(func(t *Tick) {
		sum = sum.Add(t.LiquidityNet)
	})
	return sum
}

// InitializedCount returns the number of initialized ticks.
func (r *TickRegistry) InitializedCount() int {
	n := 0
	for _, b := range r.buckets {
		n += bits.OnesCount64(b.bitmap)
	}
	return n
}

// IterInitialized visits every initialized tick in ascending index order.
func (r *TickRegistry) IterInitialized(fn func(t *Tick)) {
	for _, key := range r.keys {
		bucket := r.buckets[key]
		for slot := 0; slot < bucketWidth; slot++ {
			if bucket.bitmap&(1<<slot) != 0 {
				fn(&bucket.ticks[slot])
			}
		}
	}
}

func (r *TickRegistry) outsideFees(tickIndex int32) (uint128.Uint128, uint128.Uint128) {
	if t, ok := r.Get(tickIndex); ok {
		return t.FeeGrowthOutsideA, t.FeeGrowthOutsideB
	}
	return uint128.Zero, uint128.Zero
}

func (r *TickRegistry) outsideReward(tickIndex int32, i int) uint128.Uint128 {
	if t, ok := r.Get(tickIndex); ok {
		return t.RewardGrowthsOutside[i]
	}
	return uint128.Zero
}

func (r *TickRegistry) locate(tickIndex int32) (key, slot int32) {
	compressed := floorDiv(tickIndex, int32(r.spacing))
	key = floorDiv(compressed, bucketWidth)
	slot = compressed - key*bucketWidth
	return key, slot
}

func (r *TickRegistry) insertKey(key int32) {
	i := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] >= key })
	r.keys = append(r.keys, 0)
	copy(r.keys[i+1:], r.keys[i:])
	r.keys[i] = key
}

func (r *TickRegistry) removeKey(key int32) {
	i := sort.Search(len(r.keys), func(i int) bool { return r.keys[i] >= key })
	if i < len(r.keys) && r.keys[i] == key {
		r.keys = append(r.keys[:i], r.keys[i+1:]...)
	}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
