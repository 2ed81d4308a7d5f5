package clmm

import (
	"crypto/sha256"
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"lukechampine.com/uint128"

	"solclmm/pkg/fixedmath"
)

// Position is one owner's liquidity over a half-open tick range
// [TickLower, TickUpper). Fees and rewards accrue into the Owed fields and
// are settled lazily against the range's inside-growth snapshots.
type Position struct {
	ID        string
	Owner     solana.PublicKey
	TickLower int32
	TickUpper int32
	Liquidity uint128.Uint128

	FeeGrowthInsideLastA uint128.Uint128
	FeeGrowthInsideLastB uint128.Uint128
	FeeOwedA             uint64
	FeeOwedB             uint64

	RewardGrowthsInsideLast [NumRewards]uint128.Uint128
	RewardsOwed             [NumRewards]uint64
}

// Empty reports whether a position holds no liquidity and owes nothing.
func (pos *Position) Empty() bool {
	if !pos.Liquidity.IsZero() || pos.FeeOwedA != 0 || pos.FeeOwedB != 0 {
		return false
	}
	for _, owed := range pos.RewardsOwed {
		if owed != 0 {
			return false
		}
	}
	return true
}

// settle folds the growth since the last snapshot into the owed balances
// and advances the snapshots. Owed amounts saturate at uint64 max rather
// than wrapping; a position accruing past that is unrealistic but must not
// corrupt accounting.
func (pos *Position) settle(feeInsideA, feeInsideB uint128.Uint128, rewardInside [NumRewards]uint128.Uint128) {
	liquidity := fixedmath.FromUint128(pos.Liquidity)

	earnedA := fixedmath.SettleGrowth(liquidity, feeInsideA.SubWrap(pos.FeeGrowthInsideLastA))
	earnedB := fixedmath.SettleGrowth(liquidity, feeInsideB.SubWrap(pos.FeeGrowthInsideLastB))
	pos.FeeOwedA = saturatingAddU64(pos.FeeOwedA, earnedA)
	pos.FeeOwedB = saturatingAddU64(pos.FeeOwedB, earnedB)
	pos.FeeGrowthInsideLastA = feeInsideA
	pos.FeeGrowthInsideLastB = feeInsideB

	for i := 0; i < NumRewards; i++ {
		earned := fixedmath.SettleGrowth(liquidity, rewardInside[i].SubWrap(pos.RewardGrowthsInsideLast[i]))
		pos.RewardsOwed[i] = saturatingAddU64(pos.RewardsOwed[i], earned)
		pos.RewardGrowthsInsideLast[i] = rewardInside[i]
	}
}

func saturatingAddU64(owed uint64, earned cosmath.Int) uint64 {
	if !earned.IsUint64() {
		return ^uint64(0)
	}
	sum := owed + earned.Uint64()
	if sum < owed {
		return ^uint64(0)
	}
	return sum
}

// PositionLedger holds every open position of one pool, keyed by ID.
type PositionLedger struct {
	positions map[string]*Position
	seq       uint64
}

func NewPositionLedger() *PositionLedger {
	return &PositionLedger{positions: make(map[string]*Position)}
}

// Open creates an empty position and returns it. The ID is derived from
// the pool, owner, range, and an open sequence number, so reopening the
// same range yields a distinct position.
func (l *PositionLedger) Open(pool solana.PublicKey, owner solana.PublicKey, tickLower, tickUpper int32) *Position {
	l.seq++
	pos := &Position{
		ID:        derivePositionID(pool, owner, tickLower, tickUpper, l.seq),
		Owner:     owner,
		TickLower: tickLower,
		TickUpper: tickUpper,
	}
	l.positions[pos.ID] = pos
	return pos
}

// Get looks a position up by ID.
func (l *PositionLedger) Get(id string) (*Position, error) {
	pos, ok := l.positions[id]
	if !ok {
		return nil, errorsmod.Wrapf(ErrPositionNotFound, "position %s", id)
	}
	return pos, nil
}

// Remove drops a closed position from the ledger.
func (l *PositionLedger) Remove(id string) {
	delete(l.positions, id)
}

// Len returns the number of open positions.
func (l *PositionLedger) Len() int {
	return len(l.positions)
}

// Iter visits every open position in unspecified order.
func (l *PositionLedger) Iter(fn func(*Position)) {
	for _, pos := range l.positions {
		fn(pos)
	}
}

func derivePositionID(pool, owner solana.PublicKey, tickLower, tickUpper int32, seq uint64) string {
	var buf [80]byte
	copy(buf[0:32], pool[:])
	copy(buf[32:64], owner[:])
	binary.LittleEndian.PutUint32(buf[64:68], uint32(tickLower))
	binary.LittleEndian.PutUint32(buf[68:72], uint32(tickUpper))
	binary.LittleEndian.PutUint64(buf[72:80], seq)
	sum := sha256.Sum256(buf[:])
	return base58.Encode(sum[:])
}
