package clmm

import (
	"encoding/binary"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	cosmath "cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"lukechampine.com/uint128"

	"solclmm/pkg/feetier"
	"solclmm/pkg/fixedmath"
)

// Fixed-width little-endian record layouts for durable pool state. Each
// record opens with an 8-byte discriminator so a reader can reject bytes
// belonging to a different record kind.
const (
	PoolRecordLen     = 716
	TickRecordLen     = 124
	PositionRecordLen = 216

	rewardInfoLen = 128
)

var (
	poolDiscriminator     = [8]byte{'c', 'l', 'm', 'm', 'p', 'o', 'o', 'l'}
	tickDiscriminator     = [8]byte{'c', 'l', 'm', 'm', 't', 'i', 'c', 'k'}
	positionDiscriminator = [8]byte{'c', 'l', 'm', 'm', 'p', 'o', 's', 'n'}
)

// EncodePool serializes the pool header. Tick and position records are
// emitted separately; see EncodeTick and EncodePosition.
func (p *Pool) EncodePool() []byte {
	data := make([]byte, PoolRecordLen)
	copy(data[0:8], poolDiscriminator[:])
	copy(data[8:40], p.PoolId[:])
	copy(data[40:72], p.TokenMintA[:])
	copy(data[72:104], p.TokenMintB[:])
	copy(data[104:136], p.TokenVaultA[:])
	copy(data[136:168], p.TokenVaultB[:])
	binary.LittleEndian.PutUint16(data[168:170], p.TickSpacing)
	binary.LittleEndian.PutUint16(data[170:172], p.FeeRate)
	binary.LittleEndian.PutUint16(data[172:174], p.ProtocolFeeShare)
	data[174] = byte(p.SplitPolicy)
	// data[175] reserved
	p.SqrtPrice.PutBytes(data[176:192])
	binary.LittleEndian.PutUint32(data[192:196], uint32(p.TickCurrent))
	p.Liquidity.PutBytes(data[196:212])
	p.FeeGrowthGlobalA.PutBytes(data[212:228])
	p.FeeGrowthGlobalB.PutBytes(data[228:244])
	binary.LittleEndian.PutUint64(data[244:252], p.ProtocolFeeOwedA)
	binary.LittleEndian.PutUint64(data[252:260], p.ProtocolFeeOwedB)
	p.SwapInAmountA.PutBytes(data[260:276])
	p.SwapOutAmountB.PutBytes(data[276:292])
	p.SwapInAmountB.PutBytes(data[292:308])
	p.SwapOutAmountA.PutBytes(data[308:324])
	binary.LittleEndian.PutUint64(data[324:332], p.RewardLastUpdated)
	off := 332
	for i := 0; i < NumRewards; i++ {
		info := &p.RewardInfos[i]
		copy(data[off:off+32], info.Mint[:])
		copy(data[off+32:off+64], info.Vault[:])
		copy(data[off+64:off+96], info.Authority[:])
		info.EmissionsPerSecondX64.PutBytes(data[off+96 : off+112])
		info.GrowthGlobalX64.PutBytes(data[off+112 : off+128])
		off += rewardInfoLen
	}
	return data
}

// DecodePool reconstructs a pool header. The returned pool carries empty
// tick and position stores; restore those from their own records.
func DecodePool(data []byte) (*Pool, error) {
	if len(data) < PoolRecordLen {
		return nil, errorsmod.Wrapf(ErrRecordTooShort, "pool record needs %d bytes, got %d", PoolRecordLen, len(data))
	}
	if [8]byte(data[0:8]) != poolDiscriminator {
		return nil, errorsmod.Wrap(ErrRecordDiscriminator, "not a pool record")
	}

	p := &Pool{
		PoolId:      solana.PublicKeyFromBytes(data[8:40]),
		TokenMintA:  solana.PublicKeyFromBytes(data[40:72]),
		TokenMintB:  solana.PublicKeyFromBytes(data[72:104]),
		TokenVaultA: solana.PublicKeyFromBytes(data[104:136]),
		TokenVaultB: solana.PublicKeyFromBytes(data[136:168]),
		SplitPolicy: feetier.SplitPolicy(data[174]),
	}
	if err := decodeFields(data[168:174], &p.TickSpacing, &p.FeeRate, &p.ProtocolFeeShare); err != nil {
		return nil, err
	}
	if err := decodeFields(data[176:192], &p.SqrtPrice); err != nil {
		return nil, err
	}
	if err := decodeFields(data[192:196], &p.TickCurrent); err != nil {
		return nil, err
	}
	if err := decodeFields(data[196:260], &p.Liquidity, &p.FeeGrowthGlobalA, &p.FeeGrowthGlobalB, &p.ProtocolFeeOwedA, &p.ProtocolFeeOwedB); err != nil {
		return nil, err
	}
	if err := decodeFields(data[260:332], &p.SwapInAmountA, &p.SwapOutAmountB, &p.SwapInAmountB, &p.SwapOutAmountA, &p.RewardLastUpdated); err != nil {
		return nil, err
	}
	off := 332
	for i := 0; i < NumRewards; i++ {
		info := &p.RewardInfos[i]
		info.Mint = solana.PublicKeyFromBytes(data[off : off+32])
		info.Vault = solana.PublicKeyFromBytes(data[off+32 : off+64])
		info.Authority = solana.PublicKeyFromBytes(data[off+64 : off+96])
		if err := decodeFields(data[off+96:off+128], &info.EmissionsPerSecondX64, &info.GrowthGlobalX64); err != nil {
			return nil, err
		}
		off += rewardInfoLen
	}
	p.Ticks = NewTickRegistry(p.TickSpacing)
	p.Positions = NewPositionLedger()
	return p, nil
}

// EncodeTick serializes one initialized tick.
func EncodeTick(t *Tick) []byte {
	data := make([]byte, TickRecordLen)
	copy(data[0:8], tickDiscriminator[:])
	binary.LittleEndian.PutUint32(data[8:12], uint32(t.Index))
	putInt128(data[12:28], t.LiquidityNet)
	t.LiquidityGross.PutBytes(data[28:44])
	t.FeeGrowthOutsideA.PutBytes(data[44:60])
	t.FeeGrowthOutsideB.PutBytes(data[60:76])
	off := 76
	for i := 0; i < NumRewards; i++ {
		t.RewardGrowthsOutside[i].PutBytes(data[off : off+16])
		off += 16
	}
	return data
}

// DecodeTick parses one tick record.
func DecodeTick(data []byte) (Tick, error) {
	var t Tick
	if len(data) < TickRecordLen {
		return t, errorsmod.Wrapf(ErrRecordTooShort, "tick record needs %d bytes, got %d", TickRecordLen, len(data))
	}
	if [8]byte(data[0:8]) != tickDiscriminator {
		return t, errorsmod.Wrap(ErrRecordDiscriminator, "not a tick record")
	}
	if err := decodeFields(data[8:12], &t.Index); err != nil {
		return t, err
	}
	t.LiquidityNet = getInt128(data[12:28])
	if err := decodeFields(data[28:76], &t.LiquidityGross, &t.FeeGrowthOutsideA, &t.FeeGrowthOutsideB); err != nil {
		return t, err
	}
	off := 76
	for i := 0; i < NumRewards; i++ {
		if err := decodeFields(data[off:off+16], &t.RewardGrowthsOutside[i]); err != nil {
			return t, err
		}
		off += 16
	}
	return t, nil
}

// RestoreTick installs a decoded tick into the registry, marking it
// initialized. Intended for rebuilding a registry from records.
func (r *TickRegistry) RestoreTick(t Tick) {
	rec := r.GetOrInit(t.Index)
	*rec = t
	key, slot := r.locate(t.Index)
	if !t.LiquidityGross.IsZero() {
		r.buckets[key].bitmap |= 1 << slot
	}
}

// EncodePosition serializes one position.
func EncodePosition(pos *Position) ([]byte, error) {
	idHash, err := base58.Decode(pos.ID)
	if err != nil || len(idHash) != 32 {
		return nil, errorsmod.Wrapf(ErrPositionNotFound, "position id %q is not a 32-byte hash", pos.ID)
	}
	data := make([]byte, PositionRecordLen)
	copy(data[0:8], positionDiscriminator[:])
	copy(data[8:40], idHash)
	copy(data[40:72], pos.Owner[:])
	binary.LittleEndian.PutUint32(data[72:76], uint32(pos.TickLower))
	binary.LittleEndian.PutUint32(data[76:80], uint32(pos.TickUpper))
	pos.Liquidity.PutBytes(data[80:96])
	pos.FeeGrowthInsideLastA.PutBytes(data[96:112])
	pos.FeeGrowthInsideLastB.PutBytes(data[112:128])
	binary.LittleEndian.PutUint64(data[128:136], pos.FeeOwedA)
	binary.LittleEndian.PutUint64(data[136:144], pos.FeeOwedB)
	off := 144
	for i := 0; i < NumRewards; i++ {
		pos.RewardGrowthsInsideLast[i].PutBytes(data[off : off+16])
		off += 16
	}
	for i := 0; i < NumRewards; i++ {
		binary.LittleEndian.PutUint64(data[off:off+8], pos.RewardsOwed[i])
		off += 8
	}
	return data, nil
}

// DecodePosition parses one position record.
func DecodePosition(data []byte) (*Position, error) {
	if len(data) < PositionRecordLen {
		return nil, errorsmod.Wrapf(ErrRecordTooShort, "position record needs %d bytes, got %d", PositionRecordLen, len(data))
	}
	if [8]byte(data[0:8]) != positionDiscriminator {
		return nil, errorsmod.Wrap(ErrRecordDiscriminator, "not a position record")
	}
	pos := &Position{
		ID:    base58.Encode(data[8:40]),
		Owner: solana.PublicKeyFromBytes(data[40:72]),
	}
	if err := decodeFields(data[72:144], &pos.TickLower, &pos.TickUpper, &pos.Liquidity, &pos.FeeGrowthInsideLastA, &pos.FeeGrowthInsideLastB, &pos.FeeOwedA, &pos.FeeOwedB); err != nil {
		return nil, err
	}
	off := 144
	for i := 0; i < NumRewards; i++ {
		if err := decodeFields(data[off:off+16], &pos.RewardGrowthsInsideLast[i]); err != nil {
			return nil, err
		}
		off += 16
	}
	for i := 0; i < NumRewards; i++ {
		pos.RewardsOwed[i] = binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
	}
	return pos, nil
}

// RestorePosition installs a decoded position into the ledger.
func (l *PositionLedger) RestorePosition(pos *Position) {
	l.positions[pos.ID] = pos
}

func decodeFields(data []byte, fields ...interface{}) error {
	decoder := bin.NewBinDecoder(data)
	for _, f := range fields {
		if err := decoder.Decode(f); err != nil {
			return errorsmod.Wrap(ErrRecordTooShort, err.Error())
		}
	}
	return nil
}

// putInt128 writes a signed value as 16-byte two's-complement little endian.
func putInt128(dst []byte, v cosmath.Int) {
	b := v.BigInt()
	if b.Sign() < 0 {
		b = new(big.Int).Add(b, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	uint128.FromBig(new(big.Int).And(b, fixedmath.MaxUint128)).PutBytes(dst)
}

// getInt128 reads a 16-byte two's-complement little-endian value.
func getInt128(src []byte) cosmath.Int {
	u := uint128.FromBytes(src)
	b := u.Big()
	if u.Hi>>63 == 1 {
		b.Sub(b, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return cosmath.NewIntFromBigInt(b)
}
