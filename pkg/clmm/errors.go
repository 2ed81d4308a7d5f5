package clmm

import (
	errorsmod "cosmossdk.io/errors"
)

// Failure kinds surfaced by the engine. Nothing here is retried internally:
// every failure aborts the whole operation with no state change, and the
// transport layer above decides what is user-correctable.
var (
	ErrInvalidRange           = errorsmod.Register("clmm", 2, "invalid tick range")
	ErrZeroLiquidity          = errorsmod.Register("clmm", 3, "liquidity must be positive")
	ErrInsufficientLiquidity  = errorsmod.Register("clmm", 4, "insufficient position liquidity")
	ErrPositionNotEmpty       = errorsmod.Register("clmm", 5, "position has liquidity or uncollected amounts")
	ErrLiquidityOverflow      = errorsmod.Register("clmm", 6, "tick liquidity exceeds maximum")
	ErrAmountOutBelowMinimum  = errorsmod.Register("clmm", 7, "output amount below caller minimum")
	ErrAmountInAboveMaximum   = errorsmod.Register("clmm", 8, "input amount above caller maximum")
	ErrZeroLiquidityAtPrice   = errorsmod.Register("clmm", 9, "no active liquidity at current price")
	ErrPositionNotFound       = errorsmod.Register("clmm", 10, "position not found")
	ErrInvalidAmount          = errorsmod.Register("clmm", 11, "amount must be positive")
	ErrInvalidSqrtPriceLimit  = errorsmod.Register("clmm", 12, "sqrt price limit on wrong side of current price")
	ErrSwapStepLimitExceeded  = errorsmod.Register("clmm", 13, "swap exceeded maximum step count")
	ErrPoolAlreadyInitialized = errorsmod.Register("clmm", 14, "pool already initialized")
	ErrInvalidRewardIndex     = errorsmod.Register("clmm", 15, "reward index out of range")
	ErrRecordTooShort         = errorsmod.Register("clmm", 16, "record data too short")
	ErrRecordDiscriminator    = errorsmod.Register("clmm", 17, "record discriminator mismatch")
)
