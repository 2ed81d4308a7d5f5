package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solclmm/pkg/clmm"
	"solclmm/pkg/config"
	"solclmm/pkg/feetier"
	"solclmm/pkg/host"
	"solclmm/pkg/tickmath"
)

type QuoteResponse struct {
	PoolID         string `json:"poolId"`
	Direction      string `json:"direction"`
	ExactInput     bool   `json:"exactInput"`
	AmountIn       string `json:"amountIn"`
	AmountOut      string `json:"amountOut"`
	FeeAmount      string `json:"feeAmount"`
	ProtocolFee    uint64 `json:"protocolFee"`
	SqrtPriceAfter string `json:"sqrtPriceAfter"`
	TickAfter      int32  `json:"tickAfter"`
	CrossedTicks   int    `json:"crossedTicks"`
}

type QuoteError struct {
	Error string `json:"error"`
}

var (
	feeRate    = flag.Uint("fee", 2500, "Fee tier in hundredths of a basis point (default: 2500 = 0.25%)")
	startTick  = flag.Int("start-tick", 0, "Initial pool tick (default: 0, price 1.0)")
	tickLower  = flag.Int("tick-lower", -443584, "Position lower tick (snapped to the tier's spacing)")
	tickUpper  = flag.Int("tick-upper", 443584, "Position upper tick (snapped to the tier's spacing)")
	liquidity  = flag.String("liquidity", "1000000", "Position liquidity")
	amount     = flag.Uint64("amount", 0, "Swap amount in smallest units (required)")
	exactOut   = flag.Bool("exact-out", false, "Treat amount as the desired output")
	bToA       = flag.Bool("b-to-a", false, "Swap token B for token A (default: A for B)")
	threshold  = flag.Uint64("threshold", 0, "Min output (exact-in) or max input (exact-out), 0 disables")
	now        = flag.Uint64("now", 0, "Unix timestamp for reward accrual (default: 0)")
	jsonOutput = flag.Bool("json", true, "Output as JSON (default: true)")
)

func main() {
	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env file: %v\n", err)
	}

	flag.Parse()

	logger := zap.NewNop()
	if !*jsonOutput || config.GetBool("CLMM_VERBOSE", false) {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
		defer logger.Sync()
	}

	if *amount == 0 {
		fmt.Fprintln(os.Stderr, "Error: Missing required arguments")
		fmt.Fprintln(os.Stderr, "\nUsage:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nExample:")
		fmt.Fprintln(os.Stderr, "  clmm-quote -fee 2500 -liquidity 1000000 -amount 10000")
		os.Exit(1)
	}

	tiers := feetier.NewRegistry()
	tier, err := tiers.Get(uint16(config.GetUint64("CLMM_FEE_RATE", uint64(*feeRate))))
	if err != nil {
		outputError(err.Error())
		os.Exit(1)
	}

	sqrtPrice, err := tickmath.SqrtPriceFromTick(int32(*startTick))
	if err != nil {
		outputError(fmt.Sprintf("Invalid start tick: %v", err))
		os.Exit(1)
	}

	pool, err := clmm.NewPool(
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		tier,
		sqrtPrice,
		*now,
	)
	if err != nil {
		outputError(fmt.Sprintf("Failed to create pool: %v", err))
		os.Exit(1)
	}

	liq, ok := math.NewIntFromString(*liquidity)
	if !ok || !liq.IsPositive() {
		outputError("Invalid liquidity: must be a positive integer")
		os.Exit(1)
	}

	owner := solana.NewWallet().PublicKey()
	lower := tickmath.NearestValidTick(int32(*tickLower), tier.TickSpacing)
	upper := tickmath.NearestValidTick(int32(*tickUpper), tier.TickSpacing)
	pos, err := pool.OpenPosition(owner, lower, upper)
	if err != nil {
		outputError(fmt.Sprintf("Failed to open position: %v", err))
		os.Exit(1)
	}
	if _, err := pool.IncreaseLiquidity(pos.ID, liq, 0, 0, *now); err != nil {
		outputError(fmt.Sprintf("Failed to add liquidity: %v", err))
		os.Exit(1)
	}

	logger.Info("pool prepared",
		zap.String("pool", pool.PoolId.String()),
		zap.Uint16("fee_rate", pool.FeeRate),
		zap.Int32("tick", pool.TickCurrent),
	)

	var hostOpts []host.Option
	if perSec := config.GetFloat64("CLMM_RATE_LIMIT", 0); perSec > 0 {
		hostOpts = append(hostOpts, host.WithRateLimit(perSec, int(config.GetUint64("CLMM_RATE_BURST", 1))))
	}
	h := host.New(logger, hostOpts...)
	if err := h.Register(pool); err != nil {
		outputError(fmt.Sprintf("Failed to register pool: %v", err))
		os.Exit(1)
	}

	var result *clmm.SwapResult
	err = h.Do(context.Background(), pool.PoolId.String(), func(p *clmm.Pool) error {
		var qerr error
		result, qerr = p.QuoteSwap(clmm.SwapParams{
			Amount:          *amount,
			ExactInput:      !*exactOut,
			AToB:            !*bToA,
			AmountThreshold: *threshold,
			Now:             *now,
		})
		return qerr
	})
	if err != nil {
		outputError(fmt.Sprintf("Quote failed: %v", err))
		os.Exit(1)
	}

	direction := "AtoB"
	if *bToA {
		direction = "BtoA"
	}
	response := QuoteResponse{
		PoolID:         pool.PoolId.String(),
		Direction:      direction,
		ExactInput:     !*exactOut,
		AmountIn:       result.AmountIn.Add(result.FeeAmount).String(),
		AmountOut:      result.AmountOut.String(),
		FeeAmount:      result.FeeAmount.String(),
		ProtocolFee:    result.ProtocolFee,
		SqrtPriceAfter: result.SqrtPrice.String(),
		TickAfter:      result.Tick,
		CrossedTicks:   len(result.CrossedTicks),
	}
	out, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		outputError(fmt.Sprintf("Failed to marshal response: %v", err))
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func outputError(msg string) {
	out, _ := json.Marshal(QuoteError{Error: msg})
	fmt.Fprintln(os.Stderr, string(out))
}
