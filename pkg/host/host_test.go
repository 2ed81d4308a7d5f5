package host

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solclmm/pkg/clmm"
	"solclmm/pkg/feetier"
	"solclmm/pkg/tickmath"
)

func newHostPool(t *testing.T) *clmm.Pool {
	t.Helper()
	tier := feetier.Tier{TickSpacing: 64, FeeRate: 2500, ProtocolFeeShare: 1200}
	sqrtPrice, err := tickmath.SqrtPriceFromTick(0)
	require.NoError(t, err)
	pool, err := clmm.NewPool(
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		tier,
		sqrtPrice,
		0,
	)
	require.NoError(t, err)
	return pool
}

func TestRegisterAndLookup(t *testing.T) {
	h := New(nil)
	pool := newHostPool(t)

	require.NoError(t, h.Register(pool))
	require.ErrorIs(t, h.Register(pool), ErrPoolExists)
	require.Len(t, h.Pools(), 1)

	err := h.Do(context.Background(), "missing", func(*clmm.Pool) error { return nil })
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestDoSerializesPerPool(t *testing.T) {
	h := New(nil)
	pool := newHostPool(t)
	require.NoError(t, h.Register(pool))
	id := pool.PoolId.String()

	owner := solana.NewWallet().PublicKey()
	var posID string
	require.NoError(t, h.Do(context.Background(), id, func(p *clmm.Pool) error {
		pos, err := p.OpenPosition(owner, -443584, 443584)
		if err != nil {
			return err
		}
		posID = pos.ID
		_, err = p.IncreaseLiquidity(posID, cosmath.NewInt(10_000_000), 0, 0, 0)
		return err
	}))

	var inFlight, maxInFlight int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.Do(context.Background(), id, func(p *clmm.Pool) error {
				n := atomic.AddInt64(&inFlight, 1)
				for {
					cur := atomic.LoadInt64(&maxInFlight)
					if n <= cur || atomic.CompareAndSwapInt64(&maxInFlight, cur, n) {
						break
					}
				}
				_, err := p.Swap(clmm.SwapParams{Amount: 1_000, ExactInput: true, AToB: i%2 == 0})
				atomic.AddInt64(&inFlight, -1)
				return err
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), atomic.LoadInt64(&maxInFlight), "operations on one pool must never overlap")
}

func TestDoHonorsContext(t *testing.T) {
	h := New(nil)
	pool := newHostPool(t)
	require.NoError(t, h.Register(pool))
	id := pool.PoolId.String()

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = h.Do(context.Background(), id, func(*clmm.Pool) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Do(ctx, id, func(*clmm.Pool) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestRateLimitOption(t *testing.T) {
	h := New(nil, WithRateLimit(1000, 1))
	pool := newHostPool(t)
	require.NoError(t, h.Register(pool))

	// The limiter waits rather than rejects; ops still complete in order.
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Do(context.Background(), pool.PoolId.String(), func(*clmm.Pool) error { return nil }))
	}
}
