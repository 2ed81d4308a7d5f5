// Package host mediates concurrent access to a set of pools. The engine
// itself is single-writer per pool; the host enforces that by funneling
// every operation through a per-pool lock, with optional request rate
// limiting across the whole set.
package host

import (
	"context"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solclmm/pkg/clmm"
)

var (
	ErrPoolNotFound = errorsmod.Register("host", 2, "pool not registered")
	ErrPoolExists   = errorsmod.Register("host", 3, "pool already registered")
)

type entry struct {
	sem  chan struct{} // 1-slot semaphore, so waits honor ctx
	pool *clmm.Pool
}

// Host owns the registered pools and serializes operations on each.
type Host struct {
	mu      sync.RWMutex
	pools   map[string]*entry
	logger  *zap.Logger
	limiter *rate.Limiter
}

// Option configures a Host.
type Option func(*Host)

// WithRateLimit caps operations per second across all pools.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Host) {
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New builds a Host. A nil logger disables logging.
func New(logger *zap.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		pools:  make(map[string]*entry),
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a pool under its pool ID.
func (h *Host) Register(p *clmm.Pool) error {
	id := p.PoolId.String()
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pools[id]; ok {
		return errorsmod.Wrapf(ErrPoolExists, "pool %s", id)
	}
	e := &entry{sem: make(chan struct{}, 1), pool: p}
	e.sem <- struct{}{}
	h.pools[id] = e
	h.logger.Info("pool registered",
		zap.String("pool", id),
		zap.Uint16("tick_spacing", p.TickSpacing),
		zap.Uint16("fee_rate", p.FeeRate),
	)
	return nil
}

// Do runs fn with exclusive access to the named pool. The wait for both
// the rate limiter and the pool lock respects ctx cancellation.
func (h *Host) Do(ctx context.Context, poolID string, fn func(*clmm.Pool) error) error {
	h.mu.RLock()
	e, ok := h.pools[poolID]
	h.mu.RUnlock()
	if !ok {
		return errorsmod.Wrapf(ErrPoolNotFound, "pool %s", poolID)
	}
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	select {
	case <-e.sem:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { e.sem <- struct{}{} }()

	start := time.Now()
	err := fn(e.pool)
	h.logger.Debug("pool op",
		zap.String("pool", poolID),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	return err
}

// Pools returns the registered pool IDs.
func (h *Host) Pools() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.pools))
	for id := range h.pools {
		out = append(out, id)
	}
	return out
}
