package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/curve-arbitrage/business/curve/domain"
	"github.com/fd1az/curve-arbitrage/internal/logger"
)

const meterName = "curve"

// StateCacheConfig holds refresh timings.
type StateCacheConfig struct {
	PollInterval  time.Duration
	DebounceDelay time.Duration
	Active        bool
}

// DefaultStateCacheConfig returns the default timings.
func DefaultStateCacheConfig() StateCacheConfig {
	return StateCacheConfig{
		PollInterval:  12 * time.Second,
		DebounceDelay: 600 * time.Millisecond,
	}
}

type cacheMetrics struct {
	refreshes       metric.Int64Counter
	refreshFailures metric.Int64Counter
	stepReads       metric.Int64Counter
	discarded       metric.Int64Counter
}

// StateCache keeps a local snapshot of one remote curve. The step table is
// read once per curve address; config and current step are re-read on every
// refresh. Read failures leave the snapshot untouched.
type StateCache struct {
	reader StateReader
	cfg    StateCacheConfig
	log    logger.LoggerInterface
	now    func() time.Time

	// background refreshes derive from ctx; Close cancels it
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	target      common.Address
	generation  uint64
	active      bool
	stepsLoaded bool
	readSeq     uint64 // last read issued
	storedSeq   uint64 // read behind the stored snapshot
	steps       []domain.BondStep
	snapshot    *domain.Snapshot
	debounce    *time.Timer
	stopPoll    chan struct{}
	listeners   []func(domain.Snapshot)
	closed      bool

	group   singleflight.Group
	metrics *cacheMetrics
}

// NewStateCache creates a cache with no target. Polling starts once a target
// is set and the cache is active.
func NewStateCache(reader StateReader, cfg StateCacheConfig, log logger.LoggerInterface) (*StateCache, error) {
	def := DefaultStateCacheConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &StateCache{
		reader: reader,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		active: cfg.Active,
	}

	if err := c.initMetrics(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *StateCache) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &cacheMetrics{}

	c.metrics.refreshes, err = meter.Int64Counter(
		"curve_cache_refreshes_total",
		metric.WithDescription("Successful curve state refreshes"),
	)
	if err != nil {
		return err
	}

	c.metrics.refreshFailures, err = meter.Int64Counter(
		"curve_cache_refresh_failures_total",
		metric.WithDescription("Curve state refreshes that left the cache stale"),
	)
	if err != nil {
		return err
	}

	c.metrics.stepReads, err = meter.Int64Counter(
		"curve_cache_step_reads_total",
		metric.WithDescription("Step table reads"),
	)
	if err != nil {
		return err
	}

	c.metrics.discarded, err = meter.Int64Counter(
		"curve_cache_discarded_total",
		metric.WithDescription("Refresh results dropped because the target changed"),
	)
	return err
}

// SetTarget points the cache at a curve. Changing the address drops the
// snapshot and the loaded step table and cancels pending timers.
func (c *StateCache) SetTarget(curve common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || curve == c.target {
		return
	}

	c.stopTimersLocked()
	c.target = curve
	c.generation++
	c.stepsLoaded = false
	c.steps = nil
	c.snapshot = nil

	c.startPollLocked()
}

// SetActive turns interval polling on or off.
func (c *StateCache) SetActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || active == c.active {
		return
	}

	c.active = active
	if active {
		c.startPollLocked()
		return
	}
	c.stopPollLocked()
}

// Target returns the current curve address.
func (c *StateCache) Target() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Snapshot returns a deep copy of the latest snapshot, or nil before the
// first successful refresh.
func (c *StateCache) Snapshot() *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return nil
	}
	snap := c.snapshot.Clone()
	return &snap
}

// OnUpdate registers fn to receive every stored snapshot.
func (c *StateCache) OnUpdate(fn func(domain.Snapshot)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Refresh reads the curve now. Concurrent calls for the same target share one
// read, so the result may come from a read that started before the call.
// Failures are logged and swallowed.
func (c *StateCache) Refresh(ctx context.Context) {
	target, gen, ok := c.current()
	if !ok {
		return
	}

	key := fmt.Sprintf("%s/%d", target.Hex(), gen)
	_, _, _ = c.group.Do(key, func() (any, error) {
		c.refresh(ctx, target, gen)
		return nil, nil
	})
}

// ForceRefresh reads the curve without joining an in-flight read. When it
// returns, any stored snapshot comes from a read issued after the call.
func (c *StateCache) ForceRefresh(ctx context.Context) {
	target, gen, ok := c.current()
	if !ok {
		return
	}
	c.refresh(ctx, target, gen)
}

func (c *StateCache) current() (common.Address, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.target == (common.Address{}) {
		return common.Address{}, 0, false
	}
	return c.target, c.generation, true
}

func (c *StateCache) refresh(ctx context.Context, target common.Address, gen uint64) {
	attrs := metric.WithAttributes(attribute.String("curve", target.Hex()))

	c.mu.Lock()
	c.readSeq++
	seq, withSteps := c.readSeq, !c.stepsLoaded
	c.mu.Unlock()

	if withSteps {
		c.metrics.stepReads.Add(ctx, 1, attrs)
	}

	read, err := c.reader.ReadState(ctx, target, withSteps)
	if err != nil {
		c.metrics.refreshFailures.Add(ctx, 1, attrs)
		c.log.Warn(ctx, "curve state read failed, keeping cached snapshot",
			"curve", target.Hex(),
			"with_steps", withSteps,
			"error", err,
		)
		return
	}

	var listeners []func(domain.Snapshot)
	var stored domain.Snapshot

	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		c.metrics.discarded.Add(ctx, 1, attrs)
		c.log.Debug(ctx, "discarding curve state for previous target", "curve", target.Hex())
		return
	}
	if seq < c.storedSeq {
		c.mu.Unlock()
		c.metrics.discarded.Add(ctx, 1, attrs)
		c.log.Debug(ctx, "discarding curve state older than the stored snapshot", "curve", target.Hex())
		return
	}

	steps := c.steps
	if withSteps && !c.stepsLoaded {
		steps = read.Steps
	}
	if err := domain.ValidateSteps(steps, read.Config.TotalSupply); err != nil {
		c.mu.Unlock()
		c.metrics.refreshFailures.Add(ctx, 1, attrs)
		c.log.Warn(ctx, "curve state rejected", "curve", target.Hex(), "error", err)
		return
	}

	if withSteps && !c.stepsLoaded {
		c.steps = read.Steps
		c.stepsLoaded = true
	}
	c.storedSeq = seq
	c.snapshot = &domain.Snapshot{
		Curve:     target,
		Config:    read.Config,
		Current:   read.Current,
		Window:    read.Window,
		Steps:     c.steps,
		UpdatedAt: c.now(),
	}
	stored = c.snapshot.Clone()
	listeners = append(listeners, c.listeners...)
	c.mu.Unlock()

	c.metrics.refreshes.Add(ctx, 1, attrs)
	c.log.Debug(ctx, "curve state refreshed",
		"curve", target.Hex(),
		"total_supply", stored.Config.TotalSupply,
		"step", stored.Current.Index,
		"steps_read", withSteps,
	)

	for _, fn := range listeners {
		fn(stored)
	}
}

// DebouncedRefresh schedules a refresh after delay, replacing any pending
// one. A non-positive delay uses the configured default.
func (c *StateCache) DebouncedRefresh(delay time.Duration) {
	if delay <= 0 {
		delay = c.cfg.DebounceDelay
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}

	gen := c.generation
	c.debounce = time.AfterFunc(delay, func() {
		c.mu.Lock()
		stale := c.closed || gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		c.Refresh(c.ctx)
	})
}

// Age is how long ago the snapshot was stored. ok is false when there is no
// snapshot.
func (c *StateCache) Age() (age time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snapshot == nil {
		return 0, false
	}
	return c.now().Sub(c.snapshot.UpdatedAt), true
}

// Close stops all timers. Refreshes still in flight are discarded.
func (c *StateCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopTimersLocked()
	c.cancel()
}

func (c *StateCache) startPollLocked() {
	if !c.active || c.target == (common.Address{}) || c.stopPoll != nil {
		return
	}

	stop := make(chan struct{})
	c.stopPoll = stop
	interval := c.cfg.PollInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(c.ctx, interval)
				c.Refresh(ctx)
				cancel()
			}
		}
	}()
}

func (c *StateCache) stopPollLocked() {
	if c.stopPoll != nil {
		close(c.stopPoll)
		c.stopPoll = nil
	}
}

func (c *StateCache) stopTimersLocked() {
	c.stopPollLocked()
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}
