// Package alert rings the POS terminals while customer orders are waiting to
// be accepted.
package alert

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultToneGap  = 400 * time.Millisecond
)

// Tone is one beep of the ring pattern.
type Tone struct {
	Name        string `json:"name"`
	FrequencyHz int    `json:"frequencyHz"`
	DurationMs  int    `json:"durationMs"`
}

var (
	ToneHigh = Tone{Name: "high", FrequencyHz: 880, DurationMs: 250}
	ToneLow  = Tone{Name: "low", FrequencyHz: 660, DurationMs: 250}
)

// Ringer plays one tone. pending is the number of unacknowledged orders at
// the time of the ring.
type Ringer interface {
	Ring(ctx context.Context, tone Tone, pending int) error
}

// Silencer is optionally implemented by a Ringer that wants to know when
// ringing stops.
type Silencer interface {
	Silence()
}

// Alerter keeps the set of unacknowledged customer orders and runs a single
// ring loop while that set is non-empty.
type Alerter struct {
	ringer   Ringer
	interval time.Duration
	gap      time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	pending  map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	stopping chan struct{}
	loops    int
	closed   bool
}

type Config struct {
	Interval time.Duration
	ToneGap  time.Duration
}

func New(r Ringer, cfg Config, logger zerolog.Logger) *Alerter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ToneGap <= 0 {
		cfg.ToneGap = DefaultToneGap
	}
	return &Alerter{
		ringer:   r,
		interval: cfg.Interval,
		gap:      cfg.ToneGap,
		logger:   logger.With().Str("component", "alert").Logger(),
		pending:  make(map[string]struct{}),
	}
}

// Notify marks orderID as waiting and starts ringing if nothing was.
func (a *Alerter) Notify(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending[orderID] = struct{}{}
	a.startLocked()
}

// Acknowledge removes orderID. Ringing stops as soon as nothing is waiting.
func (a *Alerter) Acknowledge(orderID string) {
	a.mu.Lock()
	delete(a.pending, orderID)
	stop := a.stopLocked(len(a.pending) == 0)
	a.mu.Unlock()
	stop()
}

// AcknowledgeAll silences every waiting order.
func (a *Alerter) AcknowledgeAll() {
	a.mu.Lock()
	a.pending = make(map[string]struct{})
	stop := a.stopLocked(true)
	a.mu.Unlock()
	stop()
}

// Sync replaces the waiting set with ids, for example after a restart.
func (a *Alerter) Sync(ids []string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.pending = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		a.pending[id] = struct{}{}
	}
	if len(a.pending) > 0 {
		a.startLocked()
		a.mu.Unlock()
		return
	}
	stop := a.stopLocked(true)
	a.mu.Unlock()
	stop()
}

// Active reports whether the ring loop is running.
func (a *Alerter) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Pending returns the waiting order ids, sorted.
func (a *Alerter) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops ringing for good and waits for the loop to exit.
func (a *Alerter) Close() {
	a.mu.Lock()
	a.closed = true
	stop := a.stopLocked(true)
	a.mu.Unlock()
	stop()
}

// startLocked starts the ring loop. A loop detached by stopLocked may still
// be exiting; the new one waits for it so two loops never overlap.
func (a *Alerter) startLocked() {
	if a.cancel != nil || len(a.pending) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	prev := a.stopping
	a.cancel = cancel
	a.done = done
	a.stopping = nil
	a.loops++
	go a.run(ctx, prev, done)
}

// stopLocked detaches the running loop when cond holds and returns a func
// that cancels it and waits for it to exit. The func must be called after
// a.mu is released.
func (a *Alerter) stopLocked(cond bool) func() {
	if !cond || a.cancel == nil {
		return func() {}
	}
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.stopping = done
	return func() {
		cancel()
		<-done
	}
}

func (a *Alerter) run(ctx context.Context, prev <-chan struct{}, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		return
	}

	a.logger.Info().Msg("incoming order alert started")
	defer func() {
		if s, ok := a.ringer.(Silencer); ok {
			s.Silence()
		}
		a.logger.Info().Msg("incoming order alert stopped")
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.ring(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Alerter) ring(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n := a.pendingCount()
	if err := a.ringer.Ring(ctx, ToneHigh, n); err != nil && ctx.Err() == nil {
		a.logger.Warn().Err(err).Msg("ring failed")
	}

	gap := time.NewTimer(a.gap)
	defer gap.Stop()
	select {
	case <-ctx.Done():
		return
	case <-gap.C:
	}

	if err := a.ringer.Ring(ctx, ToneLow, n); err != nil && ctx.Err() == nil {
		a.logger.Warn().Err(err).Msg("ring failed")
	}
}

func (a *Alerter) pendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
