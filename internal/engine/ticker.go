// Package engine contains the mission loop and the item lifecycle.
//
// ARCHITECTURAL RULE: world state is only touched from the Ticker's goroutine.
// Outside callers hand work in through Engine.Do.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

// DefaultTickRate is how often the world advances (in real time).
const DefaultTickRate = 32 * time.Millisecond

// Ticker is the logic goroutine: it advances simulated time by one tick per
// real tick and runs queued commands in between.
// It does NOT know about items - only time progression.
type Ticker struct {
	rate       time.Duration
	onTick     func(dt time.Duration)
	commands   chan func()
	logger     *logger.Logger
	tickNumber atomic.Int64
	stopChan   chan struct{}
	stopOnce   sync.Once

	// mu guards closed; Submit holds it for reading while enqueueing.
	mu     sync.RWMutex
	closed bool
}

// NewTicker creates a ticker calling onTick every rate.
func NewTicker(rate time.Duration, onTick func(dt time.Duration), log *logger.Logger) *Ticker {
	if rate <= 0 {
		rate = DefaultTickRate
	}
	return &Ticker{
		rate:     rate,
		onTick:   onTick,
		commands: make(chan func(), 64),
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine Ticker started.")

	ticker := time.NewTicker(t.rate)
	defer ticker.Stop()
	defer t.drain()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Engine Ticker stopped manually.")
			return
		case fn := <-t.commands:
			fn()
		case <-ticker.C:
			t.tick()
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// drain closes the queue and runs every command accepted before the close.
func (t *Ticker) drain() {
	t.Stop()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	for {
		select {
		case fn := <-t.commands:
			fn()
		default:
			return
		}
	}
}

// Submit queues fn for the logic goroutine. Once Submit returns nil, fn is
// guaranteed to run.
func (t *Ticker) Submit(ctx context.Context, fn func()) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrStopped
	}
	select {
	case t.commands <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopChan:
		return ErrStopped
	}
}

// TickNumber returns how many ticks have run.
func (t *Ticker) TickNumber() int64 {
	return t.tickNumber.Load()
}

func (t *Ticker) tick() {
	start := time.Now()
	t.tickNumber.Add(1)
	t.onTick(t.rate)
	metrics.Get().RecordTick(time.Since(start))
}
