package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/logging"
)

// initialLoadRetries bounds how long startup waits for a reachable rule
// source before continuing with an empty snapshot.
const initialLoadRetries = 4

// Refresher periodically re-pulls the rule set and swaps the resolver's
// snapshot. It runs on its own goroutine, never on a request path. Refresh
// failures are logged and leave the previous snapshot in place.
type Refresher struct {
	resolver *Resolver
	interval time.Duration
	logger   *slog.Logger

	kick    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started atomic.Bool
	stopped atomic.Bool
}

// NewRefresher creates a Refresher driving the resolver at the given
// interval. A non-positive interval falls back to the 30 minute default.
func NewRefresher(r *Resolver, interval time.Duration, opts ...RefresherOption) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	f := &Refresher{
		resolver: r,
		interval: interval,
		logger:   logging.Nop(),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefreshLogger sets the refresher's logger.
func WithRefreshLogger(l *slog.Logger) RefresherOption {
	return func(f *Refresher) { f.logger = l }
}

// Start performs the initial rule load, retrying with exponential backoff
// while the source is unreachable, then launches the periodic refresh loop.
// A source that stays unreachable is not fatal: the resolver keeps its
// empty snapshot (auditing disabled) until a later tick succeeds.
func (f *Refresher) Start(ctx context.Context) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), initialLoadRetries), ctx)
	err := backoff.Retry(func() error { return f.resolver.Load(ctx) }, policy)
	if err != nil {
		f.logger.Error("audit: initial rule load failed, starting with empty snapshot", "error", err)
	}

	f.started.Store(true)
	go f.run(ctx)
}

// run is the refresh loop. It wakes on the interval tick or on Kick.
func (f *Refresher) run(ctx context.Context) {
	defer close(f.done)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-f.kick:
		}

		if err := f.resolver.Load(ctx); err != nil {
			f.logger.Warn("audit: rule refresh failed, keeping previous snapshot", "error", err)
		}
	}
}

// Kick requests an immediate refresh, coalescing with any already pending.
// Used by rule sources that can detect changes (e.g. a file watcher) to
// apply edits before the next tick.
func (f *Refresher) Kick() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Stop shuts down the refresh loop and waits for it to exit. Calling Stop
// again, or without a prior Start, is a no-op.
func (f *Refresher) Stop() {
	if !f.started.Load() || f.stopped.Swap(true) {
		return
	}
	close(f.stop)
	<-f.done
}
