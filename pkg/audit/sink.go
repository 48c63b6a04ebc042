package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/logging"
	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/metrics"
)

// closeDrainTimeout bounds how long Close waits for in-flight persistence
// work after the queue has drained.
const closeDrainTimeout = 10 * time.Second

// Sink persists completed audit records off the request path. Submit
// enqueues onto a bounded queue and returns; a dispatcher goroutine feeds a
// fixed-size worker pool that calls the persistence collaborator.
//
// Persistence is fire-and-forget: a failed store is logged, counted, and
// discarded with no retry and no back-pressure signal to the submitter. A record
// that made it into the queue is persisted to completion even if the
// originating request has since been cancelled.
type Sink struct {
	store    Store
	identity IdentityProvider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	workerCount int
	queueCap    int

	queue  chan *Record
	pool   *ants.Pool
	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithSinkLogger sets the sink's logger.
func WithSinkLogger(l *slog.Logger) SinkOption {
	return func(s *Sink) { s.logger = l }
}

// WithSinkMetrics sets the sink's metrics collectors.
func WithSinkMetrics(m *metrics.Metrics) SinkOption {
	return func(s *Sink) { s.metrics = m }
}

// WithIdentity sets the identity collaborator consulted at record-build
// time. Default: AnonymousIdentity.
func WithIdentity(p IdentityProvider) SinkOption {
	return func(s *Sink) { s.identity = p }
}

// WithWorkers sizes the persistence worker pool. Default: one per CPU.
func WithWorkers(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize bounds the submission queue. Default: 1024.
func WithQueueSize(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.queueCap = n
		}
	}
}

// NewSink creates a Sink persisting through store.
func NewSink(store Store, opts ...SinkOption) (*Sink, error) {
	s := &Sink{
		store:       store,
		identity:    AnonymousIdentity{},
		logger:      logging.Nop(),
		metrics:     metrics.Nop(),
		workerCount: DefaultWorkers(),
		queueCap:    DefaultQueueSize,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(s.workerCount)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	s.queue = make(chan *Record, s.queueCap)

	go s.dispatch()
	return s, nil
}

// Submit stamps the record with the caller's identity and enqueues it for
// asynchronous persistence. It returns as soon as the record is queued;
// when the bounded queue is full the caller waits for a slot (queuing, not
// rejection). Submitting to a closed sink drops the record.
func (s *Sink) Submit(ctx context.Context, rec *Record) {
	if rec == nil {
		return
	}
	if s.closed.Load() {
		s.drop(rec, metrics.DropSinkClosed, nil)
		return
	}

	// Identity is read now, while the request context is still live; the
	// worker later runs detached from the request.
	rec.Principal = s.identity.CurrentPrincipal(ctx)
	rec.Roles = s.identity.CurrentRoles(ctx)

	s.metrics.RecordsEmitted.Inc()
	select {
	case s.queue <- rec:
	case <-s.stop:
		s.drop(rec, metrics.DropSinkClosed, nil)
	}
}

// dispatch moves queued records onto the worker pool. Pool exhaustion
// blocks the dispatcher, so excess load queues instead of spawning
// unbounded goroutines.
func (s *Sink) dispatch() {
	defer close(s.done)
	for {
		select {
		case rec := <-s.queue:
			s.submitToPool(rec)
		case <-s.stop:
			// Drain whatever made it into the queue before shutdown.
			for {
				select {
				case rec := <-s.queue:
					s.submitToPool(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) submitToPool(rec *Record) {
	if err := s.pool.Submit(func() { s.persist(rec) }); err != nil {
		s.drop(rec, metrics.DropSinkClosed, err)
	}
}

// persist runs on a pool worker. Failures are logged and discarded; nothing
// propagates back to the request that produced the record.
func (s *Sink) persist(rec *Record) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("audit: persistence panicked, record dropped",
				"correlationId", rec.CorrelationID, "panic", p)
			s.metrics.RecordsDropped.WithLabelValues(metrics.DropStoreError).Inc()
		}
	}()

	start := time.Now()
	err := s.store.Store(context.Background(), rec)
	s.metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.drop(rec, metrics.DropStoreError, err)
		return
	}
	s.metrics.RecordsPersisted.Inc()
}

func (s *Sink) drop(rec *Record, reason string, err error) {
	s.metrics.RecordsDropped.WithLabelValues(reason).Inc()
	s.logger.Error("audit: record dropped",
		"reason", reason, "correlationId", rec.CorrelationID,
		"method", rec.Method, "path", rec.Path, "error", err)
}

// Close stops accepting records, drains the queue, and waits (bounded) for
// in-flight persistence to finish. The store itself is not closed; its
// owner does that after the sink is down.
func (s *Sink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stop)
	<-s.done
	s.pool.ReleaseTimeout(closeDrainTimeout) //nolint:errcheck // best-effort drain
	return nil
}
