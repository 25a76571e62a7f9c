// Package ratelimit implements the global outbound request scheduler. Every
// upstream call is funneled through one FIFO queue with a single drain
// goroutine, which enforces a minimum interval between dispatch starts. A
// per-call delay would not serialize correctly under concurrent submission;
// the single consumer is what makes the spacing guarantee hold.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/logging"
)

// Prometheus metrics for the scheduler.
var (
	schedulerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_queue_depth",
		Help: "Number of operations waiting in the scheduler queue",
	})

	schedulerDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_dispatched_total",
		Help: "Total operations dispatched by the scheduler",
	})

	schedulerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_wait_seconds",
		Help:    "Time operations spent queued before dispatch",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})
)

// DefaultRequestsPerMinute is the default outbound request budget. The stats
// API throttles aggressively above this.
const DefaultRequestsPerMinute = 30

type job struct {
	ctx      context.Context
	fn       func(ctx context.Context) error
	enqueued time.Time
	done     chan error
}

// Scheduler serializes outbound operations through one drain goroutine with a
// minimum inter-dispatch interval. Safe for concurrent Do callers.
type Scheduler struct {
	interval time.Duration
	queue    chan job
	drained  chan struct{}
	logger   zerolog.Logger
	once     sync.Once
}

// New creates a scheduler allowing requestsPerMinute dispatches per minute
// and starts its drain goroutine.
func New(requestsPerMinute int) *Scheduler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	s := &Scheduler{
		interval: time.Minute / time.Duration(requestsPerMinute),
		queue:    make(chan job, 256),
		drained:  make(chan struct{}),
		logger:   logging.NewLogger("scheduler"),
	}

	go s.drain()
	return s
}

// Interval returns the enforced minimum time between dispatch starts.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Do submits fn and blocks until it has run, the queue rejects it, or ctx is
// cancelled. Submission order is dispatch order.
func (s *Scheduler) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	j := job{
		ctx:      ctx,
		fn:       fn,
		enqueued: time.Now(),
		done:     make(chan error, 1),
	}

	select {
	case s.queue <- j:
		schedulerQueueDepth.Set(float64(len(s.queue)))
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		// The drain goroutine notices the cancelled context and skips the
		// job; the buffered done channel keeps it from blocking either way.
		return ctx.Err()
	}
}

// Close stops the drain goroutine after the queue empties and waits for it to
// exit. No Do call may be in flight or follow Close.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.queue)
	})
	<-s.drained
}

func (s *Scheduler) drain() {
	defer close(s.drained)

	var lastDispatch time.Time

	for j := range s.queue {
		schedulerQueueDepth.Set(float64(len(s.queue)))

		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}

		if !lastDispatch.IsZero() {
			if wait := s.interval - time.Since(lastDispatch); wait > 0 {
				select {
				case <-time.After(wait):
				case <-j.ctx.Done():
					j.done <- j.ctx.Err()
					continue
				}
			}
		}

		lastDispatch = time.Now()
		schedulerDispatchedTotal.Inc()
		schedulerWaitSeconds.Observe(lastDispatch.Sub(j.enqueued).Seconds())

		j.done <- j.fn(j.ctx)
	}

	s.logger.Debug().Msg("Scheduler drained")
}
