package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/resilience"
)

// Job is one enriched sample handed to the side-effect pipeline after the
// track append was accepted.
type Job struct {
	OwnerID string
	Sample  *location.Sample
	Tier    plan.Tier
}

// Handler is a fan-out consumer (geofence evaluation, group watchdog).
// Handle failures never propagate to the ingestion caller.
type Handler interface {
	Name() string
	Handle(ctx context.Context, job Job) error
}

// Dispatcher fans accepted samples out to its handlers on a worker pool.
// Each handler runs behind its own circuit breaker so one failing
// dependency cannot stall the others.
type Dispatcher struct {
	handlers    []Handler
	breakers    map[string]*resilience.CircuitBreaker
	jobs        chan Job
	workers     int
	retryConfig resilience.RetryConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, handlers ...Handler) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	breakers := make(map[string]*resilience.CircuitBreaker, len(handlers))
	for _, h := range handlers {
		breakers[h.Name()] = resilience.NewBreaker(resilience.DefaultBreakerConfig())
	}

	return &Dispatcher{
		handlers:    handlers,
		breakers:    breakers,
		jobs:        make(chan Job, queueSize),
		workers:     workers,
		retryConfig: resilience.DefaultRetryConfig(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	log.Printf("Fan-out dispatcher started with %d workers", d.workers)
}

func (d *Dispatcher) Stop() {
	d.cancel()
	close(d.jobs)
	d.wg.Wait()
	log.Println("Fan-out dispatcher stopped")
}

// Dispatch enqueues a job without blocking the caller. Side-effect work is
// best effort; under sustained overload jobs are dropped, not queued
// unbounded.
func (d *Dispatcher) Dispatch(job Job) {
	select {
	case d.jobs <- job:
	default:
		log.Printf("Fan-out queue full, dropping job for device %s", job.Sample.DeviceID)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			d.process(job)
		}
	}
}

func (d *Dispatcher) process(job Job) {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	if job.Tier.ParallelProcessing && len(d.handlers) > 1 {
		var wg sync.WaitGroup
		for _, h := range d.handlers {
			wg.Add(1)
			go func(h Handler) {
				defer wg.Done()
				d.runHandler(ctx, h, job)
			}(h)
		}
		wg.Wait()
		return
	}

	for _, h := range d.handlers {
		d.runHandler(ctx, h, job)
	}
}

func (d *Dispatcher) runHandler(ctx context.Context, h Handler, job Job) {
	breaker := d.breakers[h.Name()]

	err := breaker.Execute(ctx, func() error {
		return resilience.Do(ctx, d.retryConfig, func() error {
			return h.Handle(ctx, job)
		})
	})
	if err != nil {
		if breaker.IsOpen() {
			log.Printf("Circuit breaker open for %s, skipping device %s: %v", h.Name(), job.Sample.DeviceID, err)
		} else {
			log.Printf("Handler %s failed for device %s after retries: %v", h.Name(), job.Sample.DeviceID, err)
		}
	}
}
