package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"location-tracking-core/internal/domain/location"
	"location-tracking-core/internal/infrastructure/storage"
	"location-tracking-core/internal/plan"
	"location-tracking-core/internal/resilience"
)

// Invalidator drops derived per-device state after the device's durable
// track changes. The analytics cache is the one implementation in the
// service; tests substitute their own.
type Invalidator interface {
	Invalidate(ctx context.Context, deviceID string)
}

// HistoryWriter batches track appends per device. Concurrent appends for
// one device serialize on that device's queue; different devices never
// contend. A queue flushes when it reaches the tenant tier's batch size or
// on the shared ticker, whichever comes first.
type HistoryWriter struct {
	locations     storage.LocationRepository
	invalidator   Invalidator
	flushInterval time.Duration
	retryConfig   resilience.RetryConfig

	mu     sync.Mutex // guards the queue map, not the queues
	queues map[string]*deviceQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type deviceQueue struct {
	mu         sync.Mutex
	samples    []*location.Sample
	batchSize  int
	maxHistory int
}

func NewHistoryWriter(locations storage.LocationRepository, invalidator Invalidator, flushInterval time.Duration) *HistoryWriter {
	ctx, cancel := context.WithCancel(context.Background())

	return &HistoryWriter{
		locations:     locations,
		invalidator:   invalidator,
		flushInterval: flushInterval,
		retryConfig:   resilience.DefaultRetryConfig(),
		queues:        make(map[string]*deviceQueue),
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (w *HistoryWriter) Start() {
	w.wg.Add(1)
	go w.run()
	log.Println("History writer started")
}

func (w *HistoryWriter) Stop() {
	w.cancel()
	w.wg.Wait()
	w.flushAll(context.Background())
	log.Println("History writer stopped")
}

// Add enqueues a sample and returns the device's queue depth so upstream
// clients can throttle. The tier sets the flush threshold and the history
// ceiling for this device. When the append fills the batch, Add flushes
// synchronously and returns the store error to the caller; the samples stay
// queued for the ticker retry either way.
func (w *HistoryWriter) Add(ctx context.Context, s *location.Sample, tier plan.Tier) (int, error) {
	q := w.queue(s.DeviceID)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.samples = append(q.samples, s)
	q.batchSize = tier.BatchSize
	q.maxHistory = tier.MaxHistory

	var err error
	if len(q.samples) >= q.batchSize {
		err = w.flushLocked(ctx, s.DeviceID, q)
	}

	return len(q.samples), err
}

// QueueSize reports the pending sample count for a device.
func (w *HistoryWriter) QueueSize(deviceID string) int {
	w.mu.Lock()
	q, ok := w.queues[deviceID]
	w.mu.Unlock()
	if !ok {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}

func (w *HistoryWriter) queue(deviceID string) *deviceQueue {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.queues[deviceID]
	if !ok {
		q = &deviceQueue{batchSize: plan.Resolve(plan.Free).BatchSize}
		w.queues[deviceID] = q
	}
	return q
}

func (w *HistoryWriter) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flushAll(w.ctx)
		}
	}
}

func (w *HistoryWriter) flushAll(ctx context.Context) {
	w.mu.Lock()
	devices := make([]string, 0, len(w.queues))
	for deviceID := range w.queues {
		devices = append(devices, deviceID)
	}
	w.mu.Unlock()

	for _, deviceID := range devices {
		q := w.queue(deviceID)
		q.mu.Lock()
		if len(q.samples) > 0 {
			w.flushLocked(ctx, deviceID, q)
		}
		q.mu.Unlock()
	}
}

// flushLocked writes the queue out. On failure the samples stay queued for
// the next tick; a full queue is backpressure, not data loss.
func (w *HistoryWriter) flushLocked(ctx context.Context, deviceID string, q *deviceQueue) error {
	batch := make([]*location.Sample, len(q.samples))
	copy(batch, q.samples)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	start := time.Now()
	err := resilience.Do(flushCtx, w.retryConfig, func() error {
		return w.locations.BatchInsert(flushCtx, batch)
	})
	if err != nil {
		log.Printf("Failed to flush %d samples for device %s, keeping them queued: %v", len(batch), deviceID, err)
		return err
	}

	q.samples = q.samples[:0]
	log.Printf("Flushed %d samples for device %s in %v", len(batch), deviceID, time.Since(start))

	if w.invalidator != nil {
		w.invalidator.Invalidate(flushCtx, deviceID)
	}

	w.evict(flushCtx, deviceID, q.maxHistory, q.batchSize)
	return nil
}

// evict runs whenever the retained track exceeds the tier ceiling and trims
// it a batch-size margin below the ceiling, so consecutive flushes do not
// each pay for a delete. The retained count never exceeds maxHistory.
func (w *HistoryWriter) evict(ctx context.Context, deviceID string, maxHistory, margin int) {
	if maxHistory <= 0 {
		return
	}

	count, err := w.locations.Count(ctx, deviceID)
	if err != nil {
		log.Printf("Failed to count history for device %s: %v", deviceID, err)
		return
	}

	if count <= maxHistory {
		return
	}

	keep := maxHistory - margin
	if keep <= 0 {
		keep = maxHistory
	}

	if err := w.locations.Evict(ctx, deviceID, keep); err != nil {
		log.Printf("Failed to evict history for device %s: %v", deviceID, err)
	}
}
