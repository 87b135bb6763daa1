package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/civil360/civil360-api/internal/core/domain"
	"github.com/civil360/civil360-api/internal/core/ports"
	"github.com/civil360/civil360-api/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	deliverTimeout = 10 * time.Second
)

// Dispatcher fans notifications out to a fixed set of workers, hashing on the
// recipient so one user's feed is written in enqueue order. Enqueue never
// blocks the request path: when a worker's channel is full the notification is
// dropped and counted.
type Dispatcher struct {
	workers []chan domain.Notification
	service ports.NotificationService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.NotificationService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Notification, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Notification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain their channel and stop
// when ctx is cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker started by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands n to the worker responsible for its recipient.
func (d *Dispatcher) Enqueue(n domain.Notification) {
	idx := d.shardIndex(n.ShardKey())
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsDroppedTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().
			Str("recipient_id", n.RecipientID).
			Str("recipient_role", string(n.RecipientRole)).
			Int("worker_id", idx).
			Msg("notification queue full, dropping")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Notification) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case n := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(context.WithoutCancel(ctx), id, n)
		}
	}
}

// drain delivers whatever is still buffered after shutdown was requested.
func (d *Dispatcher) drain(id int, ch <-chan domain.Notification) {
	for {
		select {
		case n := <-ch:
			d.deliver(context.Background(), id, n)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, n domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	if err := d.service.Deliver(ctx, n); err != nil {
		metrics.NotificationsDroppedTotal.WithLabelValues("store_error").Inc()
		d.log.Error().Err(err).
			Str("recipient_id", n.RecipientID).
			Str("recipient_role", string(n.RecipientRole)).
			Int("worker_id", id).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationsDeliveredTotal.Inc()
}
