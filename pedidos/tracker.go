package pedidos

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pomodoroso/pizzanova/despensa"
)

// OrderGetter is the slice of Client that tracking needs.
type OrderGetter interface {
	Get(ctx context.Context, id string) (Order, error)
}

// Tracker polls one order and keeps the latest snapshot. The initial fetch
// decides between a tracking view and a not-found view; once established,
// poll failures keep the last-known-good state and retry silently.
type Tracker struct {
	client      OrderGetter
	orderID     string
	interval    time.Duration
	backoffCeil time.Duration
	onUpdate    func(Order)

	mu      sync.Mutex
	current Order
	loaded  bool
	seq     uint64
	applied uint64
}

// NewTracker builds a tracker for one order id. onUpdate fires after every
// applied snapshot; pass nil if nobody listens.
func NewTracker(client OrderGetter, orderID string, cfg despensa.PollSettings, onUpdate func(Order)) *Tracker {
	return &Tracker{
		client:      client,
		orderID:     orderID,
		interval:    time.Duration(cfg.IntervalInSec) * time.Second,
		backoffCeil: time.Duration(cfg.BackoffCeilInSec) * time.Second,
		onUpdate:    onUpdate,
	}
}

// Load performs the initial fetch. Its error is the caller's cue for an
// error or not-found view; later poll errors never surface this way.
func (t *Tracker) Load(ctx context.Context) (Order, error) {
	order, err := t.fetch(ctx)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// Run polls until the context is done. Failures back off exponentially up to
// the ceiling; a success resets the cadence to the configured interval.
func (t *Tracker) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.interval
	b.MaxInterval = t.backoffCeil

	delay := t.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if _, err := t.fetch(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "order poll failed, keeping last snapshot",
				slog.String("order_id", t.orderID),
				slog.Any("err", err),
			)
			delay = b.NextBackOff()
			continue
		}
		b.Reset()
		delay = t.interval
	}
}

// Snapshot returns the last applied order state.
func (t *Tracker) Snapshot() (Order, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.loaded
}

func (t *Tracker) fetch(ctx context.Context) (Order, error) {
	t.mu.Lock()
	t.seq++
	seq := t.seq
	t.mu.Unlock()

	order, err := t.client.Get(ctx, t.orderID)
	if err != nil {
		return Order{}, err
	}

	if t.apply(seq, order) && t.onUpdate != nil {
		t.onUpdate(order)
	}
	return order, nil
}

// apply installs a snapshot unless a newer fetch already did.
func (t *Tracker) apply(seq uint64, order Order) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq <= t.applied {
		return false
	}
	t.applied = seq
	t.current = order
	t.loaded = true
	return true
}
