package pedidos

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pomodoroso/pizzanova/despensa"
)

// BoardClient is the slice of Client that the admin board needs.
type BoardClient interface {
	ListActive(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Board mirrors the backend's active-order list for the admin view. Every
// sync replaces the list wholesale; last successful poll wins. Status edits
// apply optimistically and a failed confirmation triggers a compensating
// reload of the authoritative list.
type Board struct {
	client      BoardClient
	interval    time.Duration
	backoffCeil time.Duration
	publisher   SnapshotPublisher

	mu       sync.Mutex
	orders   []Order
	loaded   bool
	syncedAt time.Time
	seq      uint64
	applied  uint64
}

// NewBoard builds the admin order board. publisher may be nil when no live
// subscribers exist.
func NewBoard(client BoardClient, cfg despensa.PollSettings, publisher SnapshotPublisher) *Board {
	return &Board{
		client:      client,
		interval:    time.Duration(cfg.IntervalInSec) * time.Second,
		backoffCeil: time.Duration(cfg.BackoffCeilInSec) * time.Second,
		publisher:   publisher,
	}
}

// Run syncs immediately, then polls until the context is done.
func (b *Board) Run(ctx context.Context) {
	if err := b.Reload(ctx); err != nil {
		slog.WarnContext(ctx, "initial order sync failed", slog.Any("err", err))
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.interval
	bo.MaxInterval = b.backoffCeil

	delay := b.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := b.Reload(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "order list poll failed, keeping last list", slog.Any("err", err))
			delay = bo.NextBackOff()
			continue
		}
		bo.Reset()
		delay = b.interval
	}
}

// Reload fetches the authoritative list and replaces local state, unless a
// newer fetch has already been applied.
func (b *Board) Reload(ctx context.Context) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	orders, err := b.client.ListActive(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	b.mu.Lock()
	if seq <= b.applied {
		b.mu.Unlock()
		return nil
	}
	b.applied = seq
	b.orders = orders
	b.loaded = true
	b.syncedAt = now
	b.mu.Unlock()

	b.publish(ctx)
	return nil
}

// Orders returns a copy of the current list.
func (b *Board) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}

func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// SyncedAt is the wall time of the last successful sync.
func (b *Board) SyncedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.syncedAt
}

// Counts tallies orders per status for the board header tabs.
func (b *Board) Counts() map[Status]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[Status]int, len(AllStatuses))
	for _, o := range b.orders {
		counts[o.Status]++
	}
	return counts
}

func (b *Board) Get(id string) (Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// SetStatus moves an order to a new status. The transition table is checked
// before anything is touched; then the edit lands locally first and is
// confirmed against the backend. A failed confirmation reloads the
// authoritative list, discarding the optimistic edit.
func (b *Board) SetStatus(ctx context.Context, id string, to Status) (Order, error) {
	ctx, span := tracer.Start(ctx, "Board.SetStatus")
	defer span.End()

	b.mu.Lock()
	idx := -1
	for i := range b.orders {
		if b.orders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return Order{}, ErrNotFound
	}
	if err := CheckTransition(b.orders[idx].Status, to); err != nil {
		b.mu.Unlock()
		return Order{}, err
	}

	// Optimistic apply.
	b.orders[idx].Status = to
	b.orders[idx].UpdatedAt = time.Now()
	updated := b.orders[idx]
	b.mu.Unlock()

	b.publish(ctx)

	if err := b.client.UpdateStatus(ctx, id, to); err != nil {
		if reloadErr := b.Reload(ctx); reloadErr != nil {
			slog.ErrorContext(ctx, "compensating reload failed", slog.Any("err", reloadErr))
		}
		return Order{}, fmt.Errorf("confirm status change: %w", err)
	}
	return updated, nil
}

func (b *Board) publish(ctx context.Context) {
	if b.publisher == nil {
		return
	}
	b.mu.Lock()
	snap := Snapshot{Orders: make([]Order, len(b.orders)), SyncedAt: b.syncedAt}
	copy(snap.Orders, b.orders)
	b.mu.Unlock()

	if err := b.publisher.PubSnapshot(ctx, snap); err != nil {
		slog.WarnContext(ctx, "failed to publish order snapshot", slog.Any("err", err))
	}
}
