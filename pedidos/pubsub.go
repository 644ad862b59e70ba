package pedidos

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is one published copy of the board state.
type Snapshot struct {
	Orders   []Order   `json:"orders"`
	SyncedAt time.Time `json:"synced_at"`
}

type SnapshotPublisher interface {
	PubSnapshot(ctx context.Context, snap Snapshot) error
}

// SnapshotPubSubber fans board snapshots out to live subscribers (SSE,
// websockets). It distributes poll results only; syncing with the backend
// stays a polling concern.
type SnapshotPubSubber interface {
	SnapshotPublisher
	// SubSnapshots returns a receive channel and an unsubscribe func.
	SubSnapshots(ctx context.Context) (<-chan Snapshot, func(), error)
}

// GoChannelSnapshotPubSubber is the in-process implementation, for a single
// replica.
type GoChannelSnapshotPubSubber struct {
	mu          sync.Mutex
	subscribers map[uint64]chan Snapshot
	nextID      uint64
}

var _ SnapshotPubSubber = (*GoChannelSnapshotPubSubber)(nil)

func NewGoChannelSnapshotPubSubber() *GoChannelSnapshotPubSubber {
	return &GoChannelSnapshotPubSubber{
		subscribers: make(map[uint64]chan Snapshot),
	}
}

// PubSnapshot implements SnapshotPublisher. Slow subscribers drop snapshots
// rather than stall the publisher; the next poll replaces the list anyway.
func (g *GoChannelSnapshotPubSubber) PubSnapshot(ctx context.Context, snap Snapshot) error {
	ctx, span := tracer.Start(ctx, "GoChannelSnapshotPubSubber.PubSnapshot")
	defer span.End()

	g.mu.Lock()
	defer g.mu.Unlock()
	for id, ch := range g.subscribers {
		select {
		case ch <- snap:
		default:
			slog.WarnContext(ctx, "subscriber lagging, dropping snapshot", slog.Uint64("subscriber", id))
		}
	}
	return nil
}

// SubSnapshots implements SnapshotPubSubber.
func (g *GoChannelSnapshotPubSubber) SubSnapshots(ctx context.Context) (<-chan Snapshot, func(), error) {
	_, span := tracer.Start(ctx, "GoChannelSnapshotPubSubber.SubSnapshots")
	defer span.End()

	ch := make(chan Snapshot, 8)
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.subscribers[id] = ch
	g.mu.Unlock()

	unsub := func() {
		g.mu.Lock()
		delete(g.subscribers, id)
		g.mu.Unlock()
	}
	return ch, unsub, nil
}
