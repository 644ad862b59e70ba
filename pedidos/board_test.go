package pedidos

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomodoroso/pizzanova/despensa"
)

type fakeBoardClient struct {
	active      []Order
	listErr     error
	updateErr   error
	listCalls   int
	updateCalls int
}

func (f *fakeBoardClient) ListActive(context.Context) ([]Order, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]Order, len(f.active))
	copy(out, f.active)
	return out, nil
}

func (f *fakeBoardClient) UpdateStatus(_ context.Context, id string, status Status) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.active {
		if f.active[i].ID == id {
			f.active[i].Status = status
		}
	}
	return nil
}

var boardCfg = despensa.PollSettings{IntervalInSec: 15, BackoffCeilInSec: 120}

func TestBoardReload(t *testing.T) {
	// Arrange
	client := &fakeBoardClient{active: []Order{
		{ID: "ped-1", Status: StatusPending},
		{ID: "ped-2", Status: StatusPreparing},
	}}
	board := NewBoard(client, boardCfg, nil)

	// Act
	err := board.Reload(context.Background())

	// Assert
	require.NoError(t, err)
	assert.True(t, board.Loaded())
	assert.Len(t, board.Orders(), 2)
	assert.False(t, board.SyncedAt().IsZero())

	counts := board.Counts()
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusPreparing])
}

func TestBoardReloadFailureKeepsLastList(t *testing.T) {
	client := &fakeBoardClient{active: []Order{{ID: "ped-1", Status: StatusPending}}}
	board := NewBoard(client, boardCfg, nil)
	require.NoError(t, board.Reload(context.Background()))

	client.listErr = errors.New("timeout")
	err := board.Reload(context.Background())

	assert.Error(t, err)
	assert.Len(t, board.Orders(), 1, "stale list beats no list")
}

func TestBoardSetStatusAppliesOptimistically(t *testing.T) {
	// Arrange
	client := &fakeBoardClient{active: []Order{{ID: "ped-1", Status: StatusPending}}}
	board := NewBoard(client, boardCfg, nil)
	require.NoError(t, board.Reload(context.Background()))

	// Act
	updated, err := board.SetStatus(context.Background(), "ped-1", StatusConfirmed)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.False(t, updated.UpdatedAt.IsZero())
	assert.Equal(t, 1, client.updateCalls)

	got, ok := board.Get("ped-1")
	require.True(t, ok)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestBoardSetStatusRejectsIllegalTransitionBeforeAnyApply(t *testing.T) {
	// Arrange
	client := &fakeBoardClient{active: []Order{{ID: "ped-1", Status: StatusPending}}}
	board := NewBoard(client, boardCfg, nil)
	require.NoError(t, board.Reload(context.Background()))

	// Act: pending cannot jump straight to delivered
	_, err := board.SetStatus(context.Background(), "ped-1", StatusDelivered)

	// Assert: nothing moved, nothing was sent
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 0, client.updateCalls)

	got, _ := board.Get("ped-1")
	assert.Equal(t, StatusPending, got.Status)
}

func TestBoardSetStatusUnknownOrder(t *testing.T) {
	board := NewBoard(&fakeBoardClient{}, boardCfg, nil)
	require.NoError(t, board.Reload(context.Background()))

	_, err := board.SetStatus(context.Background(), "ghost", StatusConfirmed)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBoardSetStatusFailureReloadsAuthoritativeList(t *testing.T) {
	// Arrange
	client := &fakeBoardClient{active: []Order{{ID: "ped-1", Status: StatusPending}}}
	board := NewBoard(client, boardCfg, nil)
	require.NoError(t, board.Reload(context.Background()))
	client.updateErr = errors.New("backend rejected")

	// Act
	_, err := board.SetStatus(context.Background(), "ped-1", StatusConfirmed)

	// Assert: the optimistic edit is rolled back by the compensating reload
	assert.Error(t, err)
	got, ok := board.Get("ped-1")
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)
	assert.GreaterOrEqual(t, client.listCalls, 2)
}

func TestBoardPublishesSnapshots(t *testing.T) {
	// Arrange
	client := &fakeBoardClient{active: []Order{{ID: "ped-1", Status: StatusPending}}}
	pubsub := NewGoChannelSnapshotPubSubber()
	board := NewBoard(client, boardCfg, pubsub)

	ch, unsub, err := pubsub.SubSnapshots(context.Background())
	require.NoError(t, err)
	defer unsub()

	// Act
	require.NoError(t, board.Reload(context.Background()))

	// Assert
	snap := <-ch
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, "ped-1", snap.Orders[0].ID)
}
