package pedidos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusWireRoundTrip(t *testing.T) {
	// Every status must survive the trip to the backend's vocabulary and back.
	for _, s := range AllStatuses {
		wire := s.Wire()
		require.NotEmpty(t, wire, string(s))

		back, err := StatusFromWire(wire)
		assert.NoError(t, err, string(s))
		assert.Equal(t, s, back)
	}
}

func TestStatusFromWireRejectsUnknown(t *testing.T) {
	_, err := StatusFromWire("EN_CAMINO")
	assert.Error(t, err)

	// Lowercase is not the wire vocabulary
	_, err = StatusFromWire("pendiente")
	assert.Error(t, err)
}

func TestStatusInfoCoversAllStatuses(t *testing.T) {
	for _, s := range AllStatuses {
		info := s.Info()
		assert.NotEmpty(t, info.Label, string(s))
		assert.NotEmpty(t, info.Color, string(s))
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{name: "pending confirms", from: StatusPending, to: StatusConfirmed, allowed: true},
		{name: "pending cancels", from: StatusPending, to: StatusCancelled, allowed: true},
		{name: "pending cannot skip to ready", from: StatusPending, to: StatusReady, allowed: false},
		{name: "confirmed starts preparing", from: StatusConfirmed, to: StatusPreparing, allowed: true},
		{name: "preparing finishes", from: StatusPreparing, to: StatusReady, allowed: true},
		{name: "ready delivers", from: StatusReady, to: StatusDelivered, allowed: true},
		{name: "no going backwards", from: StatusPreparing, to: StatusConfirmed, allowed: false},
		{name: "delivered is terminal", from: StatusDelivered, to: StatusCancelled, allowed: false},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusPending, allowed: false},
		{name: "self transition is not allowed", from: StatusPending, to: StatusPending, allowed: false},
	}

	for _, tt := range tests {
		// Act
		err := CheckTransition(tt.from, tt.to)

		// Assert
		if tt.allowed {
			assert.NoError(t, err, tt.name)
		} else {
			var invalid *InvalidTransitionError
			assert.ErrorAs(t, err, &invalid, tt.name)
			assert.Equal(t, tt.from, invalid.From)
			assert.Equal(t, tt.to, invalid.To)
		}
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("preparing")
	assert.NoError(t, err)
	assert.Equal(t, StatusPreparing, s)

	_, err = ParseStatus("PREPARANDO")
	assert.Error(t, err)
}
