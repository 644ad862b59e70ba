package pedidos

import "fmt"

// Status is an order's lifecycle state as the app displays it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// AllStatuses in lifecycle order.
var AllStatuses = []Status{
	StatusPending, StatusConfirmed, StatusPreparing,
	StatusReady, StatusDelivered, StatusCancelled,
}

type StatusInfo struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var statusInfo = map[Status]StatusInfo{
	StatusPending:   {Label: "Pendiente", Color: "yellow"},
	StatusConfirmed: {Label: "Confirmado", Color: "blue"},
	StatusPreparing: {Label: "Preparando", Color: "orange"},
	StatusReady:     {Label: "Listo", Color: "green"},
	StatusDelivered: {Label: "Entregado", Color: "gray"},
	StatusCancelled: {Label: "Cancelado", Color: "red"},
}

// Info returns display metadata. Total over the enum.
func (s Status) Info() StatusInfo {
	return statusInfo[s]
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusPreparing,
		StatusReady, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// The backend speaks uppercase Spanish statuses. Both directions must stay
// bijective; an unmapped wire value is an error, never a silent default.
var toWire = map[Status]string{
	StatusPending:   "PENDIENTE",
	StatusConfirmed: "CONFIRMADO",
	StatusPreparing: "PREPARANDO",
	StatusReady:     "LISTO",
	StatusDelivered: "ENTREGADO",
	StatusCancelled: "CANCELADO",
}

var fromWire = map[string]Status{
	"PENDIENTE":  StatusPending,
	"CONFIRMADO": StatusConfirmed,
	"PREPARANDO": StatusPreparing,
	"LISTO":      StatusReady,
	"ENTREGADO":  StatusDelivered,
	"CANCELADO":  StatusCancelled,
}

func (s Status) Wire() string {
	return toWire[s]
}

func StatusFromWire(wire string) (Status, error) {
	s, ok := fromWire[wire]
	if !ok {
		return "", fmt.Errorf("unknown wire status %q", wire)
	}
	return s, nil
}

// Terminal states admit no exits; every other state advances one step or
// cancels.
var allowedNext = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: {},
	StatusCancelled: {},
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// CheckTransition validates an admin status change against the transition
// table.
func CheckTransition(from, to Status) error {
	for _, next := range allowedNext[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}
