package pedidos

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// NATSSnapshotPubSubber fans snapshots out across replicas. Each back-office
// instance publishes its poll results; all instances push them to their own
// live subscribers.
type NATSSnapshotPubSubber struct {
	nc      *nats.Conn
	subject string
}

var _ SnapshotPubSubber = (*NATSSnapshotPubSubber)(nil)

func NewNATSSnapshotPubSubber(nc *nats.Conn, subject string) *NATSSnapshotPubSubber {
	return &NATSSnapshotPubSubber{nc: nc, subject: subject}
}

// PubSnapshot implements SnapshotPublisher.
func (n *NATSSnapshotPubSubber) PubSnapshot(ctx context.Context, snap Snapshot) error {
	propagator := otel.GetTextMapPropagator()
	msg := &nats.Msg{
		Subject: n.subject,
		Header:  nats.Header{},
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(msg.Header))

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	msg.Data = data
	return n.nc.PublishMsg(msg)
}

// SubSnapshots implements SnapshotPubSubber.
func (n *NATSSnapshotPubSubber) SubSnapshots(ctx context.Context) (<-chan Snapshot, func(), error) {
	ctx, span := tracer.Start(ctx, "NATSSnapshotPubSubber.SubSnapshots")
	defer span.End()

	propagator := otel.GetTextMapPropagator()

	ch := make(chan Snapshot, 8)
	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		msgCtx := propagator.Extract(ctx, propagation.HeaderCarrier(msg.Header))

		var snap Snapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			slog.ErrorContext(msgCtx, "failed to unmarshal snapshot from NATS message", slog.Any("err", err))
			return
		}

		select {
		case ch <- snap:
		default:
			slog.WarnContext(msgCtx, "subscriber lagging, dropping snapshot", slog.String("subject", n.subject))
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to NATS subject",
			slog.String("subject", n.subject), slog.Any("err", err))
		span.SetStatus(codes.Error, "failed to subscribe to NATS subject")
		span.RecordError(err)
		return nil, nil, err
	}

	unsub := func() {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn("failed to unsubscribe from NATS subject", slog.Any("err", err))
		}
	}
	return ch, unsub, nil
}
