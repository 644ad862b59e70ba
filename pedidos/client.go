package pedidos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pomodoroso/pizzanova/despensa"
)

var tracer = otel.Tracer("pedidos")

// ErrNotFound marks an order id the backend does not know. Terminal; never
// retried.
var ErrNotFound = errors.New("pedidos: order not found")

// RemoteError is a failed backend call that the user may retry.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("order backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the remote order backend. Every call retries transient
// failures with exponential backoff; 4xx responses are permanent.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxTries    uint
	backoffBase time.Duration
	backoffCeil time.Duration
}

func NewClient(cfg despensa.BackendSettings) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutInSec) * time.Second,
		},
		baseURL:     cfg.BaseURL,
		maxTries:    cfg.Retries,
		backoffBase: time.Duration(cfg.BackoffBaseInMs) * time.Millisecond,
		backoffCeil: time.Duration(cfg.BackoffCeilInSec) * time.Second,
	}
}

// Create submits a new order and returns the server-assigned pedido id. The
// idempotency key is stable across retries of one submission attempt.
func (c *Client) Create(ctx context.Context, idempotencyKey string, req CreatePedidoRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.Create")
	defer span.End()
	span.SetAttributes(attribute.Int("order.lines", len(req.Productos)))

	body, err := c.do(ctx, http.MethodPost, "/pedidos", idempotencyKey, req)
	if err != nil {
		return "", err
	}

	var resp createPedidoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if resp.PedidoID == "" {
		return "", &RemoteError{StatusCode: http.StatusOK, Message: "create response missing pedido_id"}
	}
	return resp.PedidoID, nil
}

// Get fetches one order snapshot. Older backend deployments wrap the pedido
// in an envelope; both shapes are accepted.
func (c *Client) Get(ctx context.Context, id string) (Order, error) {
	ctx, span := tracer.Start(ctx, "Client.Get")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/pedidos/"+id+"/estado", "", nil)
	if err != nil {
		return Order{}, err
	}

	var wrapped struct {
		Pedido *WirePedido `json:"pedido"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Pedido != nil {
		return orderFromWire(*wrapped.Pedido)
	}

	var flat WirePedido
	if err := json.Unmarshal(body, &flat); err != nil {
		return Order{}, fmt.Errorf("decode order snapshot: %w", err)
	}
	return orderFromWire(flat)
}

// ListActive fetches every active order.
func (c *Client) ListActive(ctx context.Context) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "Client.ListActive")
	defer span.End()

	body, err := c.do(ctx, http.MethodGet, "/pedidos/activos", "", nil)
	if err != nil {
		return nil, err
	}

	var resp listPedidosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode active orders: %w", err)
	}

	orders := make([]Order, 0, len(resp.Pedidos))
	for _, w := range resp.Pedidos {
		order, err := orderFromWire(w)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateStatus asks the backend to move an order to a new status.
func (c *Client) UpdateStatus(ctx context.Context, id string, status Status) error {
	ctx, span := tracer.Start(ctx, "Client.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("order.status", string(status)))

	_, err := c.do(ctx, http.MethodPut, "/pedidos/"+id+"/estado", "", updateEstadoRequest{Estado: status.Wire()})
	return err
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoffBase
	b.MaxInterval = c.backoffCeil
	return b
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, payload any) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	attempt := func() ([]byte, error) {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, backoff.Permanent(ErrNotFound)
		}
		if resp.StatusCode >= 400 {
			remote := &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(body)}
			if resp.StatusCode < 500 {
				return nil, backoff.Permanent(remote)
			}
			return nil, remote
		}
		return body, nil
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
}

func remoteMessage(body []byte) string {
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		return msg.Message
	}
	return "request failed"
}
