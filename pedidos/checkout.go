package pedidos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pomodoroso/pizzanova/carrito"
	"github.com/pomodoroso/pizzanova/carta"
)

// Local validation errors. Neither triggers a backend call.
var (
	ErrEmptyCart = errors.New("pedidos: cart is empty")
	ErrNoAddress = errors.New("pedidos: no delivery address")
)

// OrderCreator is the slice of Client that checkout needs.
type OrderCreator interface {
	Create(ctx context.Context, idempotencyKey string, req CreatePedidoRequest) (string, error)
}

type CustomerInfo struct {
	Name    string
	Phone   string
	Address string // overrides the confirmed delivery address when set
	Notes   string
}

// Checkout turns a cart plus customer details into a created order.
type Checkout struct {
	cart     *carrito.Cart
	delivery *carrito.DeliveryAddress
	client   OrderCreator
}

func NewCheckout(cart *carrito.Cart, delivery *carrito.DeliveryAddress, client OrderCreator) *Checkout {
	return &Checkout{cart: cart, delivery: delivery, client: client}
}

// Submit creates the order and returns its server-assigned id. Unit prices
// are frozen here; whatever the menu says later, the created order keeps
// these numbers. On any failure the cart and address are left untouched so
// the customer can resubmit.
func (c *Checkout) Submit(ctx context.Context, info CustomerInfo) (string, error) {
	ctx, span := tracer.Start(ctx, "Checkout.Submit")
	defer span.End()

	lines, total, _ := c.cart.Snapshot()
	if len(lines) == 0 {
		return "", ErrEmptyCart
	}

	address := info.Address
	if address == "" {
		saved, confirmed := c.delivery.Get()
		if !confirmed {
			return "", ErrNoAddress
		}
		address = saved
	}

	productos := make([]WireProduct, 0, len(lines))
	for _, line := range lines {
		unit := carta.UnitPrice(line.Pizza.PriceCents, line.Size)
		productos = append(productos, WireProduct{
			ProductoID: line.Pizza.ID,
			Nombre:     line.Pizza.Name,
			Cantidad:   line.Quantity,
			Precio:     unit.Euros(),
		})
	}

	req := CreatePedidoRequest{
		Productos:       productos,
		Total:           total.Euros(),
		Direccion:       address,
		ClienteNombre:   info.Name,
		ClienteTelefono: info.Phone,
		Notas:           info.Notes,
	}

	// One key per submission attempt; the client reuses it across its own
	// retries so a flaky network cannot double-create the order.
	idempotencyKey := uuid.NewString()

	orderID, err := c.client.Create(ctx, idempotencyKey, req)
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}

	c.cart.Clear()
	slog.InfoContext(ctx, "order submitted",
		slog.String("order_id", orderID),
		slog.Int("lines", len(productos)),
	)
	return orderID, nil
}
