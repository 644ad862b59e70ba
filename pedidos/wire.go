package pedidos

import (
	"time"

	"github.com/pomodoroso/pizzanova/carta"
)

// Wire types mirror the backend's pedidos contract field for field.

type WireProduct struct {
	ProductoID string  `json:"producto_id"`
	Nombre     string  `json:"nombre"`
	Cantidad   int     `json:"cantidad"`
	Precio     float64 `json:"precio"`
}

type CreatePedidoRequest struct {
	Productos       []WireProduct `json:"productos"`
	Total           float64       `json:"total"`
	Direccion       string        `json:"direccion"`
	ClienteNombre   string        `json:"cliente_nombre"`
	ClienteTelefono string        `json:"cliente_telefono"`
	Notas           string        `json:"notas,omitempty"`
}

type createPedidoResponse struct {
	PedidoID string `json:"pedido_id"`
}

type WirePedido struct {
	PedidoID        string        `json:"pedido_id"`
	Productos       []WireProduct `json:"productos"`
	Total           float64       `json:"total"`
	Estado          string        `json:"estado"`
	FechaPedido     string        `json:"fecha_pedido"`
	Direccion       string        `json:"direccion,omitempty"`
	ClienteNombre   string        `json:"cliente_nombre,omitempty"`
	ClienteTelefono string        `json:"cliente_telefono,omitempty"`
	Notas           string        `json:"notas,omitempty"`
}

type listPedidosResponse struct {
	Pedidos []WirePedido `json:"pedidos"`
}

type updateEstadoRequest struct {
	Estado string `json:"estado"`
}

// OrderLine is a frozen line of a created order. UnitPriceCents was fixed at
// checkout and is never recomputed from the live menu.
type OrderLine struct {
	PizzaID        string      `json:"pizza_id"`
	PizzaName      string      `json:"pizza_name"`
	Quantity       int         `json:"quantity"`
	Size           carta.Size  `json:"size"`
	UnitPriceCents carta.Cents `json:"unit_price_cents"`
}

// Order is the local view of one remote order snapshot. The backend stays
// authoritative for Total after creation.
type Order struct {
	ID            string      `json:"id"`
	Lines         []OrderLine `json:"lines"`
	TotalCents    carta.Cents `json:"total_cents"`
	Status        Status      `json:"status"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Address       string      `json:"address,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func orderFromWire(w WirePedido) (Order, error) {
	status, err := StatusFromWire(w.Estado)
	if err != nil {
		return Order{}, err
	}

	lines := make([]OrderLine, 0, len(w.Productos))
	for _, p := range w.Productos {
		lines = append(lines, OrderLine{
			PizzaID:   p.ProductoID,
			PizzaName: p.Nombre,
			Quantity:  p.Cantidad,
			// The wire contract carries no size per product; admin views
			// render everything as medium, matching the stored unit price.
			Size:           carta.SizeMedium,
			UnitPriceCents: carta.CentsFromEuros(p.Precio),
		})
	}

	// fecha_pedido is RFC3339; a malformed value degrades to zero time
	// rather than dropping the order from a poll cycle.
	createdAt, _ := time.Parse(time.RFC3339, w.FechaPedido)

	return Order{
		ID:            w.PedidoID,
		Lines:         lines,
		TotalCents:    carta.CentsFromEuros(w.Total),
		Status:        status,
		CustomerName:  w.ClienteNombre,
		CustomerPhone: w.ClienteTelefono,
		Address:       w.Direccion,
		Notes:         w.Notas,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}
