package main

import (
	"time"

	"github.com/pomodoroso/pizzanova/carrito"
	"github.com/pomodoroso/pizzanova/carta"
	"github.com/pomodoroso/pizzanova/pedidos"
)

type PizzaResponse struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Image        string             `json:"image"`
	Ingredients  []string           `json:"ingredients"`
	Category     string             `json:"category"`
	IsPopular    bool               `json:"is_popular"`
	PricesBySize map[string]float64 `json:"prices_by_size"`
}

type MenuResponse struct {
	Pizzas          []PizzaResponse `json:"pizzas"`
	DeliveryReady   bool            `json:"delivery_ready"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
}

func toPizzaResponse(p carta.Pizza) PizzaResponse {
	return PizzaResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       p.Image,
		Ingredients: p.Ingredients,
		Category:    string(p.Category),
		IsPopular:   p.IsPopular,
		PricesBySize: map[string]float64{
			string(carta.SizeSmall):  carta.UnitPrice(p.PriceCents, carta.SizeSmall).Euros(),
			string(carta.SizeMedium): carta.UnitPrice(p.PriceCents, carta.SizeMedium).Euros(),
			string(carta.SizeLarge):  carta.UnitPrice(p.PriceCents, carta.SizeLarge).Euros(),
		},
	}
}

type AddItemRequest struct {
	PizzaID string `json:"pizza_id" validate:"required"`
	Size    string `json:"size" validate:"omitempty,oneof=small medium large"`
}

type UpdateQuantityRequest struct {
	PizzaID  string `json:"pizza_id" validate:"required"`
	Size     string `json:"size" validate:"required,oneof=small medium large"`
	Quantity int    `json:"quantity"`
}

type CartLineResponse struct {
	PizzaID   string  `json:"pizza_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type CartResponse struct {
	Items     []CartLineResponse `json:"items"`
	Total     float64            `json:"total"`
	ItemCount int                `json:"item_count"`
	Opened    bool               `json:"opened"`
}

func toCartResponse(lines []carrito.Line, total carta.Cents, count int, opened bool) CartResponse {
	items := make([]CartLineResponse, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartLineResponse{
			PizzaID:   l.Pizza.ID,
			Name:      l.Pizza.Name,
			Size:      string(l.Size),
			Quantity:  l.Quantity,
			Image:     l.Image,
			UnitPrice: carta.UnitPrice(l.Pizza.PriceCents, l.Size).Euros(),
			LineTotal: l.Total().Euros(),
		})
	}
	return CartResponse{Items: items, Total: total.Euros(), ItemCount: count, Opened: opened}
}

type DeliveryRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

type DeliveryResponse struct {
	Address   string `json:"address,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

type CheckoutRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CheckoutResponse struct {
	OrderID string `json:"order_id"`
}

type OrderLineResponse struct {
	PizzaID   string  `json:"pizza_id"`
	PizzaName string  `json:"pizza_name"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	Lines         []OrderLineResponse `json:"lines"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	StatusLabel   string              `json:"status_label"`
	StatusColor   string              `json:"status_color"`
	CustomerName  string              `json:"customer_name,omitempty"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Address       string              `json:"address,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toOrderResponse(o pedidos.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			PizzaID:   l.PizzaID,
			PizzaName: l.PizzaName,
			Quantity:  l.Quantity,
			Size:      string(l.Size),
			UnitPrice: l.UnitPriceCents.Euros(),
		})
	}
	info := o.Status.Info()
	return OrderResponse{
		ID:            o.ID,
		Lines:         lines,
		Total:         o.TotalCents.Euros(),
		Status:        string(o.Status),
		StatusLabel:   info.Label,
		StatusColor:   info.Color,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Address:       o.Address,
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
