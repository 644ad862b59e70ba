package main

import (
	"time"

	"github.com/pomodoroso/pizzanova/cuentas"
	"github.com/pomodoroso/pizzanova/pedidos"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        cuentas.User `json:"user"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed preparing ready delivered cancelled"`
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
	NextStatuses  []string            `json:"next_statuses"`
	CustomerName  string              `json:"customer_name,omitempty"`
	CustomerPhone string              `json:"customer_phone,omitempty"`
	Address       string              `json:"address,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type BoardResponse struct {
	Orders   []OrderResponse `json:"orders"`
	Counts   map[string]int  `json:"counts"`
	SyncedAt time.Time       `json:"synced_at"`
	Loaded   bool            `json:"loaded"`
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
	next := make([]string, 0, 2)
	for _, s := range pedidos.AllStatuses {
		if pedidos.CheckTransition(o.Status, s) == nil {
			next = append(next, string(s))
		}
	}
	info := o.Status.Info()
	return OrderResponse{
		ID:            o.ID,
		Lines:         lines,
		Total:         o.TotalCents.Euros(),
		Status:        string(o.Status),
		StatusLabel:   info.Label,
		StatusColor:   info.Color,
		NextStatuses:  next,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Address:       o.Address,
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toBoardResponse(orders []pedidos.Order, counts map[pedidos.Status]int, syncedAt time.Time, loaded bool) BoardResponse {
	resp := BoardResponse{
		Orders:   make([]OrderResponse, 0, len(orders)),
		Counts:   make(map[string]int, len(counts)),
		SyncedAt: syncedAt,
		Loaded:   loaded,
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	for s, n := range counts {
		resp.Counts[string(s)] = n
	}
	return resp
}
