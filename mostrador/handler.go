package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pomodoroso/pizzanova/carta"
	"github.com/pomodoroso/pizzanova/despensa"
	"github.com/pomodoroso/pizzanova/geoloc"
	"github.com/pomodoroso/pizzanova/pedidos"
)

var tracer = otel.Tracer("mostrador")

const sessionCookie = "pizzanova_session"

type MainHandler struct {
	catalog  *carta.Catalog
	sessions *SessionStore
	orders   *pedidos.Client
	geocoder *geoloc.Geocoder
	health   *healthgo.Health
	validate *validator.Validate
	tracking despensa.PollSettings
}

func NewMainHandler(
	e *echo.Echo,
	settings *Settings,
	catalog *carta.Catalog,
	sessions *SessionStore,
	orders *pedidos.Client,
	geocoder *geoloc.Geocoder,
	health *healthgo.Health,
) *MainHandler {
	logger := slog.Default()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     settings.HTTP.CORS.Origins,
		AllowMethods:     settings.HTTP.CORS.Methods,
		AllowHeaders:     settings.HTTP.CORS.Headers,
		AllowCredentials: true,
	}))
	e.Use(otelecho.Middleware("mostrador",
		otelecho.WithMetricAttributeFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("client.ip", r.RemoteAddr),
				attribute.String("user.agent", r.UserAgent()),
			}
		}),
	))

	handler := &MainHandler{
		catalog:  catalog,
		sessions: sessions,
		orders:   orders,
		geocoder: geocoder,
		health:   health,
		validate: despensa.NewValidator(),
		tracking: settings.Tracking,
	}

	e.GET("/healthz", handler.HealthCheck)
	v1 := e.Group("/v1")

	v1.GET("/menu", handler.GetMenu)

	v1.GET("/cart", handler.GetCart)
	v1.POST("/cart/items", handler.AddCartItem)
	v1.PATCH("/cart/items", handler.UpdateCartItem)
	v1.DELETE("/cart/items/:pizzaID", handler.RemoveCartItem)
	v1.DELETE("/cart", handler.ClearCart)

	v1.PUT("/delivery", handler.SetDelivery)
	v1.DELETE("/delivery", handler.ClearDelivery)

	v1.POST("/checkout", handler.SubmitCheckout)
	v1.GET("/orders/:id", handler.GetOrder)
	v1.GET("/orders/:id/events", handler.StreamOrder)

	return handler
}

func (h *MainHandler) session(c echo.Context) *Session {
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		if sess, ok := h.sessions.Get(cookie.Value); ok {
			return sess
		}
	}
	id, sess := h.sessions.Create()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// GetMenu godoc
//
// @Summary List the menu with per-size prices and delivery gating state
// @Tags menu
// @Produce json
// @Success 200 {object} MenuResponse
// @Router /v1/menu [get]
func (h *MainHandler) GetMenu(c echo.Context) error {
	sess := h.session(c)
	address, confirmed := sess.Delivery.Get()

	pizzas := h.catalog.Pizzas()
	resp := MenuResponse{
		Pizzas:          make([]PizzaResponse, 0, len(pizzas)),
		DeliveryReady:   confirmed,
		DeliveryAddress: address,
	}
	for _, p := range pizzas {
		resp.Pizzas = append(resp.Pizzas, toPizzaResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetCart godoc
//
// @Summary Get the session cart
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Router /v1/cart [get]
func (h *MainHandler) GetCart(c echo.Context) error {
	sess := h.session(c)
	lines, total, count := sess.Cart.Snapshot()
	return c.JSON(http.StatusOK, toCartResponse(lines, total, count, sess.ConsumeCartOpened()))
}

// AddCartItem godoc
//
// @Summary Add one pizza to the cart, defaulting to medium
// @Tags cart
// @Accept json
// @Produce json
// @Param item body AddItemRequest true "Item to add"
// @Success 200 {object} CartResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "delivery address not confirmed"
// @Router /v1/cart/items [post]
func (h *MainHandler) AddCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.session(c)

	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if _, confirmed := sess.Delivery.Get(); !confirmed {
		return c.JSON(http.StatusConflict, map[string]string{"error": "confirm a delivery address first"})
	}

	pizza, ok := h.catalog.ByID(req.PizzaID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown pizza"})
	}

	size := carta.SizeMedium
	if req.Size != "" {
		size, _ = carta.ParseSize(req.Size)
	}

	sess.Cart.AddItem(pizza, pizza.Image, size)
	slog.InfoContext(ctx, "item added to cart",
		slog.String("pizza_id", pizza.ID),
		slog.String("size", string(size)),
	)

	lines, total, count := sess.Cart.Snapshot()
	return c.JSON(http.StatusOK, toCartResponse(lines, total, count, sess.ConsumeCartOpened()))
}

// UpdateCartItem godoc
//
// @Summary Replace a line's quantity; zero removes the line
// @Tags cart
// @Accept json
// @Produce json
// @Param item body UpdateQuantityRequest true "New quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {object} map[string]string
// @Router /v1/cart/items [patch]
func (h *MainHandler) UpdateCartItem(c echo.Context) error {
	sess := h.session(c)

	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	size, _ := carta.ParseSize(req.Size)
	sess.Cart.UpdateQuantity(req.PizzaID, size, req.Quantity)

	lines, total, count := sess.Cart.Snapshot()
	return c.JSON(http.StatusOK, toCartResponse(lines, total, count, false))
}

// RemoveCartItem godoc
//
// @Summary Remove a (pizza, size) line from the cart
// @Tags cart
// @Produce json
// @Param pizzaID path string true "Pizza id"
// @Param size query string true "Size"
// @Success 200 {object} CartResponse
// @Router /v1/cart/items/{pizzaID} [delete]
func (h *MainHandler) RemoveCartItem(c echo.Context) error {
	sess := h.session(c)

	size, err := carta.ParseSize(c.QueryParam("size"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	sess.Cart.RemoveItem(c.Param("pizzaID"), size)

	lines, total, count := sess.Cart.Snapshot()
	return c.JSON(http.StatusOK, toCartResponse(lines, total, count, false))
}

// ClearCart godoc
//
// @Summary Empty the cart
// @Tags cart
// @Produce json
// @Success 200 {object} CartResponse
// @Router /v1/cart [delete]
func (h *MainHandler) ClearCart(c echo.Context) error {
	sess := h.session(c)
	sess.Cart.Clear()
	return c.JSON(http.StatusOK, toCartResponse(nil, 0, 0, false))
}

// SetDelivery godoc
//
// @Summary Confirm a delivery address from free text or coordinates
// @Tags delivery
// @Accept json
// @Produce json
// @Param delivery body DeliveryRequest true "Address text or coordinates"
// @Success 200 {object} DeliveryResponse
// @Failure 400 {object} map[string]string
// @Router /v1/delivery [put]
func (h *MainHandler) SetDelivery(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.session(c)

	var req DeliveryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	var address string
	switch {
	case req.Lat != nil && req.Lon != nil:
		// Geocoding failures degrade to the raw coordinates; confirming a
		// location must not depend on Nominatim being up.
		label, err := h.geocoder.Reverse(ctx, *req.Lat, *req.Lon)
		if err != nil {
			slog.WarnContext(ctx, "reverse geocoding failed, using coordinates",
				slog.Any("err", err))
		}
		address = label
	case req.Address != "":
		address = req.Address
		if place, err := h.geocoder.Search(ctx, req.Address); err == nil {
			address = place.DisplayName
		}
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "address or coordinates required"})
	}

	sess.Delivery.Set(address)
	return c.JSON(http.StatusOK, DeliveryResponse{Address: address, Confirmed: true})
}

// ClearDelivery godoc
//
// @Summary Clear the confirmed delivery address
// @Tags delivery
// @Produce json
// @Success 200 {object} DeliveryResponse
// @Router /v1/delivery [delete]
func (h *MainHandler) ClearDelivery(c echo.Context) error {
	sess := h.session(c)
	sess.Delivery.Clear()
	return c.JSON(http.StatusOK, DeliveryResponse{Confirmed: false})
}

// SubmitCheckout godoc
//
// @Summary Create an order from the session cart
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkout body CheckoutRequest true "Customer details"
// @Success 201 {object} CheckoutResponse
// @Failure 400 {object} map[string]string "empty cart or missing fields"
// @Failure 409 {object} map[string]string "no confirmed delivery address"
// @Failure 502 {object} map[string]string "backend failure, retryable"
// @Router /v1/checkout [post]
func (h *MainHandler) SubmitCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	sess := h.session(c)

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	checkout := pedidos.NewCheckout(sess.Cart, sess.Delivery, h.orders)
	orderID, err := checkout.Submit(ctx, pedidos.CustomerInfo{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	switch {
	case errors.Is(err, pedidos.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "cart is empty"})
	case errors.Is(err, pedidos.ErrNoAddress):
		return c.JSON(http.StatusConflict, map[string]string{"error": "confirm a delivery address first"})
	case err != nil:
		slog.ErrorContext(ctx, "order submission failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not submit order, try again"})
	}

	return c.JSON(http.StatusCreated, CheckoutResponse{OrderID: orderID})
}

// GetOrder godoc
//
// @Summary Fetch one order snapshot
// @Tags orders
// @Produce json
// @Param id path string true "Order id"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /v1/orders/{id} [get]
func (h *MainHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orders.Get(ctx, c.Param("id"))
	switch {
	case errors.Is(err, pedidos.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	case err != nil:
		slog.ErrorContext(ctx, "order fetch failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not fetch order, try again"})
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// StreamOrder godoc
//
// @Summary Stream order status updates via Server-Sent Events (SSE)
// @Tags orders
// @Produce text/event-stream
// @Param id path string true "Order id"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} map[string]string
// @Router /v1/orders/{id}/events [get]
func (h *MainHandler) StreamOrder(c echo.Context) error {
	ctx := c.Request().Context()

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		slog.ErrorContext(ctx, "streaming unsupported by response writer")
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming unsupported")
	}

	updates := make(chan pedidos.Order, 8)
	tracker := pedidos.NewTracker(h.orders, c.Param("id"), h.tracking, func(order pedidos.Order) {
		select {
		case updates <- order:
		default:
		}
	})

	// Only the initial fetch decides between tracking and not-found; poll
	// hiccups later on keep the stream open on last-known-good state.
	first, err := tracker.Load(ctx)
	switch {
	case errors.Is(err, pedidos.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	case err != nil:
		slog.ErrorContext(ctx, "initial order fetch failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not fetch order, try again"})
	}

	trackCtx, stopTracking := context.WithCancel(ctx)
	defer stopTracking()
	go tracker.Run(trackCtx)

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	if err := writeOrderEvent(c, flusher, first); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "client closed tracking stream")
			return nil
		case order := <-updates:
			if err := writeOrderEvent(c, flusher, order); err != nil {
				slog.ErrorContext(ctx, "write SSE", slog.Any("err", err))
				return err
			}
		}
	}
}

func writeOrderEvent(c echo.Context, flusher http.Flusher, order pedidos.Order) error {
	data, err := json.Marshal(toOrderResponse(order))
	if err != nil {
		return err
	}
	if _, err := c.Response().Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// HealthCheck godoc
//
// @Summary Check the health of the service
// @Tags health
// @Produce json
// @Success 200 {object} healthgo.Check
// @Failure 503 {object} healthgo.Check
// @Router /healthz [get]
func (h *MainHandler) HealthCheck(c echo.Context) error {
	check := h.health.Measure(c.Request().Context())

	statusCode := http.StatusOK
	if check.Status != healthgo.StatusOK {
		statusCode = http.StatusServiceUnavailable
	}
	return c.JSON(statusCode, check)
}
