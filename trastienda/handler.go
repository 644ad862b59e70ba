package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pomodoroso/pizzanova/cuentas"
	"github.com/pomodoroso/pizzanova/despensa"
	"github.com/pomodoroso/pizzanova/pedidos"
)

var tracer = otel.Tracer("trastienda")

const userContextKey = "trastienda.user"

type MainHandler struct {
	board    *pedidos.Board
	accounts cuentas.Provider
	pubsub   pedidos.SnapshotPubSubber
	health   *healthgo.Health
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewMainHandler(
	e *echo.Echo,
	settings *Settings,
	board *pedidos.Board,
	accounts cuentas.Provider,
	pubsub pedidos.SnapshotPubSubber,
	health *healthgo.Health,
) *MainHandler {
	logger := slog.Default()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: settings.HTTP.CORS.Origins,
		AllowMethods: settings.HTTP.CORS.Methods,
		AllowHeaders: settings.HTTP.CORS.Headers,
	}))
	e.Use(otelecho.Middleware("trastienda",
		otelecho.WithMetricAttributeFn(func(r *http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{
				attribute.String("client.ip", r.RemoteAddr),
				attribute.String("user.agent", r.UserAgent()),
			}
		}),
	))

	allowedOrigins := make(map[string]struct{}, len(settings.HTTP.CORS.Origins))
	for _, o := range settings.HTTP.CORS.Origins {
		allowedOrigins[o] = struct{}{}
	}

	handler := &MainHandler{
		board:    board,
		accounts: accounts,
		pubsub:   pubsub,
		health:   health,
		validate: despensa.NewValidator(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowedOrigins[origin]
				return ok
			},
		},
	}

	e.GET("/healthz", handler.HealthCheck)
	v1 := e.Group("/v1")

	v1.POST("/signup", handler.SignUp)
	v1.POST("/login", handler.Login)
	v1.POST("/logout", handler.Logout)

	admin := v1.Group("/admin", handler.requireSession)
	admin.GET("/orders", handler.GetBoard)
	admin.PUT("/orders/:id/status", handler.UpdateOrderStatus)
	admin.GET("/orders/ws", handler.StreamBoardWS)

	return handler
}

// requireSession resolves the bearer token into a user before any admin
// handler runs.
func (h *MainHandler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := bearerToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		user, err := h.accounts.Session(ctx, token)
		switch {
		case errors.Is(err, cuentas.ErrSessionExpired):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session expired"})
		case errors.Is(err, cuentas.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid session"})
		case err != nil:
			slog.ErrorContext(ctx, "session check failed", slog.Any("err", err))
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "identity provider unavailable"})
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	// Browsers cannot set headers on websocket dials, so the token rides a
	// query parameter there.
	return c.QueryParam("access_token")
}

// SignUp godoc
//
// @Summary Register a back-office account
// @Tags auth
// @Accept json
// @Produce json
// @Param signup body SignUpRequest true "New account"
// @Success 201 {object} cuentas.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string "email already registered"
// @Router /v1/signup [post]
func (h *MainHandler) SignUp(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := h.accounts.SignUp(ctx, cuentas.Credentials{Email: req.Email, Password: req.Password}, req.Name)
	switch {
	case errors.Is(err, cuentas.ErrUserExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "email already registered"})
	case err != nil:
		slog.ErrorContext(ctx, "sign-up failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "identity provider unavailable"})
	}
	return c.JSON(http.StatusCreated, user)
}

// Login godoc
//
// @Summary Exchange credentials for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} map[string]string
// @Router /v1/login [post]
func (h *MainHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	session, err := h.accounts.Login(ctx, cuentas.Credentials{Email: req.Email, Password: req.Password})
	switch {
	case errors.Is(err, cuentas.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case err != nil:
		slog.ErrorContext(ctx, "login failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "identity provider unavailable"})
	}

	slog.InfoContext(ctx, "user logged in", slog.String("user_id", session.User.ID))
	return c.JSON(http.StatusOK, LoginResponse{
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
		User:        session.User,
	})
}

// Logout godoc
//
// @Summary Invalidate the current access token
// @Tags auth
// @Produce json
// @Success 204 {string} string ""
// @Router /v1/logout [post]
func (h *MainHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	token := bearerToken(c)
	if token == "" {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.accounts.Logout(ctx, token); err != nil {
		// Logout is best effort; the client drops its token either way.
		slog.WarnContext(ctx, "logout failed", slog.Any("err", err))
	}
	return c.NoContent(http.StatusNoContent)
}

// GetBoard godoc
//
// @Summary Get the active-order board with per-status counts
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} BoardResponse
// @Router /v1/admin/orders [get]
func (h *MainHandler) GetBoard(c echo.Context) error {
	return c.JSON(http.StatusOK, toBoardResponse(
		h.board.Orders(), h.board.Counts(), h.board.SyncedAt(), h.board.Loaded(),
	))
}

// UpdateOrderStatus godoc
//
// @Summary Move an order to a new status
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Order id"
// @Param status body UpdateStatusRequest true "Target status"
// @Success 200 {object} OrderResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "transition not allowed"
// @Failure 502 {object} map[string]string "backend rejected the change"
// @Router /v1/admin/orders/{id}/status [put]
func (h *MainHandler) UpdateOrderStatus(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "MainHandler.UpdateOrderStatus")
	defer span.End()

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	to, err := pedidos.ParseStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	order, err := h.board.SetStatus(ctx, c.Param("id"), to)
	var invalid *pedidos.InvalidTransitionError
	switch {
	case errors.Is(err, pedidos.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusConflict, map[string]string{"error": invalid.Error()})
	case err != nil:
		slog.ErrorContext(ctx, "status change not confirmed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not confirm status change"})
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// StreamBoardWS godoc
//
// @Summary Stream board snapshots over a websocket
// @Tags admin
// @Security Bearer
// @Success 101 {string} string "switching protocols"
// @Router /v1/admin/orders/ws [get]
func (h *MainHandler) StreamBoardWS(c echo.Context) error {
	ctx := c.Request().Context()

	snapshots, unsub, err := h.pubsub.SubSnapshots(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to board snapshots", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "subscription failed"})
	}
	defer unsub()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.ErrorContext(ctx, "websocket upgrade failed", slog.Any("err", err))
		return err
	}
	defer conn.Close()

	// The read pump only exists to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	first := toBoardResponse(h.board.Orders(), h.board.Counts(), h.board.SyncedAt(), h.board.Loaded())
	if err := conn.WriteJSON(first); err != nil {
		slog.ErrorContext(ctx, "write board snapshot", slog.Any("err", err))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "client closed board stream")
			return nil
		case <-closed:
			return nil
		case snap := <-snapshots:
			resp := toBoardResponse(snap.Orders, countsOf(snap.Orders), snap.SyncedAt, true)
			if err := conn.WriteJSON(resp); err != nil {
				slog.ErrorContext(ctx, "write board snapshot", slog.Any("err", err))
				return nil
			}
		}
	}
}

func countsOf(orders []pedidos.Order) map[pedidos.Status]int {
	counts := make(map[pedidos.Status]int, len(pedidos.AllStatuses))
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
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
