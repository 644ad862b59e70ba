package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomodoroso/pizzanova/carta"
	"github.com/pomodoroso/pizzanova/geoloc"
	"github.com/pomodoroso/pizzanova/pedidos"
)

type handlerFixture struct {
	server   *echo.Echo
	sessions *SessionStore
}

func newHandlerFixture(t *testing.T, backendURL string) *handlerFixture {
	t.Helper()

	settings, err := LoadConfig()
	require.NoError(t, err)
	settings.Backend.BaseURL = backendURL
	settings.Backend.BackoffBaseInMs = 1
	settings.Geocoder.BaseURL = backendURL

	catalog, err := carta.LoadCatalog()
	require.NoError(t, err)

	health, err := healthgo.New(healthgo.WithComponent(healthgo.Component{Name: "test"}))
	require.NoError(t, err)

	sessions := NewSessionStore(time.Hour)
	server := echo.New()
	NewMainHandler(server, settings, catalog, sessions,
		pedidos.NewClient(settings.Backend), geoloc.NewGeocoder(settings.Geocoder), health)

	return &handlerFixture{server: server, sessions: sessions}
}

// request performs an HTTP round trip bound to one session.
func (f *handlerFixture) request(method, path, sessionID, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestGetMenu(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t, "http://backend.invalid")

	// Act
	rec := f.request(http.MethodGet, "/v1/menu", "", "")

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MenuResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Pizzas)
	assert.False(t, resp.DeliveryReady)

	first := resp.Pizzas[0]
	assert.Less(t, first.PricesBySize["small"], first.PricesBySize["medium"])
	assert.Less(t, first.PricesBySize["medium"], first.PricesBySize["large"])
}

func TestAddCartItemRequiresConfirmedDelivery(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t, "http://backend.invalid")
	id, _ := f.sessions.Create()

	// Act
	rec := f.request(http.MethodPost, "/v1/cart/items", id, `{"pizza_id":"1"}`)

	// Assert
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddCartItemDefaultsToMedium(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t, "http://backend.invalid")
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")

	// Act
	rec := f.request(http.MethodPost, "/v1/cart/items", id, `{"pizza_id":"1"}`)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "medium", resp.Items[0].Size)
	assert.Equal(t, 1, resp.ItemCount)
	assert.True(t, resp.Opened)
}

func TestAddCartItemUnknownPizza(t *testing.T) {
	f := newHandlerFixture(t, "http://backend.invalid")
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")

	rec := f.request(http.MethodPost, "/v1/cart/items", id, `{"pizza_id":"calzone-fantasma"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutEmptyCart(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t, "http://backend.invalid")
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")

	// Act
	rec := f.request(http.MethodPost, "/v1/checkout", id, `{"name":"Ana","phone":"600000000"}`)

	// Assert
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutSubmitsAndClearsCart(t *testing.T) {
	// Arrange: a backend that accepts the order
	var created pedidos.CreatePedidoRequest
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pedidos", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"pedido_id": "ped-9"})
	}))
	defer backend.Close()

	f := newHandlerFixture(t, backend.URL)
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")
	f.request(http.MethodPost, "/v1/cart/items", id, `{"pizza_id":"1","size":"large"}`)

	// Act
	rec := f.request(http.MethodPost, "/v1/checkout", id, `{"name":"Ana","phone":"600000000"}`)

	// Assert
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ped-9", resp.OrderID)
	assert.Equal(t, "Calle Mayor 1", created.Direccion)
	require.Len(t, created.Productos, 1)
	assert.Equal(t, 16.25, created.Productos[0].Precio)

	assert.Empty(t, sess.Cart.Lines())
}

func TestGetOrderNotFound(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()
	f := newHandlerFixture(t, backend.URL)

	rec := f.request(http.MethodGet, "/v1/orders/missing", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder(t *testing.T) {
	// Arrange
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pedidos/ped-9/estado", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"pedido": map[string]any{
				"pedido_id": "ped-9",
				"estado":    "PREPARANDO",
				"total":     16.25,
				"productos": []map[string]any{
					{"producto_id": "margherita", "nombre": "Margherita", "cantidad": 1, "precio": 16.25},
				},
			},
		})
	}))
	defer backend.Close()
	f := newHandlerFixture(t, backend.URL)

	// Act
	rec := f.request(http.MethodGet, "/v1/orders/ped-9", "", "")

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ped-9", resp.ID)
	assert.Equal(t, "preparing", resp.Status)
	assert.Equal(t, "Preparando", resp.StatusLabel)
	assert.Equal(t, 16.25, resp.Total)
}

func TestUpdateAndRemoveCartItems(t *testing.T) {
	// Arrange
	f := newHandlerFixture(t, "http://backend.invalid")
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")
	f.request(http.MethodPost, "/v1/cart/items", id, `{"pizza_id":"1","size":"large"}`)

	// Act: bump the quantity
	rec := f.request(http.MethodPatch, "/v1/cart/items", id, `{"pizza_id":"1","size":"large","quantity":4}`)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.ItemCount)

	// Act: remove the line
	rec = f.request(http.MethodDelete, "/v1/cart/items/1?size=large", id, "")

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestSetDeliveryWithCoordinatesFallsBack(t *testing.T) {
	// Arrange: geocoder is down, coordinates still confirm
	f := newHandlerFixture(t, "http://geocoder.invalid")
	id, sess := f.sessions.Create()

	// Act
	rec := f.request(http.MethodPut, "/v1/delivery", id, `{"lat":40.4168,"lon":-3.7038}`)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DeliveryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Confirmed)
	assert.Equal(t, "40.41680, -3.70380", resp.Address)

	address, confirmed := sess.Delivery.Get()
	assert.True(t, confirmed)
	assert.Equal(t, "40.41680, -3.70380", address)
}

func TestClearDelivery(t *testing.T) {
	f := newHandlerFixture(t, "http://backend.invalid")
	id, sess := f.sessions.Create()
	sess.Delivery.Set("Calle Mayor 1")

	rec := f.request(http.MethodDelete, "/v1/delivery", id, "")

	require.Equal(t, http.StatusOK, rec.Code)
	_, confirmed := sess.Delivery.Get()
	assert.False(t, confirmed)
}
