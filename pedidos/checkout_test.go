package pedidos

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pomodoroso/pizzanova/carrito"
	"github.com/pomodoroso/pizzanova/carta"
)

type fakeCreator struct {
	calls []CreatePedidoRequest
	keys  []string
	err   error
}

func (f *fakeCreator) Create(_ context.Context, idempotencyKey string, req CreatePedidoRequest) (string, error) {
	f.calls = append(f.calls, req)
	f.keys = append(f.keys, idempotencyKey)
	if f.err != nil {
		return "", f.err
	}
	return "ped-1", nil
}

var testPizza = carta.Pizza{ID: "margherita", Name: "Margherita", PriceCents: 1250}

func TestSubmitEmptyCartNeverCallsBackend(t *testing.T) {
	// Arrange
	creator := &fakeCreator{}
	checkout := NewCheckout(carrito.NewCart(nil), carrito.NewDeliveryAddress(), creator)

	// Act
	_, err := checkout.Submit(context.Background(), CustomerInfo{Name: "Ana", Phone: "600000000"})

	// Assert
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, creator.calls)
}

func TestSubmitRequiresAnAddress(t *testing.T) {
	creator := &fakeCreator{}
	cart := carrito.NewCart(nil)
	cart.AddItem(testPizza, "", carta.SizeMedium)
	checkout := NewCheckout(cart, carrito.NewDeliveryAddress(), creator)

	_, err := checkout.Submit(context.Background(), CustomerInfo{Name: "Ana", Phone: "600000000"})

	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Empty(t, creator.calls)
}

func TestSubmitFreezesPricesAndClearsCart(t *testing.T) {
	// Arrange
	creator := &fakeCreator{}
	cart := carrito.NewCart(nil)
	cart.AddItem(testPizza, "", carta.SizeLarge)
	cart.AddItem(testPizza, "", carta.SizeLarge)
	delivery := carrito.NewDeliveryAddress()
	delivery.Set("Calle Mayor 1, Madrid")
	checkout := NewCheckout(cart, delivery, creator)

	// Act
	orderID, err := checkout.Submit(context.Background(), CustomerInfo{
		Name:  "Ana",
		Phone: "600000000",
		Notes: "sin cebolla",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ped-1", orderID)
	require.Len(t, creator.calls, 1)

	req := creator.calls[0]
	require.Len(t, req.Productos, 1)
	assert.Equal(t, 2, req.Productos[0].Cantidad)
	assert.Equal(t, 16.25, req.Productos[0].Precio) // 12.50 * 1.3
	assert.Equal(t, 32.50, req.Total)
	assert.Equal(t, "Calle Mayor 1, Madrid", req.Direccion)
	assert.Equal(t, "sin cebolla", req.Notas)

	assert.Empty(t, cart.Lines(), "cart clears on success")

	address, confirmed := delivery.Get()
	assert.True(t, confirmed, "address survives checkout")
	assert.Equal(t, "Calle Mayor 1, Madrid", address)
}

func TestSubmitExplicitAddressOverridesConfirmed(t *testing.T) {
	creator := &fakeCreator{}
	cart := carrito.NewCart(nil)
	cart.AddItem(testPizza, "", carta.SizeMedium)
	delivery := carrito.NewDeliveryAddress()
	delivery.Set("Calle Mayor 1")
	checkout := NewCheckout(cart, delivery, creator)

	_, err := checkout.Submit(context.Background(), CustomerInfo{
		Name:    "Ana",
		Phone:   "600000000",
		Address: "Avenida del Sol 5",
	})

	require.NoError(t, err)
	assert.Equal(t, "Avenida del Sol 5", creator.calls[0].Direccion)
}

func TestSubmitFailureLeavesCartIntact(t *testing.T) {
	// Arrange
	creator := &fakeCreator{err: errors.New("backend down")}
	cart := carrito.NewCart(nil)
	cart.AddItem(testPizza, "", carta.SizeMedium)
	delivery := carrito.NewDeliveryAddress()
	delivery.Set("Calle Mayor 1")
	checkout := NewCheckout(cart, delivery, creator)

	// Act
	_, err := checkout.Submit(context.Background(), CustomerInfo{Name: "Ana", Phone: "600000000"})

	// Assert: the customer can resubmit as-is
	assert.Error(t, err)
	assert.Len(t, cart.Lines(), 1)
	_, confirmed := delivery.Get()
	assert.True(t, confirmed)
}

func TestSubmitUsesFreshIdempotencyKeys(t *testing.T) {
	creator := &fakeCreator{}
	cart := carrito.NewCart(nil)
	delivery := carrito.NewDeliveryAddress()
	delivery.Set("Calle Mayor 1")
	checkout := NewCheckout(cart, delivery, creator)

	cart.AddItem(testPizza, "", carta.SizeMedium)
	_, err := checkout.Submit(context.Background(), CustomerInfo{Name: "Ana", Phone: "600000000"})
	require.NoError(t, err)

	cart.AddItem(testPizza, "", carta.SizeMedium)
	_, err = checkout.Submit(context.Background(), CustomerInfo{Name: "Ana", Phone: "600000000"})
	require.NoError(t, err)

	require.Len(t, creator.keys, 2)
	assert.NotEmpty(t, creator.keys[0])
	assert.NotEqual(t, creator.keys[0], creator.keys[1], "each submission gets its own key")
}
