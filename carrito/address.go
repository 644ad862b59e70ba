package carrito

import "sync"

// DeliveryAddress holds the single confirmed-or-not delivery address for a
// session. It reports state only; gating of menu interactions happens at the
// HTTP layer.
type DeliveryAddress struct {
	mu        sync.Mutex
	address   string
	confirmed bool
}

func NewDeliveryAddress() *DeliveryAddress {
	return &DeliveryAddress{}
}

// Set stores the address and marks it confirmed.
func (d *DeliveryAddress) Set(address string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.address = address
	d.confirmed = true
}

func (d *DeliveryAddress) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.address = ""
	d.confirmed = false
}

// Get returns the address and whether it has been confirmed.
func (d *DeliveryAddress) Get() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.address, d.confirmed
}
