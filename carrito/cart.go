package carrito

import (
	"sync"

	"github.com/pomodoroso/pizzanova/carta"
)

// Line is one (pizza, size) entry. The pizza is a snapshot taken when the
// line was created, so later menu edits don't reprice an open cart.
type Line struct {
	Pizza    carta.Pizza
	Size     carta.Size
	Quantity int
	Image    string
}

func (l Line) Total() carta.Cents {
	return carta.LineTotal(l.Pizza.PriceCents, l.Size, l.Quantity)
}

// Cart holds one customer's lines. All mutation goes through the methods
// below; derived values are recomputed from the lines under the same lock.
type Cart struct {
	mu     sync.Mutex
	lines  []Line
	onOpen func()
}

// NewCart creates an empty cart. onOpen fires after every AddItem so the
// caller can surface the cart; pass nil if nobody cares.
func NewCart(onOpen func()) *Cart {
	return &Cart{onOpen: onOpen}
}

// AddItem upserts a line keyed by (pizza id, size): existing pairs gain
// quantity, new pairs start at 1.
func (c *Cart) AddItem(pizza carta.Pizza, image string, size carta.Size) {
	c.mu.Lock()
	for i := range c.lines {
		if c.lines[i].Pizza.ID == pizza.ID && c.lines[i].Size == size {
			c.lines[i].Quantity++
			c.mu.Unlock()
			c.signalOpen()
			return
		}
	}
	c.lines = append(c.lines, Line{Pizza: pizza, Size: size, Quantity: 1, Image: image})
	c.mu.Unlock()
	c.signalOpen()
}

func (c *Cart) signalOpen() {
	if c.onOpen != nil {
		c.onOpen()
	}
}

// UpdateQuantity replaces a line's quantity. Zero or less removes the line.
func (c *Cart) UpdateQuantity(pizzaID string, size carta.Size, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(pizzaID, size)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].Pizza.ID == pizzaID && c.lines[i].Size == size {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// RemoveItem deletes the matching line. Removing an absent line is a no-op.
func (c *Cart) RemoveItem(pizzaID string, size carta.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[:0]
	for _, l := range c.lines {
		if !(l.Pizza.ID == pizzaID && l.Size == size) {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() carta.Cents {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.lines)
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Snapshot returns lines, total and item count from a single critical
// section, so the three never disagree.
func (c *Cart) Snapshot() ([]Line, carta.Cents, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := make([]Line, len(c.lines))
	copy(lines, c.lines)
	count := 0
	for _, l := range c.lines {
		count += l.Quantity
	}
	return lines, totalOf(c.lines), count
}

func totalOf(lines []Line) carta.Cents {
	var sum carta.Cents
	for _, l := range lines {
		sum += l.Total()
	}
	return sum
}
