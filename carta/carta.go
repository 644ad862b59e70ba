package carta

import (
	"fmt"
)

type Category string

const (
	CategoryClassica    Category = "classica"
	CategorySpeciale    Category = "speciale"
	CategoryVegetariana Category = "vegetariana"
)

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// ParseSize validates a size coming from a request body.
func ParseSize(s string) (Size, error) {
	switch Size(s) {
	case SizeSmall, SizeMedium, SizeLarge:
		return Size(s), nil
	}
	return "", fmt.Errorf("unknown size %q", s)
}

// Cents is a money amount in euro cents. Wire and display formats use
// decimal euros; everything internal stays integral.
type Cents int64

// Euros converts for the wire, which speaks decimal euros.
func (c Cents) Euros() float64 {
	return float64(c) / 100
}

// CentsFromEuros rounds half away from zero; backend totals arrive as floats.
func CentsFromEuros(e float64) Cents {
	if e < 0 {
		return Cents(e*100 - 0.5)
	}
	return Cents(e*100 + 0.5)
}

type Pizza struct {
	ID          string   `mapstructure:"id"`
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	PriceCents  Cents    `mapstructure:"price_cents"`
	Image       string   `mapstructure:"image"`
	Ingredients []string `mapstructure:"ingredients"`
	Category    Category `mapstructure:"category"`
	IsPopular   bool     `mapstructure:"popular"`
}
