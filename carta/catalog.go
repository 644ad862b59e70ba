package carta

import (
	"bytes"
	"fmt"

	_ "embed"

	"github.com/spf13/viper"
)

//go:embed menu.yaml
var menuYAML []byte

// Catalog is the deploy-time menu. Reference data only; nothing mutates it
// after Load.
type Catalog struct {
	pizzas []Pizza
	byID   map[string]Pizza
}

// LoadCatalog decodes the embedded menu.
func LoadCatalog() (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(menuYAML)); err != nil {
		return nil, err
	}

	var raw struct {
		Pizzas []Pizza `mapstructure:"pizzas"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, err
	}
	if len(raw.Pizzas) == 0 {
		return nil, fmt.Errorf("carta: empty menu")
	}

	byID := make(map[string]Pizza, len(raw.Pizzas))
	for _, p := range raw.Pizzas {
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("carta: duplicate pizza id %q", p.ID)
		}
		byID[p.ID] = p
	}

	return &Catalog{pizzas: raw.Pizzas, byID: byID}, nil
}

// Pizzas returns the menu in declaration order.
func (c *Catalog) Pizzas() []Pizza {
	return c.pizzas
}

func (c *Catalog) ByID(id string) (Pizza, bool) {
	p, ok := c.byID[id]
	return p, ok
}
