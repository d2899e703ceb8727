package catalog

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"finitefield.org/storefront/internal/cms"
)

// Product is a read-only catalog record. Prices are integer minor units.
type Product struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Brand             string      `json:"brand,omitempty"`
	Price             int64       `json:"price"`
	OriginalPrice     *int64      `json:"originalPrice,omitempty"`
	Image             string      `json:"image"`
	Images            []string    `json:"images,omitempty"`
	ShortDescription  string      `json:"shortDescription,omitempty"`
	Description       string      `json:"description,omitempty"`
	DescriptionBlocks []cms.Block `json:"descriptionBlocks,omitempty"`
	Shipping          Shipping    `json:"shipping"`
	Colors            []Color     `json:"colors,omitempty"`
	Sizes             []string    `json:"sizes,omitempty"`
	Rating            *float64    `json:"rating,omitempty"`
	InStock           *bool       `json:"inStock,omitempty"`
}

// Color is a selectable product color.
type Color struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// OnSale reports whether the product carries a higher original price.
func (p Product) OnSale() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}

// Available treats a missing inStock flag as in stock.
func (p Product) Available() bool {
	return p.InStock == nil || *p.InStock
}

// Gallery returns the main image followed by the extra images, without duplicates.
func (p Product) Gallery() []string {
	out := make([]string, 0, len(p.Images)+1)
	seen := map[string]bool{}
	for _, src := range append([]string{p.Image}, p.Images...) {
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}

// Summary is the text shown on grid cards.
func (p Product) Summary() string {
	if p.ShortDescription != "" {
		return p.ShortDescription
	}
	return p.Description
}

// Shipping is encoded either as a boolean (true = free shipping) or as a
// method name such as "free", "standard" or "express".
type Shipping struct {
	Method string
}

const (
	ShippingFree     = "free"
	ShippingStandard = "standard"
)

// Free reports whether shipping is free.
func (s Shipping) Free() bool { return s.Method == ShippingFree }

// Label is the human-readable shipping text.
func (s Shipping) Label() string {
	switch s.Method {
	case "":
		return ""
	case ShippingFree:
		return "Free Shipping"
	default:
		return strings.ToUpper(s.Method[:1]) + s.Method[1:] + " Shipping"
	}
}

func (s *Shipping) UnmarshalJSON(b []byte) error {
	var flag bool
	if err := json.Unmarshal(b, &flag); err == nil {
		if flag {
			s.Method = ShippingFree
		} else {
			s.Method = ""
		}
		return nil
	}
	var method *string
	if err := json.Unmarshal(b, &method); err != nil {
		return fmt.Errorf("catalog: shipping must be a boolean or string: %w", err)
	}
	if method == nil {
		s.Method = ""
		return nil
	}
	s.Method = strings.ToLower(strings.TrimSpace(*method))
	return nil
}

func (s Shipping) MarshalJSON() ([]byte, error) {
	switch s.Method {
	case "":
		return []byte("false"), nil
	case ShippingFree:
		return []byte("true"), nil
	default:
		return json.Marshal(s.Method)
	}
}
