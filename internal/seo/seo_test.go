package seo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithSite(t *testing.T) {
	m := Meta{Title: "Trail Runner", Description: "Grippy shoe"}.WithSite("Storefront")
	assert.Equal(t, "Trail Runner | Storefront", m.Title)
	assert.Equal(t, "Trail Runner | Storefront", m.OG.Title)
	assert.Equal(t, "Grippy shoe", m.OG.Description)
	assert.Equal(t, "website", m.OG.Type)

	assert.Equal(t, "Storefront", Meta{}.WithSite("Storefront").Title)
	assert.Equal(t, "Storefront", Meta{Title: "Storefront"}.WithSite("Storefront").Title, "no doubled suffix")
	assert.Equal(t, "Shoe", Meta{Title: "Shoe"}.WithSite("").Title)
}

func TestProductJSONLD(t *testing.T) {
	got := JSON(Product("Shoe", "Acme", "Light", "https://shop.example/?id=1",
		[]string{"https://shop.example/img/shoe.jpg"}, "1",
		&Offer{Price: "29.99", Currency: "USD", InStock: true, FreeShipping: true}))
	assert.JSONEq(t, `{
		"@context": "https://schema.org",
		"@type": "Product",
		"name": "Shoe",
		"description": "Light",
		"brand": {"@type": "Brand", "name": "Acme"},
		"url": "https://shop.example/?id=1",
		"image": ["https://shop.example/img/shoe.jpg"],
		"sku": "1",
		"offers": {
			"@type": "Offer",
			"price": "29.99",
			"priceCurrency": "USD",
			"availability": "https://schema.org/InStock",
			"url": "https://shop.example/?id=1",
			"shippingDetails": {
				"@type": "OfferShippingDetails",
				"shippingRate": {"@type": "MonetaryAmount", "value": "0", "currency": "USD"}
			}
		}
	}`, string(got))
}

func TestBreadcrumbList(t *testing.T) {
	got := JSON(BreadcrumbList([]BreadcrumbItem{{Name: "Shop", Item: "/"}, {Name: "About", Item: "/pages/about"}}))
	assert.JSONEq(t, `{
		"@context": "https://schema.org",
		"@type": "BreadcrumbList",
		"itemListElement": [
			{"@type": "ListItem", "position": 1, "name": "Shop", "item": "/"},
			{"@type": "ListItem", "position": 2, "name": "About", "item": "/pages/about"}
		]
	}`, string(got))
}

func TestJSONUnsupportedValue(t *testing.T) {
	assert.Equal(t, "", string(JSON(map[string]any{"bad": make(chan int)})))
}
