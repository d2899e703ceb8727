package seo

import (
    "html/template"

    json "github.com/goccy/go-json"
)

// JSON marshals v to a compact JSON value for a ld+json script. It returns
// an empty value on error.
func JSON(v any) template.JS {
    b, err := json.Marshal(v)
    if err != nil {
        return ""
    }
    return template.JS(b)
}

// Organization returns a minimal Organization schema.
func Organization(name, url, logoURL string) map[string]any {
    m := map[string]any{
        "@context": "https://schema.org",
        "@type":    "Organization",
        "name":     name,
    }
    if url != "" { m["url"] = url }
    if logoURL != "" { m["logo"] = logoURL }
    return m
}

// WebSite returns a minimal WebSite schema.
func WebSite(name, url string) map[string]any {
    m := map[string]any{
        "@context": "https://schema.org",
        "@type":    "WebSite",
        "name":     name,
    }
    if url != "" { m["url"] = url }
    return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
    Name string
    Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
    el := make([]map[string]any, 0, len(items))
    for i, it := range items {
        el = append(el, map[string]any{
            "@type":    "ListItem",
            "position": i + 1,
            "name":     it.Name,
            "item":     it.Item,
        })
    }
    return map[string]any{
        "@context":        "https://schema.org",
        "@type":           "BreadcrumbList",
        "itemListElement": el,
    }
}

// Offer describes the price block of a Product schema.
type Offer struct {
    Price        string // decimal major units, e.g. "29.99"
    Currency     string
    InStock      bool
    FreeShipping bool
}

// Product returns a product schema payload with an optional offer.
func Product(name, brand, description, url string, images []string, sku string, offer *Offer) map[string]any {
    m := map[string]any{
        "@context":    "https://schema.org",
        "@type":       "Product",
        "name":        name,
        "description": description,
    }
    if brand != "" { m["brand"] = map[string]any{"@type": "Brand", "name": brand} }
    if url != "" { m["url"] = url }
    if len(images) > 0 { m["image"] = images }
    if sku != "" { m["sku"] = sku }
    if offer != nil {
        availability := "https://schema.org/OutOfStock"
        if offer.InStock {
            availability = "https://schema.org/InStock"
        }
        o := map[string]any{
            "@type":         "Offer",
            "price":         offer.Price,
            "priceCurrency": offer.Currency,
            "availability":  availability,
        }
        if url != "" { o["url"] = url }
        if offer.FreeShipping {
            o["shippingDetails"] = map[string]any{
                "@type":        "OfferShippingDetails",
                "shippingRate": map[string]any{"@type": "MonetaryAmount", "value": "0", "currency": offer.Currency},
            }
        }
        m["offers"] = o
    }
    return m
}

// Article returns a minimal Article schema payload, used for static pages.
func Article(headline, url, datePublished string) map[string]any {
    m := map[string]any{
        "@context": "https://schema.org",
        "@type":    "Article",
        "headline": headline,
    }
    if url != "" { m["url"] = url }
    if datePublished != "" { m["datePublished"] = datePublished }
    return m
}
