package nav

import (
    "strings"

    "finitefield.org/storefront/internal/route"
)

// Item represents a top-level navigation item.
type Item struct {
    Path  string // e.g. "/pages/about"
    Label string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
    Href   string
    Label  string
    Active bool
}

// Crumb represents a breadcrumb entry. The last crumb is the active one and
// is rendered without a link.
type Crumb struct {
    Href   string
    Label  string
    Active bool
}

// Main is the primary navigation definition. It is only rendered when the
// site's header fragment is missing.
var Main = []Item{
    {Path: "/", Label: "Shop"},
    {Path: "/pages/about", Label: "About"},
    {Path: "/pages/shipping", Label: "Shipping"},
    {Path: "/pages/contact", Label: "Contact"},
}

// Build renders navigation items with active state for the current route.
func Build(current route.Route) []RenderedItem {
    items := make([]RenderedItem, 0, len(Main))
    for _, it := range Main {
        items = append(items, RenderedItem{
            Href:   it.Path,
            Label:  it.Label,
            Active: isActive(route.Resolve(it.Path), current),
        })
    }
    return items
}

func isActive(item, current route.Route) bool {
    switch item.Kind {
    case route.Home:
        // product pages live under the shop
        return current.Kind == route.Home || current.Kind == route.ProductDetail
    case route.StaticPage:
        return current.Kind == route.StaticPage && current.Key == item.Key
    }
    return false
}

// Breadcrumbs builds breadcrumb entries for the current route.
// Rules:
// - Always start with Shop
// - Products and pages add one crumb labelled with title, falling back to a
//   prettified key
func Breadcrumbs(current route.Route, title string) []Crumb {
    crumbs := []Crumb{{Href: "/", Label: "Shop", Active: current.Kind == route.Home}}
    switch current.Kind {
    case route.ProductDetail:
        label := title
        if label == "" {
            label = "Product"
        }
        crumbs = append(crumbs, Crumb{Href: route.Default.URL(current), Label: label, Active: true})
    case route.StaticPage:
        label := title
        if label == "" {
            label = titleFromSegment(current.Key)
        }
        crumbs = append(crumbs, Crumb{Href: "/pages/" + current.Key, Label: label, Active: true})
    }
    return crumbs
}

func titleFromSegment(seg string) string {
    if seg == "" {
        return seg
    }
    // replace hyphens/underscores with spaces and capitalize first letter
    s := strings.ReplaceAll(seg, "-", " ")
    s = strings.ReplaceAll(s, "_", " ")
    r := []rune(s)
    r[0] = toUpper(r[0])
    return string(r)
}

func toUpper(r rune) rune {
    // ASCII only is sufficient for slugs here
    if r >= 'a' && r <= 'z' {
        return r - ('a' - 'A')
    }
    return r
}
