// Package route maps storefront URLs to the logical view they select.
//
// A Route is a pure function of a URL's path and query: the same URL always
// resolves to the same Route, and the canonical URL of a Route resolves back
// to it. Reloading a page or walking history therefore reproduces the view
// without relying on anything stored on the history entry.
package route

import (
	"net/url"
	"strconv"
	"strings"
)

// Kind enumerates the route variants.
type Kind int

const (
	Home Kind = iota
	ProductDetail
	StaticPage
)

func (k Kind) String() string {
	switch k {
	case Home:
		return "home"
	case ProductDetail:
		return "product"
	case StaticPage:
		return "page"
	default:
		return "unknown"
	}
}

// Route identifies the view currently showing. Routes are comparable.
type Route struct {
	Kind Kind
	// ID is the product id when Kind is ProductDetail and Valid is true.
	ID int64
	// Valid is false for a ProductDetail whose id did not parse.
	Valid bool
	// Key is the static page key, or the raw id text of an invalid ProductDetail.
	Key string
}

// HomeRoute returns the home/grid route.
func HomeRoute() Route { return Route{Kind: Home, Valid: true} }

// Product returns the detail route for id.
func Product(id int64) Route { return Route{Kind: ProductDetail, ID: id, Valid: true} }

// Page returns the static page route for key.
func Page(key string) Route { return Route{Kind: StaticPage, Key: key, Valid: true} }

func (r Route) String() string {
	switch r.Kind {
	case ProductDetail:
		if !r.Valid {
			return "product(invalid:" + r.Key + ")"
		}
		return "product(" + strconv.FormatInt(r.ID, 10) + ")"
	case StaticPage:
		return "page(" + r.Key + ")"
	default:
		return r.Kind.String()
	}
}

// Scheme holds the URL conventions used to resolve and build routes.
type Scheme struct {
	DetailKey  string // query key selecting a product, "id"
	PageKey    string // query key selecting a static page, "page"
	PagePrefix string // path prefix selecting a static page, "/pages/"
}

// Default is the scheme used by the storefront: /?id=1, /?page=about, /pages/about.
var Default = Scheme{DetailKey: "id", PageKey: "page", PagePrefix: "/pages/"}

func (s Scheme) withDefaults() Scheme {
	if s.DetailKey == "" {
		s.DetailKey = Default.DetailKey
	}
	if s.PageKey == "" {
		s.PageKey = Default.PageKey
	}
	if s.PagePrefix == "" {
		s.PagePrefix = Default.PagePrefix
	}
	if !strings.HasSuffix(s.PagePrefix, "/") {
		s.PagePrefix += "/"
	}
	return s
}

// Resolve derives the route for u. It never fails: malformed input yields
// an invalid ProductDetail or an unknown page key, both of which render the
// not-found view.
func (s Scheme) Resolve(u *url.URL) Route {
	s = s.withDefaults()
	if u == nil {
		return HomeRoute()
	}
	q := u.Query()
	if q.Has(s.DetailKey) {
		raw := q.Get(s.DetailKey)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Route{Kind: ProductDetail, Key: raw}
		}
		return Product(id)
	}
	if q.Has(s.PageKey) {
		return Page(q.Get(s.PageKey))
	}
	if key, ok := strings.CutPrefix(u.Path, s.PagePrefix); ok {
		if unescaped, err := url.PathUnescape(key); err == nil {
			key = unescaped
		}
		return Page(strings.Trim(key, "/"))
	}
	return HomeRoute()
}

// ResolveString parses raw and resolves it. Unparseable input resolves to
// Home, matching how a browser would fall back to the site root.
func (s Scheme) ResolveString(raw string) Route {
	u, err := url.Parse(raw)
	if err != nil {
		return HomeRoute()
	}
	return s.Resolve(u)
}

// URL returns the canonical path+query for r.
func (s Scheme) URL(r Route) string {
	s = s.withDefaults()
	switch r.Kind {
	case ProductDetail:
		v := url.Values{}
		if r.Valid {
			v.Set(s.DetailKey, strconv.FormatInt(r.ID, 10))
		} else {
			v.Set(s.DetailKey, r.Key)
		}
		return "/?" + v.Encode()
	case StaticPage:
		v := url.Values{}
		v.Set(s.PageKey, r.Key)
		return "/?" + v.Encode()
	default:
		return "/"
	}
}

// Resolve resolves raw with the Default scheme.
func Resolve(raw string) Route { return Default.ResolveString(raw) }
