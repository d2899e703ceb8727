package route

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// NavigationEntry is the state the router attaches to a history entry: the
// route it was created for plus optional UI metadata.
type NavigationEntry struct {
	Route Route
	// Scroll is the saved vertical scroll offset of the home grid.
	Scroll *int
}

// NewEntry returns an entry for r with no metadata.
func NewEntry(r Route) NavigationEntry { return NavigationEntry{Route: r} }

// WithScroll returns a copy of e carrying scroll offset y.
func (e NavigationEntry) WithScroll(y int) NavigationEntry {
	if y < 0 {
		y = 0
	}
	e.Scroll = &y
	return e
}

// ScrollOffset returns the saved offset and whether one was recorded.
func (e NavigationEntry) ScrollOffset() (int, bool) {
	if e.Scroll == nil {
		return 0, false
	}
	return *e.Scroll, true
}

var errInvalidEntry = errors.New("route: invalid navigation entry")

type wireEntry struct {
	Kind   string `json:"kind"`
	ID     *int64 `json:"id,omitempty"`
	Raw    string `json:"raw,omitempty"`
	Key    string `json:"key,omitempty"`
	Scroll *int   `json:"scrollY,omitempty"`
}

// MarshalJSON encodes the entry as a tagged object, e.g. {"kind":"product","id":1}.
func (e NavigationEntry) MarshalJSON() ([]byte, error) {
	w := wireEntry{Kind: e.Route.Kind.String(), Scroll: e.Scroll}
	switch e.Route.Kind {
	case ProductDetail:
		if e.Route.Valid {
			id := e.Route.ID
			w.ID = &id
		} else {
			w.Raw = e.Route.Key
		}
	case StaticPage:
		w.Key = e.Route.Key
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a tagged entry. Unknown tags, missing fields and
// negative offsets are rejected so a decoded entry is always complete.
func (e *NavigationEntry) UnmarshalJSON(b []byte) error {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("%w: %v", errInvalidEntry, err)
	}
	var r Route
	switch w.Kind {
	case "home":
		r = HomeRoute()
	case "product":
		switch {
		case w.ID != nil:
			r = Product(*w.ID)
		default:
			r = Route{Kind: ProductDetail, Key: w.Raw}
		}
	case "page":
		r = Page(w.Key)
	default:
		return fmt.Errorf("%w: kind %q", errInvalidEntry, w.Kind)
	}
	if w.Scroll != nil && *w.Scroll < 0 {
		return fmt.Errorf("%w: negative scroll offset", errInvalidEntry)
	}
	*e = NavigationEntry{Route: r, Scroll: w.Scroll}
	return nil
}

// EncodeEntry serializes e for storage on a history entry.
func EncodeEntry(e NavigationEntry) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return b
}

// DecodeEntry parses history state. ok is false for empty or invalid state,
// in which case callers fall back to resolving the entry's URL.
func DecodeEntry(state []byte) (NavigationEntry, bool) {
	if len(state) == 0 {
		return NavigationEntry{}, false
	}
	var e NavigationEntry
	if err := json.Unmarshal(state, &e); err != nil {
		return NavigationEntry{}, false
	}
	return e, true
}
