package router

import (
	"strings"
	"sync"

	"finitefield.org/storefront/internal/browser"
	"finitefield.org/storefront/internal/route"
)

// Prefixes of internal paths that are not views and keep their default
// browser behavior.
var passthrough = []string{"/assets/", "/data/", "/includes/", "/healthz"}

// LinkInterceptor attaches one click handler to every internal anchor of a
// document. Binding again after a render is safe: an anchor that already
// carries the handler gets it replaced, never duplicated.
type LinkInterceptor struct {
	onClick func(*browser.Event)

	mu    sync.Mutex
	bound map[*browser.Element]browser.ListenerID
}

// NewLinkInterceptor returns an interceptor that calls onClick for clicks
// on internal links.
func NewLinkInterceptor(onClick func(*browser.Event)) *LinkInterceptor {
	return &LinkInterceptor{onClick: onClick, bound: map[*browser.Element]browser.ListenerID{}}
}

// Bind intercepts every internal link of doc and forgets the elements that
// are no longer part of it. It returns the number of bound links.
func (li *LinkInterceptor) Bind(doc *browser.Document) int {
	li.mu.Lock()
	defer li.mu.Unlock()

	for el := range li.bound {
		if !el.Attached() {
			delete(li.bound, el)
		}
	}
	for _, el := range doc.Links() {
		if !Internal(el) {
			continue
		}
		if id, ok := li.bound[el]; ok {
			el.RemoveEventListener("click", id)
		}
		li.bound[el] = el.AddEventListener("click", li.onClick)
	}
	return len(li.bound)
}

// Unbind removes every handler the interceptor attached.
func (li *LinkInterceptor) Unbind() {
	li.mu.Lock()
	defer li.mu.Unlock()
	for el, id := range li.bound {
		el.RemoveEventListener("click", id)
	}
	li.bound = map[*browser.Element]browser.ListenerID{}
}

// Bound returns how many elements currently carry the handler.
func (li *LinkInterceptor) Bound() int {
	li.mu.Lock()
	defer li.mu.Unlock()
	return len(li.bound)
}

// Internal reports whether el is a same-origin link to a view: a root
// relative href that is not protocol relative, opens in the same window,
// is not a download and is not marked external.
func Internal(el *browser.Element) bool {
	if el == nil || el.Tag != "a" {
		return false
	}
	href := strings.TrimSpace(el.Attr("href"))
	if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") || strings.HasPrefix(href, `/\`) {
		return false
	}
	if el.HasAttr("download") {
		return false
	}
	if t := el.Attr("target"); t != "" && !strings.EqualFold(t, "_self") {
		return false
	}
	for _, rel := range strings.Fields(el.Attr("rel")) {
		if strings.EqualFold(rel, "external") {
			return false
		}
	}
	for _, p := range passthrough {
		if strings.HasPrefix(href, p) {
			return false
		}
	}
	return true
}

// onLinkClick runs for every intercepted click.
func (r *Router) onLinkClick(ev *browser.Event) {
	el := ev.Target
	if el == nil {
		return
	}
	ev.PreventDefault()
	r.win.CloseMenu()
	r.saveScroll()

	ctx := r.baseContext()
	href := el.Attr("href")
	switch el.Attr("data-nav") {
	case "replace":
		r.Navigate(ctx, href, Replace)
	case "back":
		r.back(href)
	default:
		r.Navigate(ctx, href, Push)
	}
}

// saveScroll records the grid's scroll offset on the current entry so that
// returning to it restores the position.
func (r *Router) saveScroll() {
	rt := r.scheme.Resolve(r.win.Location())
	if rt.Kind != route.Home {
		return
	}
	entry := route.NewEntry(rt).WithScroll(r.win.ScrollY())
	r.win.History.ReplaceState(route.EncodeEntry(entry), nil)
}

// back returns to the previous entry when it shows the same route as href,
// and replaces the current entry otherwise. Either way the stack does not
// grow.
func (r *Router) back(href string) {
	target, err := r.win.Location().Parse(href)
	if err == nil {
		if prev, ok := r.win.History.Peek(-1); ok && r.scheme.Resolve(prev.URL) == r.scheme.Resolve(target) {
			r.win.History.Back()
			return
		}
	}
	r.Navigate(r.baseContext(), href, Replace)
}
