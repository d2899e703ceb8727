// Package router keeps a browser window's content in step with its URL and
// history. Every navigation writes a history entry first and then renders
// the view its route selects; back and forward re-render from the URL.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finitefield.org/storefront/internal/browser"
	"finitefield.org/storefront/internal/cms"
	"finitefield.org/storefront/internal/route"
	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/view"
)

// Mode selects how Navigate writes history.
type Mode int

const (
	// Push adds an entry and discards any forward entries.
	Push Mode = iota
	// Replace overwrites the current entry.
	Replace
)

func (m Mode) String() string {
	if m == Replace {
		return "replace"
	}
	return "push"
}

// ViewKind names the view a render produced.
type ViewKind int

const (
	ViewNone ViewKind = iota
	ViewGrid
	ViewDetail
	ViewPage
	ViewNotFound
	ViewError
)

func (k ViewKind) String() string {
	switch k {
	case ViewGrid:
		return "grid"
	case ViewDetail:
		return "detail"
	case ViewPage:
		return "page"
	case ViewNotFound:
		return "not_found"
	case ViewError:
		return "error"
	default:
		return "none"
	}
}

// Result describes one render.
type Result struct {
	Route    route.Route
	View     ViewKind
	Fragment view.Fragment
	// Stale is set when a newer render started before this one finished;
	// the document was left untouched.
	Stale bool
	// Err is the data load failure behind an error view, or the reason the
	// render could not produce any view.
	Err error
}

// Router drives one window.
type Router struct {
	session *session.Session
	win     *browser.Window
	views   *view.Renderer
	links   *LinkInterceptor
	scheme  route.Scheme
	log     *logrus.Entry

	seq atomic.Uint64

	mu       sync.Mutex
	ctx      context.Context
	last     Result
	stopPop  func()
	menuBtns map[*browser.Element]browser.ListenerID

	renders metric.Int64Counter
}

// Option configures a Router.
type Option func(*Router)

// WithScheme overrides the URL scheme.
func WithScheme(s route.Scheme) Option {
	return func(r *Router) { r.scheme = s }
}

// WithLogger overrides the session logger.
func WithLogger(l *logrus.Entry) Option {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// New builds a Router for win. Call Start to load the shared fragments,
// subscribe to popstate and render the initial route.
func New(s *session.Session, win *browser.Window, views *view.Renderer, opts ...Option) *Router {
	r := &Router{
		session:  s,
		win:      win,
		views:    views,
		scheme:   route.Default,
		log:      s.Log,
		ctx:      context.Background(),
		menuBtns: map[*browser.Element]browser.ListenerID{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField("component", "router")
	r.links = NewLinkInterceptor(r.onLinkClick)
	if c, err := otel.Meter("storefront/router").Int64Counter("storefront_router_renders",
		metric.WithDescription("Completed view renders"),
		metric.WithUnit("{render}")); err == nil {
		r.renders = c
	}
	return r
}

// Window returns the driven window.
func (r *Router) Window() *browser.Window { return r.win }

// Links returns the link interceptor.
func (r *Router) Links() *LinkInterceptor { return r.links }

// Last returns the most recent non-stale render.
func (r *Router) Last() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Start prepares the window and renders the route of its current URL. ctx
// is also used for navigations triggered later by clicks and popstate.
func (r *Router) Start(ctx context.Context) Result {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.installFragments(ctx)

	r.mu.Lock()
	if r.stopPop == nil {
		r.stopPop = r.win.History.OnPopState(func(ev browser.PopStateEvent) {
			r.OnPopState(r.baseContext(), ev)
		})
	}
	r.mu.Unlock()

	rt := r.scheme.Resolve(r.win.Location())
	entry := route.NewEntry(rt)
	// a reload keeps the scroll offset saved on the entry
	if prev, ok := route.DecodeEntry(r.win.History.State()); ok && prev.Route == rt {
		if y, ok := prev.ScrollOffset(); ok {
			entry = entry.WithScroll(y)
		}
	}
	r.win.History.ReplaceState(route.EncodeEntry(entry), nil)
	return r.Render(ctx, rt)
}

// Stop detaches the router from the window's history and links.
func (r *Router) Stop() {
	r.mu.Lock()
	stop := r.stopPop
	r.stopPop = nil
	for el, id := range r.menuBtns {
		el.RemoveEventListener("click", id)
	}
	r.menuBtns = map[*browser.Element]browser.ListenerID{}
	r.mu.Unlock()
	if stop != nil {
		stop()
	}
	r.links.Unbind()
}

// Navigate moves to href, resolved against the current URL. The history
// entry is written before rendering; the render finishes before Navigate
// returns.
func (r *Router) Navigate(ctx context.Context, href string, mode Mode) Result {
	target, err := r.win.Location().Parse(href)
	if err != nil {
		r.log.WithError(err).WithField("href", href).Warn("navigate: bad href")
		return Result{Err: fmt.Errorf("router: parse href %q: %w", href, err)}
	}
	dest := &url.URL{Path: target.Path, RawPath: target.RawPath, RawQuery: target.RawQuery, Fragment: target.Fragment}
	if dest.Path == "" {
		dest.Path = "/"
	}
	rt := r.scheme.Resolve(dest)
	state := route.EncodeEntry(route.NewEntry(rt))
	switch mode {
	case Replace:
		r.win.History.ReplaceState(state, dest)
	default:
		r.win.History.PushState(state, dest)
	}
	r.log.WithFields(logrus.Fields{"route": rt.String(), "mode": mode.String()}).Debug("navigate")
	return r.Render(ctx, rt)
}

// OnPopState renders the entry the history moved to. History is not
// written; the route comes from the URL and only the scroll offset from the
// entry state.
func (r *Router) OnPopState(ctx context.Context, ev browser.PopStateEvent) Result {
	rt := r.scheme.Resolve(ev.URL)
	return r.render(ctx, rt, ev.State)
}

// Render shows the view for rt using the current entry's state.
func (r *Router) Render(ctx context.Context, rt route.Route) Result {
	return r.render(ctx, rt, r.win.History.State())
}

func (r *Router) render(ctx context.Context, rt route.Route, state []byte) (res Result) {
	token := r.seq.Add(1)
	log := r.log.WithField("route", rt.String())

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("render panicked")
			res = Result{Route: rt, Err: fmt.Errorf("router: render %s: %v", rt, rec)}
		}
	}()

	r.session.Spinner.Show()
	defer r.session.Spinner.Hide()
	frag, kind, loadErr := r.build(ctx, rt)

	if r.seq.Load() != token {
		log.Debug("discarding stale render")
		return Result{Route: rt, View: kind, Stale: true, Err: loadErr}
	}
	res = Result{Route: rt, View: kind, Fragment: frag, Err: loadErr}
	if kind == ViewNone {
		log.WithError(loadErr).Error("render failed")
		return res
	}
	if err := r.win.Document.SetRegion(browser.RegionContent, frag.String()); err != nil {
		log.WithError(err).Error("replace content")
		res.Err = errors.Join(loadErr, err)
		return res
	}

	y := 0
	if rt.Kind == route.Home {
		if entry, ok := route.DecodeEntry(state); ok && entry.Route.Kind == route.Home {
			y, _ = entry.ScrollOffset()
		}
	}
	r.win.ScrollTo(y)

	r.links.Bind(r.win.Document)

	if r.renders != nil {
		r.renders.Add(ctx, 1, metric.WithAttributes(attribute.String("view", kind.String())))
	}
	if loadErr != nil {
		log.WithError(loadErr).Warn("rendered load failure")
	} else {
		log.WithField("view", kind.String()).Debug("rendered")
	}

	r.mu.Lock()
	r.last = res
	r.mu.Unlock()
	return res
}

// build loads what rt needs and renders it. A load failure becomes the
// error view; ViewNone means no view could be rendered at all.
func (r *Router) build(ctx context.Context, rt route.Route) (view.Fragment, ViewKind, error) {
	switch rt.Kind {
	case route.ProductDetail:
		if !rt.Valid {
			return r.notFound(rt)
		}
		p, ok, err := r.session.Catalog.GetByID(ctx, rt.ID)
		if err != nil {
			return r.failed(rt, err)
		}
		if !ok {
			return r.notFound(rt)
		}
		f, err := r.views.Detail(p)
		return r.viewOrNone(f, ViewDetail, err)

	case route.StaticPage:
		page, err := r.session.Pages.Get(ctx, rt.Key)
		if errors.Is(err, cms.ErrNotFound) {
			return r.notFound(rt)
		}
		if err != nil {
			return r.failed(rt, err)
		}
		f, err := r.views.Page(page)
		return r.viewOrNone(f, ViewPage, err)

	default:
		products, err := r.session.Catalog.GetAll(ctx)
		if err != nil {
			return r.failed(rt, err)
		}
		f, err := r.views.Grid(products)
		return r.viewOrNone(f, ViewGrid, err)
	}
}

func (r *Router) notFound(rt route.Route) (view.Fragment, ViewKind, error) {
	f, err := r.views.NotFound(rt)
	if err != nil {
		return view.Fragment{}, ViewNone, err
	}
	return f, ViewNotFound, nil
}

func (r *Router) failed(rt route.Route, cause error) (view.Fragment, ViewKind, error) {
	f, err := r.views.Error(rt, cause)
	if err != nil {
		return view.Fragment{}, ViewNone, errors.Join(cause, err)
	}
	return f, ViewError, cause
}

func (r *Router) viewOrNone(f view.Fragment, kind ViewKind, err error) (view.Fragment, ViewKind, error) {
	if err != nil {
		return view.Fragment{}, ViewNone, err
	}
	return f, kind, nil
}

// installFragments splices the shared header and footer into empty regions
// and wires the mobile menu toggle.
func (r *Router) installFragments(ctx context.Context) {
	set, err := r.session.Fragments.Load(ctx)
	if err != nil {
		r.log.WithError(err).Warn("shared fragments unavailable")
	}
	doc := r.win.Document
	if !doc.Has(browser.RegionHeader) {
		if err := doc.SetRegion(browser.RegionHeader, set.Header); err != nil {
			r.log.WithError(err).Warn("install header")
		}
	}
	if !doc.Has(browser.RegionFooter) {
		if err := doc.SetRegion(browser.RegionFooter, set.Footer); err != nil {
			r.log.WithError(err).Warn("install footer")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, el := range doc.Query(`[data-action="menu"]`) {
		if _, ok := r.menuBtns[el]; ok {
			continue
		}
		r.menuBtns[el] = el.AddEventListener("click", func(ev *browser.Event) {
			ev.PreventDefault()
			r.win.ToggleMenu()
		})
	}
}

func (r *Router) baseContext() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx
}
