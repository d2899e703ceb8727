// Package handlers serves storefront views over HTTP. Each request drives a
// fresh window through the client router, so a full page load and an htmx
// partial show exactly what in-page navigation would show.
package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"finitefield.org/storefront/internal/browser"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/nav"
	"finitefield.org/storefront/internal/route"
	"finitefield.org/storefront/internal/router"
	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/status"
	"finitefield.org/storefront/internal/view"
)

// Storefront renders routed views as full pages or htmx partials.
type Storefront struct {
	sess    *session.Session
	views   *view.Renderer
	checker *status.Checker
	scheme  route.Scheme
	lang    string
	log     *logrus.Entry
}

// Option configures a Storefront.
type Option func(*Storefront)

// WithLang sets the html lang attribute of full pages.
func WithLang(lang string) Option {
	return func(h *Storefront) { h.lang = lang }
}

// WithScheme overrides the URL scheme.
func WithScheme(s route.Scheme) Option {
	return func(h *Storefront) { h.scheme = s }
}

// WithChecker serves checker's summary at Status.
func WithChecker(c *status.Checker) Option {
	return func(h *Storefront) { h.checker = c }
}

func New(sess *session.Session, views *view.Renderer, opts ...Option) *Storefront {
	h := &Storefront{
		sess:   sess,
		views:  views,
		scheme: route.Default,
		lang:   "en",
		log:    sess.Log.WithField("component", "handlers"),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.checker == nil {
		h.checker = status.NewChecker(sess, 0)
	}
	return h
}

// StatusCode maps a render to the status of a full page response.
func StatusCode(res router.Result) int {
	switch res.View {
	case router.ViewNotFound:
		return http.StatusNotFound
	case router.ViewError:
		return http.StatusServiceUnavailable
	case router.ViewNone:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// View renders the route of the request URL.
func (h *Storefront) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	win, err := browser.NewWindow(r.URL.RequestURI())
	if err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "bad request url")
		return
	}
	log := h.log
	if id, ok := mw.RequestID(ctx); ok {
		log = log.WithField("request_id", id)
	}
	rt := router.New(h.sess, win, h.views, router.WithScheme(h.scheme), router.WithLogger(log))
	defer rt.Stop()

	res := rt.Start(ctx)
	if res.View == router.ViewNone {
		log.WithError(res.Err).Error("render produced no view")
		mw.WriteError(w, r, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if mw.IsHTMX(ctx) {
		// htmx only swaps 2xx responses, so partials always succeed
		w.Header().Set("HX-Push-Url", h.scheme.URL(res.Route))
		if title := res.Fragment.Meta.Title; title != "" {
			w.Header().Set("HX-Trigger", triggerTitle(title))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(win.Document.HTML(browser.RegionContent)))
		return
	}

	var buf bytes.Buffer
	err = h.views.Layout(&buf, view.LayoutData{
		Lang:    h.lang,
		Meta:    res.Fragment.Meta,
		Nav:     nav.Build(res.Route),
		Header:  template.HTML(win.Document.HTML(browser.RegionHeader)),
		Content: template.HTML(win.Document.HTML(browser.RegionContent)),
		Footer:  template.HTML(win.Document.HTML(browser.RegionFooter)),
	})
	if err != nil {
		log.WithError(err).Error("layout render failed")
		mw.WriteError(w, r, http.StatusInternalServerError, "render failed")
		return
	}
	w.WriteHeader(StatusCode(res))
	_, _ = buf.WriteTo(w)
}

func triggerTitle(title string) string {
	b, err := json.Marshal(map[string]string{"storefront:title": title})
	if err != nil {
		return ""
	}
	return string(b)
}

// Health reports liveness.
func (h *Storefront) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Status reports the state of the session's documents as JSON. The
// response is 503 while the catalog cannot be loaded.
func (h *Storefront) Status(w http.ResponseWriter, r *http.Request) {
	s := h.checker.Summary(r.Context())
	code := http.StatusOK
	if s.State == status.StateDown {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(s)
}

// NotFound answers paths no route is mounted for.
func (h *Storefront) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/assets/") || mw.IsHTMX(r.Context()) {
		mw.WriteError(w, r, http.StatusNotFound, "not found")
		return
	}
	http.NotFound(w, r)
}
