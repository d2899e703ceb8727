// Package session holds the collaborators shared by every router in a
// storefront process.
package session

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/cms"
	"finitefield.org/storefront/internal/fragments"
	"finitefield.org/storefront/internal/source"
)

// Spinner is toggled around data loads.
type Spinner interface {
	Show()
	Hide()
}

// Counter is a Spinner that tracks how many loads are in progress.
type Counter struct {
	active atomic.Int64
	shown  atomic.Int64
}

func (c *Counter) Show() {
	c.active.Add(1)
	c.shown.Add(1)
}

func (c *Counter) Hide() {
	if c.active.Add(-1) < 0 {
		c.active.Store(0)
	}
}

// Visible reports whether any load still has the spinner up.
func (c *Counter) Visible() bool { return c.active.Load() > 0 }

// Shown returns how many times the spinner was raised.
func (c *Counter) Shown() int64 { return c.shown.Load() }

// Options configures New.
type Options struct {
	CatalogDocument string
	PagesIndex      string
	ContentDir      string
	Header          string
	Footer          string
	Timeout         time.Duration
	PagesTTL        time.Duration
	Currency        string
	Spinner         Spinner
	Log             *logrus.Entry
}

// Session owns the caches and toggles one storefront process works with.
type Session struct {
	Catalog   *catalog.Store
	Pages     *cms.Store
	Fragments *fragments.Loader
	Spinner   Spinner
	Log       *logrus.Entry
	Currency  string
}

// New builds a Session reading every document through src.
func New(src source.Source, opts Options) *Session {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	spinner := opts.Spinner
	if spinner == nil {
		spinner = &Counter{}
	}
	currency := opts.Currency
	if currency == "" {
		currency = "USD"
	}

	pageOpts := []cms.Option{}
	if opts.PagesIndex != "" {
		pageOpts = append(pageOpts, cms.WithIndex(opts.PagesIndex))
	}
	if opts.ContentDir != "" {
		pageOpts = append(pageOpts, cms.WithContentDir(opts.ContentDir))
	}
	if opts.PagesTTL > 0 {
		pageOpts = append(pageOpts, cms.WithCacheDuration(opts.PagesTTL))
	}

	return &Session{
		Catalog: catalog.NewStore(src,
			catalog.WithDocument(opts.CatalogDocument),
			catalog.WithTimeout(opts.Timeout)),
		Pages:     cms.NewStore(src, pageOpts...),
		Fragments: fragments.NewLoader(src, opts.Header, opts.Footer),
		Spinner:   spinner,
		Log:       log,
		Currency:  currency,
	}
}

// Invalidate drops every cached document so the next read fetches again.
func (s *Session) Invalidate() {
	s.Catalog.Invalidate()
	s.Pages.Invalidate()
	s.Fragments.Invalidate()
	s.Log.Info("session caches invalidated")
}
