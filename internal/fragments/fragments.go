// Package fragments loads the shared header and footer HTML once and keeps
// them for the rest of the session.
package fragments

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"finitefield.org/storefront/internal/source"
)

// Names of the fragment documents relative to the data source.
const (
	DefaultHeader = "includes/header.html"
	DefaultFooter = "includes/footer.html"
)

// Set is the loaded header and footer markup.
type Set struct {
	Header string
	Footer string
}

// Loader fetches fragments through a source and caches the result. The
// fragments are site-owned markup and are spliced in verbatim.
type Loader struct {
	src    source.Source
	header string
	footer string

	mu  sync.Mutex
	set *Set
}

// NewLoader returns a Loader for the given fragment document names. Empty
// names fall back to the defaults.
func NewLoader(src source.Source, header, footer string) *Loader {
	if header == "" {
		header = DefaultHeader
	}
	if footer == "" {
		footer = DefaultFooter
	}
	return &Loader{src: src, header: header, footer: footer}
}

// Load returns the header and footer, fetching both concurrently on the
// first call. A missing fragment is returned as empty markup; any other
// failure is a *source.LoadError and is not cached.
func (l *Loader) Load(ctx context.Context) (Set, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set != nil {
		return *l.set, nil
	}

	var set Set
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		html, err := l.fetch(ctx, l.header)
		set.Header = html
		return err
	})
	p.Go(func(ctx context.Context) error {
		html, err := l.fetch(ctx, l.footer)
		set.Footer = html
		return err
	})
	if err := p.Wait(); err != nil {
		return Set{}, err
	}
	l.set = &set
	return set, nil
}

// Invalidate drops the cached fragments.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.set = nil
	l.mu.Unlock()
}

func (l *Loader) fetch(ctx context.Context, name string) (string, error) {
	b, err := l.src.Fetch(ctx, name)
	if errors.Is(err, source.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", source.Wrap(name, fmt.Errorf("fetch fragment: %w", err))
	}
	return string(b), nil
}
