// Package catalog loads the product list once per session and serves
// lookups from memory.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"finitefield.org/storefront/internal/source"
)

// ErrDuplicateID reports a catalog document that reuses a product id.
var ErrDuplicateID = errors.New("catalog: duplicate product id")

// State is the lifecycle of the cached catalog.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	defaultDocument = "products.json"
	defaultTimeout  = 10 * time.Second
	flightKey       = "catalog"
)

// Store is the session-wide catalog cache. Concurrent callers that arrive
// while a load is in flight wait for that load instead of starting another.
// A failed load is not cached; the next call tries again.
type Store struct {
	src      source.Source
	document string
	timeout  time.Duration

	group singleflight.Group

	mu       sync.RWMutex
	state    State
	products []Product
	index    map[int64]int
	lastErr  error

	fetches   metric.Int64Counter
	cacheHits metric.Int64Counter
}

// Option configures a Store.
type Option func(*Store)

// WithDocument overrides the catalog document name.
func WithDocument(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.document = name
		}
	}
}

// WithTimeout bounds a single catalog fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewStore builds a Store reading from src.
func NewStore(src source.Source, opts ...Option) *Store {
	s := &Store{src: src, document: defaultDocument, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	meter := otel.Meter("storefront/catalog")
	if c, err := meter.Int64Counter("storefront_catalog_fetches",
		metric.WithDescription("Catalog document fetches"),
		metric.WithUnit("{request}")); err == nil {
		s.fetches = c
	}
	if c, err := meter.Int64Counter("storefront_catalog_cache_hits",
		metric.WithDescription("Catalog reads served from memory"),
		metric.WithUnit("{request}")); err == nil {
		s.cacheHits = c
	}
	return s
}

// State returns the current lifecycle state and the last load error.
func (s *Store) State() (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.lastErr
}

// GetAll returns the full product list, loading it on first use. The
// returned slice is a copy.
func (s *Store) GetAll(ctx context.Context) ([]Product, error) {
	if products, ok := s.cached(); ok {
		s.count(ctx, s.cacheHits)
		return products, nil
	}

	ch := s.group.DoChan(flightKey, func() (any, error) {
		// the load is shared, so one caller giving up must not cancel it
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return nil, s.load(loadCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	case <-ctx.Done():
		return nil, source.Wrap(s.document, ctx.Err())
	}
	products, ok := s.cached()
	if !ok {
		// invalidated between load and read; report it as a failed load
		return nil, source.Wrap(s.document, errors.New("catalog invalidated during load"))
	}
	return products, nil
}

// GetByID looks id up in the cached catalog. ok is false when the catalog
// loaded but has no such product.
func (s *Store) GetByID(ctx context.Context, id int64) (Product, bool, error) {
	if _, err := s.GetAll(ctx); err != nil {
		return Product{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Product{}, false, nil
	}
	return s.products[i], true, nil
}

// Invalidate forgets the cached catalog so the next read fetches again.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUninitialized
	s.products = nil
	s.index = nil
	s.lastErr = nil
}

func (s *Store) cached() ([]Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateLoaded {
		return nil, false
	}
	return append([]Product(nil), s.products...), true
}

func (s *Store) load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateLoaded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	s.count(ctx, s.fetches)
	products, index, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		return err
	}
	s.state = StateLoaded
	s.products = products
	s.index = index
	s.lastErr = nil
	return nil
}

func (s *Store) fetch(ctx context.Context) ([]Product, map[int64]int, error) {
	b, err := s.src.Fetch(ctx, s.document)
	if err != nil {
		// a missing catalog document is a load failure, not an empty shop
		return nil, nil, source.Wrap(s.document, err)
	}
	products, index, err := Decode(b)
	if err != nil {
		return nil, nil, source.Wrap(s.document, err)
	}
	return products, index, nil
}

// Decode parses a catalog document and indexes it by id.
func Decode(b []byte) ([]Product, map[int64]int, error) {
	if trimmed := bytes.TrimSpace(b); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil, errors.New("decode catalog: document is not an array")
	}
	var products []Product
	if err := json.Unmarshal(b, &products); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}
	index := make(map[int64]int, len(products))
	for i, p := range products {
		if _, dup := index[p.ID]; dup {
			return nil, nil, fmt.Errorf("%w: %d", ErrDuplicateID, p.ID)
		}
		index[p.ID] = i
	}
	return products, index, nil
}

func (s *Store) count(ctx context.Context, c metric.Int64Counter) {
	if c == nil {
		return
	}
	c.Add(ctx, 1)
}
