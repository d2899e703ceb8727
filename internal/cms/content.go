// Package cms resolves the storefront's static pages (about, contact,
// shipping...) from the pages.json document, falling back to markdown files
// with YAML front matter.
package cms

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"finitefield.org/storefront/internal/source"
)

// ErrNotFound is returned when no page exists for a key.
var ErrNotFound = source.ErrNotFound

// Page is a resolved static page ready to render.
type Page struct {
	Key       string
	Heading   string
	Summary   string
	Blocks    []Block
	Body      template.HTML
	Origin    string // "index" or "markdown"
	UpdatedAt time.Time
}

type indexPage struct {
	Heading string  `json:"heading"`
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Content []Block `json:"content"`
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

const (
	defaultIndexName  = "pages.json"
	defaultContentDir = "content/pages"
	defaultCacheTTL   = 5 * time.Minute
)

// Store reads pages through a source. The index document is fetched at
// most once until Invalidate; markdown pages are cached for a TTL.
type Store struct {
	src        source.Source
	indexName  string
	contentDir string
	ttl        time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	index  map[string]indexPage
	loaded bool
	cache  map[string]cacheEntry
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIndex overrides the index document name.
func WithIndex(name string) Option {
	return func(s *Store) {
		if strings.TrimSpace(name) != "" {
			s.indexName = name
		}
	}
}

// WithContentDir overrides the markdown directory.
func WithContentDir(dir string) Option {
	return func(s *Store) {
		if dir = strings.Trim(strings.TrimSpace(dir), "/"); dir != "" {
			s.contentDir = dir
		}
	}
}

// WithCacheDuration overrides the markdown page cache TTL.
func WithCacheDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewStore builds a Store over src.
func NewStore(src source.Source, opts ...Option) *Store {
	s := &Store{
		src:        src,
		indexName:  defaultIndexName,
		contentDir: defaultContentDir,
		ttl:        defaultCacheTTL,
		cache:      map[string]cacheEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get resolves the page for key.
func (s *Store) Get(ctx context.Context, key string) (Page, error) {
	key = sanitizeKey(key)
	if key == "" {
		return Page{}, ErrNotFound
	}
	index, err := s.loadIndex(ctx)
	if err != nil {
		return Page{}, err
	}
	if raw, ok := index[key]; ok {
		return pageFromIndex(key, raw)
	}

	if page, ok := s.cached(key); ok {
		return page, nil
	}
	page, err := s.readMarkdown(ctx, key)
	if err != nil {
		return Page{}, err
	}
	s.store(key, page)
	return page, nil
}

// Keys lists the pages defined in the index document.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Invalidate drops the index and every cached page.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = nil
	s.loaded = false
	s.cache = map[string]cacheEntry{}
}

func (s *Store) loadIndex(ctx context.Context) (map[string]indexPage, error) {
	s.mu.RLock()
	if s.loaded {
		idx := s.index
		s.mu.RUnlock()
		return idx, nil
	}
	s.mu.RUnlock()

	ch := s.group.DoChan(s.indexName, func() (any, error) {
		b, err := s.src.Fetch(context.WithoutCancel(ctx), s.indexName)
		var idx map[string]indexPage
		switch {
		case errors.Is(err, source.ErrNotFound):
			idx = map[string]indexPage{}
		case err != nil:
			return nil, source.Wrap(s.indexName, err)
		default:
			if err := json.Unmarshal(b, &idx); err != nil {
				return nil, source.Wrap(s.indexName, fmt.Errorf("decode: %w", err))
			}
		}
		normalized := make(map[string]indexPage, len(idx))
		for k, v := range idx {
			normalized[sanitizeKey(k)] = v
		}
		s.mu.Lock()
		s.index = normalized
		s.loaded = true
		s.mu.Unlock()
		return normalized, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(map[string]indexPage), nil
	case <-ctx.Done():
		return nil, source.Wrap(s.indexName, ctx.Err())
	}
}

func pageFromIndex(key string, raw indexPage) (Page, error) {
	body, err := RenderBlocks(raw.Content)
	if err != nil {
		return Page{}, source.Wrap(key, err)
	}
	return Page{
		Key:     key,
		Heading: firstNonEmpty(raw.Heading, raw.Title, prettifySlug(key)),
		Summary: strings.TrimSpace(raw.Summary),
		Blocks:  append([]Block(nil), raw.Content...),
		Body:    body,
		Origin:  "index",
	}, nil
}

func (s *Store) readMarkdown(ctx context.Context, key string) (Page, error) {
	name := s.contentDir + "/" + key + ".md"
	data, err := s.src.Fetch(ctx, name)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return Page{}, ErrNotFound
		}
		return Page{}, source.Wrap(name, err)
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, source.Wrap(name, fmt.Errorf("parse front matter: %w", err))
		}
	}
	html, err := RenderMarkdown(body)
	if err != nil {
		return Page{}, source.Wrap(name, err)
	}
	return Page{
		Key:       key,
		Heading:   firstNonEmpty(strings.TrimSpace(front.Title), prettifySlug(key)),
		Summary:   strings.TrimSpace(front.Summary),
		Blocks:    []Block{{Type: BlockMarkdown, Text: body}},
		Body:      html,
		Origin:    "markdown",
		UpdatedAt: parseDate(front.UpdatedAt),
	}, nil
}

func (s *Store) cached(key string) (Page, bool) {
	now := time.Now()
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok || now.After(entry.expires) {
		return Page{}, false
	}
	return entry.page, true
}

func (s *Store) store(key string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{page: page, expires: time.Now().Add(s.ttl)}
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if len(lines) == 0 {
		return "", ""
	}
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func prettifySlug(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return slug
	}
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = asciiUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

// sanitizeKey normalizes a page key and rejects anything that could escape
// the content directory.
func sanitizeKey(key string) string {
	key = strings.TrimSpace(strings.ToLower(key))
	key = strings.Trim(key, "/")
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ""
	}
	return key
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func asciiUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
