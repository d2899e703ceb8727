package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resty.dev/v3"
)

// HTTP fetches documents relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *resty.Client
}

// NewHTTP builds an HTTP source. A zero timeout defaults to 10s.
func NewHTTP(baseURL string, timeout time.Duration) (*HTTP, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("source: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("source: unsupported base url scheme %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json, text/html;q=0.9, */*;q=0.8").
		SetHeader("User-Agent", "storefront/1")
	return &HTTP{base: base, client: client}, nil
}

// Close releases idle connections held by the client.
func (h *HTTP) Close() error { return h.client.Close() }

func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	clean, ok := cleanName(name)
	if !ok {
		return nil, ErrNotFound
	}
	target := h.base.ResolveReference(&url.URL{Path: clean})
	resp, err := h.client.R().
		SetContext(ctx).
		Get(target.String())
	if err != nil {
		return nil, &LoadError{Resource: name, Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode() >= 400:
		return nil, &LoadError{Resource: name, Err: fmt.Errorf("status %d", resp.StatusCode())}
	}
	return []byte(resp.String()), nil
}
