// Package browser is an in-process model of the pieces of a browser window
// the storefront router drives: a document split into regions, the session
// history stack, the viewport scroll offset and the mobile navigation menu.
package browser

import (
	"fmt"
	"net/url"
	"sync"
)

// Window ties a document to its history and viewport.
type Window struct {
	Document *Document
	History  *History

	mu       sync.Mutex
	scrollY  int
	menuOpen bool
}

// NewWindow opens a window at rawURL, which may be a path such as "/?id=1".
func NewWindow(rawURL string) (*Window, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser: parse url: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Window{Document: NewDocument(), History: NewHistory(u)}, nil
}

// Location is the URL of the current history entry.
func (w *Window) Location() *url.URL { return w.History.URL() }

func (w *Window) ScrollY() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scrollY
}

// ScrollTo sets the vertical scroll offset. Negative offsets clamp to 0.
func (w *Window) ScrollTo(y int) {
	if y < 0 {
		y = 0
	}
	w.mu.Lock()
	w.scrollY = y
	w.mu.Unlock()
}

func (w *Window) MenuOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.menuOpen
}

func (w *Window) ToggleMenu() {
	w.mu.Lock()
	w.menuOpen = !w.menuOpen
	w.mu.Unlock()
}

func (w *Window) CloseMenu() {
	w.mu.Lock()
	w.menuOpen = false
	w.mu.Unlock()
}
