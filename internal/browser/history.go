package browser

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// Entry is one record on the session history stack.
type Entry struct {
	Key   string
	URL   *url.URL
	State []byte
}

// PopStateEvent is delivered when the active entry changes through
// Back, Forward or Go.
type PopStateEvent struct {
	State []byte
	URL   *url.URL
}

// History models window.history: a list of entries with a cursor. Pushing
// discards every entry after the cursor; replacing rewrites the current one.
type History struct {
	mu        sync.Mutex
	entries   []Entry
	index     int
	listeners map[int]func(PopStateEvent)
	nextID    int
}

// NewHistory starts a history with a single stateless entry for u.
func NewHistory(u *url.URL) *History {
	return &History{
		entries:   []Entry{{Key: uuid.NewString(), URL: cloneURL(u)}},
		listeners: map[int]func(PopStateEvent){},
	}
}

// PushState adds an entry after the current one and makes it current.
// A nil u keeps the current URL.
func (h *History) PushState(state []byte, u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if u == nil {
		u = h.entries[h.index].URL
	}
	h.entries = append(h.entries[:h.index+1], Entry{Key: uuid.NewString(), URL: cloneURL(u), State: cloneBytes(state)})
	h.index++
}

// ReplaceState overwrites the current entry's state, and its URL when u is non-nil.
func (h *History) ReplaceState(state []byte, u *url.URL) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur := &h.entries[h.index]
	if u != nil {
		cur.URL = cloneURL(u)
	}
	cur.State = cloneBytes(state)
}

// State returns the current entry's state.
func (h *History) State() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneBytes(h.entries[h.index].State)
}

// URL returns the current entry's URL.
func (h *History) URL() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneURL(h.entries[h.index].URL)
}

// Current returns a copy of the current entry.
func (h *History) Current() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyEntry(h.entries[h.index])
}

// Peek returns the entry delta positions away from the current one.
func (h *History) Peek(delta int) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.index + delta
	if i < 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	return copyEntry(h.entries[i]), true
}

// Len is the number of entries on the stack.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Index is the position of the current entry.
func (h *History) Index() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index
}

// Entries returns a snapshot of the whole stack.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = copyEntry(e)
	}
	return out
}

func (h *History) Back() bool    { return h.Go(-1) }
func (h *History) Forward() bool { return h.Go(1) }

// Go moves the cursor by delta and notifies popstate listeners. It reports
// false, without notifying, when the target is out of range.
func (h *History) Go(delta int) bool {
	h.mu.Lock()
	i := h.index + delta
	if delta == 0 || i < 0 || i >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = i
	ev := PopStateEvent{State: cloneBytes(h.entries[i].State), URL: cloneURL(h.entries[i].URL)}
	fns := make([]func(PopStateEvent), 0, len(h.listeners))
	for id := 0; id < h.nextID; id++ {
		if fn, ok := h.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
	return true
}

// OnPopState registers fn and returns a function removing it.
func (h *History) OnPopState(fn func(PopStateEvent)) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func copyEntry(e Entry) Entry {
	return Entry{Key: e.Key, URL: cloneURL(e.URL), State: cloneBytes(e.State)}
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{Path: "/"}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
