// Package status summarises the health of the documents a storefront
// session reads: the catalog, the pages index and the shared fragments.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"finitefield.org/storefront/internal/session"
)

// Component states.
const (
	StateOperational = "operational"
	StateDegraded    = "degraded"
	StateDown        = "down"
)

// Summary captures the state of every component at one point in time.
type Summary struct {
	State      string      `json:"state"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Components []Component `json:"components"`
}

// Component represents the status of one document set.
type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Checker probes a session and remembers the result for a short while so
// frequent health checks do not hammer the data source.
type Checker struct {
	sess *session.Session
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	cached  Summary
	expires time.Time
}

// NewChecker builds a Checker. ttl <= 0 disables caching.
func NewChecker(sess *session.Session, ttl time.Duration) *Checker {
	return &Checker{sess: sess, ttl: ttl, now: time.Now}
}

// Summary returns the cached summary or probes every component.
func (c *Checker) Summary(ctx context.Context) Summary {
	c.mu.Lock()
	if c.ttl > 0 && c.now().Before(c.expires) {
		s := clone(c.cached)
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	s := c.probe(ctx)

	c.mu.Lock()
	c.cached = s
	c.expires = c.now().Add(c.ttl)
	c.mu.Unlock()
	return clone(s)
}

func (c *Checker) probe(ctx context.Context) Summary {
	comps := make([]Component, 3)
	var wg conc.WaitGroup
	wg.Go(func() {
		comps[0] = Component{Name: "catalog", Status: StateOperational}
		products, err := c.sess.Catalog.GetAll(ctx)
		if err != nil {
			comps[0].Status, comps[0].Detail = StateDown, err.Error()
			return
		}
		if len(products) == 0 {
			comps[0].Status, comps[0].Detail = StateDegraded, "catalog is empty"
		}
	})
	wg.Go(func() {
		comps[1] = Component{Name: "pages", Status: StateOperational}
		if _, err := c.sess.Pages.Keys(ctx); err != nil {
			comps[1].Status, comps[1].Detail = StateDegraded, err.Error()
		}
	})
	wg.Go(func() {
		comps[2] = Component{Name: "fragments", Status: StateOperational}
		set, err := c.sess.Fragments.Load(ctx)
		switch {
		case err != nil:
			comps[2].Status, comps[2].Detail = StateDegraded, err.Error()
		case set.Header == "" || set.Footer == "":
			comps[2].Status, comps[2].Detail = StateDegraded, "header or footer missing"
		}
	})
	wg.Wait()

	return Summary{State: overall(comps), UpdatedAt: c.now().UTC(), Components: comps}
}

// overall is down when the catalog is down, degraded when anything else is
// not operational.
func overall(comps []Component) string {
	state := StateOperational
	for _, comp := range comps {
		switch comp.Status {
		case StateDown:
			if comp.Name == "catalog" {
				return StateDown
			}
			state = StateDegraded
		case StateDegraded:
			state = StateDegraded
		}
	}
	return state
}

func clone(s Summary) Summary {
	out := s
	out.Components = append([]Component(nil), s.Components...)
	return out
}
