package status

import (
	"context"
	"io"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/source"
)

func newSession(files fstest.MapFS) *session.Session {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return session.New(source.NewFS(files), session.Options{Log: logrus.NewEntry(l)})
}

func TestSummaryOperational(t *testing.T) {
	sess := newSession(fstest.MapFS{
		"products.json":        {Data: []byte(`[{"id":1,"name":"Shoe","price":2999,"image":"/s.jpg"}]`)},
		"pages.json":           {Data: []byte(`{"about":{"heading":"About"}}`)},
		"includes/header.html": {Data: []byte(`<nav></nav>`)},
		"includes/footer.html": {Data: []byte(`<p>footer</p>`)},
	})
	s := NewChecker(sess, 0).Summary(context.Background())
	assert.Equal(t, StateOperational, s.State)
	require.Len(t, s.Components, 3)
	for _, c := range s.Components {
		assert.Equal(t, StateOperational, c.Status, c.Name)
	}
}

func TestSummaryCatalogDown(t *testing.T) {
	sess := newSession(fstest.MapFS{
		"includes/header.html": {Data: []byte(`<nav></nav>`)},
	})
	s := NewChecker(sess, 0).Summary(context.Background())
	assert.Equal(t, StateDown, s.State)
	assert.Equal(t, "catalog", s.Components[0].Name)
	assert.Equal(t, StateDown, s.Components[0].Status)
	assert.NotEmpty(t, s.Components[0].Detail)
	assert.Equal(t, StateDegraded, s.Components[2].Status, "footer missing")
}

func TestSummaryIsCached(t *testing.T) {
	files := fstest.MapFS{
		"products.json": {Data: []byte(`[]`)},
	}
	sess := newSession(files)
	c := NewChecker(sess, time.Minute)
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first := c.Summary(context.Background())
	assert.Equal(t, StateDegraded, first.State)
	assert.Equal(t, "catalog is empty", first.Components[0].Detail)

	first.Components[0].Status = "mutated"
	second := c.Summary(context.Background())
	assert.Equal(t, StateDegraded, second.Components[0].Status, "callers get a copy")
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	now = now.Add(2 * time.Minute)
	third := c.Summary(context.Background())
	assert.True(t, third.UpdatedAt.After(first.UpdatedAt))
}

func TestOverall(t *testing.T) {
	assert.Equal(t, StateDegraded, overall([]Component{{Name: "pages", Status: StateDown}}))
	assert.Equal(t, StateDown, overall([]Component{{Name: "catalog", Status: StateDown}, {Name: "pages", Status: StateDegraded}}))
	assert.Equal(t, StateOperational, overall(nil))
}
