package fragments

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront/internal/source"
)

type countingSource struct {
	inner source.Source
	fail  error
	calls atomic.Int32
}

func (c *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.Fetch(ctx, name)
}

func TestLoadFetchesBothOnce(t *testing.T) {
	src := &countingSource{inner: source.NewFS(fstest.MapFS{
		"includes/header.html": {Data: []byte(`<header><a href="/">Home</a></header>`)},
		"includes/footer.html": {Data: []byte(`<footer>(c) MyStore</footer>`)},
	})}
	l := NewLoader(src, "", "")

	set, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, set.Header, `<a href="/">Home</a>`)
	assert.Contains(t, set.Footer, "MyStore")

	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, src.calls.Load())

	l.Invalidate()
	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, src.calls.Load())
}

func TestMissingFragmentIsEmpty(t *testing.T) {
	src := &countingSource{inner: source.NewFS(fstest.MapFS{
		"parts/top.html": {Data: []byte(`<nav>top</nav>`)},
	})}
	set, err := NewLoader(src, "parts/top.html", "parts/bottom.html").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `<nav>top</nav>`, set.Header)
	assert.Empty(t, set.Footer)
}

func TestFailureIsNotCached(t *testing.T) {
	src := &countingSource{
		inner: source.NewFS(fstest.MapFS{}),
		fail:  errors.New("timeout"),
	}
	l := NewLoader(src, "", "")
	_, err := l.Load(context.Background())
	var le *source.LoadError
	require.ErrorAs(t, err, &le)

	src.fail = nil
	set, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, set.Header)
}
