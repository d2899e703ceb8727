package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront/internal/source"
)

const productsJSON = `[
  {"id": 1, "name": "Shoe", "brand": "Acme", "price": 2999, "originalPrice": 3999,
   "image": "/img/shoe.jpg", "images": ["/img/shoe.jpg", "/img/shoe-2.jpg"],
   "shortDescription": "Comfy", "shipping": true,
   "colors": [{"name": "Red", "hex": "#f00"}], "sizes": ["40", "41"], "rating": 4.5},
  {"id": 2, "name": "Sock", "price": 499, "image": "/img/sock.jpg", "shipping": "Express", "inStock": false}
]`

// gateSource blocks every fetch until release is closed and counts calls.
type gateSource struct {
	body    []byte
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func newGate(body string) *gateSource {
	return &gateSource{body: []byte(body), release: make(chan struct{})}
}

func (g *gateSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.body, nil
}

func TestGetAllDecodesCatalog(t *testing.T) {
	g := newGate(productsJSON)
	close(g.release)
	s := NewStore(g)

	products, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	shoe := products[0]
	assert.Equal(t, "Shoe", shoe.Name)
	assert.EqualValues(t, 2999, shoe.Price)
	assert.True(t, shoe.OnSale())
	assert.True(t, shoe.Shipping.Free())
	assert.Equal(t, "Free Shipping", shoe.Shipping.Label())
	assert.Equal(t, []string{"/img/shoe.jpg", "/img/shoe-2.jpg"}, shoe.Gallery())
	assert.True(t, shoe.Available())
	require.NotNil(t, shoe.Rating)
	assert.InDelta(t, 4.5, *shoe.Rating, 0.001)

	sock := products[1]
	assert.Equal(t, "express", sock.Shipping.Method)
	assert.Equal(t, "Express Shipping", sock.Shipping.Label())
	assert.False(t, sock.Available())
	assert.False(t, sock.OnSale())

	state, lastErr := s.State()
	assert.Equal(t, StateLoaded, state)
	assert.NoError(t, lastErr)
}

func TestConcurrentGetAllFetchesOnce(t *testing.T) {
	g := newGate(productsJSON)
	s := NewStore(g)

	const callers = 8
	results := make([][]Product, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.GetAll(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, time.Millisecond)
	state, _ := s.State()
	assert.Equal(t, StateLoading, state)
	close(g.release)
	wg.Wait()

	assert.EqualValues(t, 1, g.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
}

func TestFailedLoadIsTypedAndRetried(t *testing.T) {
	g := newGate(productsJSON)
	g.err = errors.New("connection reset")
	close(g.release)
	s := NewStore(g)

	products, err := s.GetAll(context.Background())
	assert.Nil(t, products)
	var le *source.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "products.json", le.Resource)
	state, lastErr := s.State()
	assert.Equal(t, StateFailed, state)
	assert.Error(t, lastErr)

	g.err = nil
	products, err = s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.EqualValues(t, 2, g.calls.Load())
}

func TestMissingOrMalformedDocumentFails(t *testing.T) {
	for name, body := range map[string]string{
		"object":    `{"id": 1}`,
		"null":      `null`,
		"truncated": `[{"id": 1,`,
		"dup":       `[{"id": 1, "name": "a"}, {"id": 1, "name": "b"}]`,
		"shipping":  `[{"id": 1, "shipping": 3}]`,
	} {
		t.Run(name, func(t *testing.T) {
			g := newGate(body)
			close(g.release)
			_, err := NewStore(g).GetAll(context.Background())
			var le *source.LoadError
			assert.ErrorAs(t, err, &le)
		})
	}

	g := newGate("")
	g.err = source.ErrNotFound
	close(g.release)
	_, err := NewStore(g).GetAll(context.Background())
	var le *source.LoadError
	assert.ErrorAs(t, err, &le, "a missing catalog is a load failure, not an empty list")
}

func TestDuplicateIDError(t *testing.T) {
	_, _, err := Decode([]byte(`[{"id": 7}, {"id": 7}]`))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestGetByID(t *testing.T) {
	g := newGate(productsJSON)
	close(g.release)
	s := NewStore(g)

	p, ok, err := s.GetByID(context.Background(), 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sock", p.Name)

	_, ok, err = s.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestWaiterCancellationDoesNotAbortSharedLoad(t *testing.T) {
	g := newGate(productsJSON)
	s := NewStore(g)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.GetAll(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(g.release)
	products, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestInvalidateForcesRefetch(t *testing.T) {
	g := newGate(productsJSON)
	close(g.release)
	s := NewStore(g)
	_, err := s.GetAll(context.Background())
	require.NoError(t, err)

	s.Invalidate()
	state, _ := s.State()
	assert.Equal(t, StateUninitialized, state)
	_, err = s.GetAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, g.calls.Load())
}
