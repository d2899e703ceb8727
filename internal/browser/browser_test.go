package browser

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHistoryPushDiscardsForwardEntries(t *testing.T) {
	h := NewHistory(mustURL(t, "/"))
	h.PushState([]byte(`a`), mustURL(t, "/?id=1"))
	h.PushState([]byte(`b`), mustURL(t, "/?id=2"))
	require.True(t, h.Back())
	require.True(t, h.Back())
	assert.Equal(t, 0, h.Index())

	h.PushState([]byte(`c`), mustURL(t, "/?page=about"))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, "/?page=about", h.URL().String())
	assert.False(t, h.Forward(), "forward entries must be discarded by push")
}

func TestHistoryReplaceKeepsLength(t *testing.T) {
	h := NewHistory(mustURL(t, "/?id=1"))
	first := h.Current().Key
	h.ReplaceState([]byte(`x`), mustURL(t, "/"))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "/", h.URL().String())
	assert.Equal(t, []byte(`x`), h.State())
	assert.Equal(t, first, h.Current().Key)

	h.ReplaceState([]byte(`y`), nil)
	assert.Equal(t, "/", h.URL().String(), "nil url keeps the current one")
}

func TestHistoryGoNotifiesListeners(t *testing.T) {
	h := NewHistory(mustURL(t, "/"))
	h.PushState([]byte(`p`), mustURL(t, "/?id=3"))

	var got []PopStateEvent
	remove := h.OnPopState(func(ev PopStateEvent) { got = append(got, ev) })

	require.True(t, h.Back())
	require.Len(t, got, 1)
	assert.Equal(t, "/", got[0].URL.String())
	assert.Nil(t, got[0].State)

	remove()
	require.True(t, h.Forward())
	assert.Len(t, got, 1, "removed listener must not fire")

	assert.False(t, h.Go(5))
	assert.False(t, h.Go(0))
}

func TestHistoryReturnsCopies(t *testing.T) {
	h := NewHistory(mustURL(t, "/"))
	u := h.URL()
	u.Path = "/mutated"
	assert.Equal(t, "/", h.URL().Path)
}

func TestDocumentRegionsAndElements(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.SetRegion(RegionFooter, `<a href="/?page=about">About</a>`))
	require.NoError(t, d.SetRegion(RegionContent, `<div><a href="/?id=1">Shoe</a><button data-action="noop">Go</button></div>`))
	require.NoError(t, d.SetRegion(RegionHeader, `<nav><a href="/">Home</a><a href="https://example.com">Ext</a></nav>`))

	links := d.Links()
	require.Len(t, links, 4)
	assert.Equal(t, "/", links[0].Attr("href"))
	assert.Equal(t, RegionHeader, links[0].Region())
	assert.Equal(t, "/?id=1", links[2].Attr("href"))
	assert.Equal(t, "Shoe", links[2].Text)
	assert.Equal(t, "/?page=about", links[3].Attr("href"))

	buttons := d.Query("button")
	require.Len(t, buttons, 1)
	assert.Equal(t, "noop", buttons[0].Attr("data-action"))
	assert.Contains(t, d.Text(RegionContent), "Shoe Go")
}

func TestReplacingRegionDetachesElements(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.SetRegion(RegionContent, `<a href="/?id=1">one</a>`))
	old := d.Links()[0]
	require.True(t, old.Attached())

	require.NoError(t, d.SetRegion(RegionContent, `<a href="/?id=1">one</a>`))
	assert.False(t, old.Attached())
	assert.True(t, d.Links()[0].Attached())
	assert.NotSame(t, old, d.Links()[0])
	assert.EqualValues(t, 1, d.Generation(RegionContent))
}

func TestElementListeners(t *testing.T) {
	d := NewDocument()
	require.NoError(t, d.SetRegion(RegionContent, `<a href="/x">x</a>`))
	el := d.Links()[0]

	calls := 0
	id := el.AddEventListener("click", func(ev *Event) {
		calls++
		ev.PreventDefault()
	})
	assert.Equal(t, 1, el.ListenerCount("click"))

	ev := d.Click(el)
	assert.True(t, ev.DefaultPrevented())
	assert.Equal(t, 1, calls)

	el.RemoveEventListener("click", id)
	el.RemoveEventListener("click", id)
	assert.Equal(t, 0, el.ListenerCount("click"))
	assert.False(t, d.Click(el).DefaultPrevented())
	assert.Equal(t, 1, calls)
}

func TestWindowScrollAndMenu(t *testing.T) {
	w, err := NewWindow("?id=2")
	require.NoError(t, err)
	assert.Equal(t, "/", w.Location().Path)
	assert.Equal(t, "2", w.Location().Query().Get("id"))

	w.ScrollTo(-4)
	assert.Equal(t, 0, w.ScrollY())
	w.ScrollTo(420)
	assert.Equal(t, 420, w.ScrollY())

	w.ToggleMenu()
	assert.True(t, w.MenuOpen())
	w.CloseMenu()
	assert.False(t, w.MenuOpen())
}
