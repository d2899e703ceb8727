package browser

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// ListenerID identifies a registered event listener.
type ListenerID uint64

// Event is a DOM-style event dispatched to an element's listeners.
type Event struct {
	Type   string
	Target *Element

	defaultPrevented bool
}

// PreventDefault cancels the browser's default action (following a link).
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

type listener struct {
	id ListenerID
	fn func(*Event)
}

// Element is an interactive node of a document region.
type Element struct {
	Tag  string
	Text string

	attrs  map[string]string
	doc    *Document
	region string
	gen    uint64

	mu        sync.Mutex
	listeners map[string][]listener
}

func newElement(d *Document, regionName string, gen uint64, n *html.Node) *Element {
	el := &Element{
		Tag:       n.Data,
		attrs:     make(map[string]string, len(n.Attr)),
		doc:       d,
		region:    regionName,
		gen:       gen,
		listeners: map[string][]listener{},
	}
	for _, a := range n.Attr {
		el.attrs[a.Key] = a.Val
	}
	el.Text = strings.Join(strings.Fields(nodeText(n)), " ")
	return el
}

// Attr returns the attribute value, or "" when absent.
func (el *Element) Attr(name string) string { return el.attrs[name] }

// HasAttr reports whether the attribute is present.
func (el *Element) HasAttr(name string) bool {
	_, ok := el.attrs[name]
	return ok
}

// Region is the name of the region the element belongs to.
func (el *Element) Region() string { return el.region }

// Attached reports whether the element is still part of its document, i.e.
// its region has not been replaced since the element was created.
func (el *Element) Attached() bool { return el.doc.attached(el) }

// AddEventListener registers fn for events of type typ.
func (el *Element) AddEventListener(typ string, fn func(*Event)) ListenerID {
	id := el.doc.listenerID()
	el.mu.Lock()
	el.listeners[typ] = append(el.listeners[typ], listener{id: id, fn: fn})
	el.mu.Unlock()
	return id
}

// RemoveEventListener unregisters a listener. Unknown ids are ignored.
func (el *Element) RemoveEventListener(typ string, id ListenerID) {
	el.mu.Lock()
	defer el.mu.Unlock()
	ls := el.listeners[typ]
	for i, l := range ls {
		if l.id == id {
			el.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of listeners registered for typ.
func (el *Element) ListenerCount(typ string) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.listeners[typ])
}

// Dispatch invokes the listeners registered for ev.Type in registration order.
func (el *Element) Dispatch(ev *Event) {
	el.mu.Lock()
	ls := append([]listener(nil), el.listeners[ev.Type]...)
	el.mu.Unlock()
	if ev.Target == nil {
		ev.Target = el
	}
	for _, l := range ls {
		l.fn(ev)
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
