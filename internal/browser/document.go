package browser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Well-known region names. The header and footer hold the shared fragments;
// content holds whatever view the router rendered last.
const (
	RegionHeader  = "header"
	RegionContent = "content"
	RegionFooter  = "footer"
)

var regionOrder = map[string]int{RegionHeader: 0, RegionContent: 1, RegionFooter: 2}

// Document is a page split into named regions. Replacing a region's markup
// discards its elements along with any listeners bound to them, the same
// way assigning innerHTML does.
type Document struct {
	mu      sync.Mutex
	regions map[string]*region
	nextID  ListenerID
}

type region struct {
	name     string
	gen      uint64
	markup   string
	doc      *goquery.Document
	elements []*Element
	byNode   map[*html.Node]*Element
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{regions: map[string]*region{}}
}

// SetRegion parses markup and installs it as the region's new subtree.
func (d *Document) SetRegion(name, markup string) error {
	gq, err := parseFragment(markup)
	if err != nil {
		return fmt.Errorf("browser: parse %s: %w", name, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.regions[name]
	r := &region{name: name, doc: gq, byNode: map[*html.Node]*Element{}}
	if prev != nil {
		r.gen = prev.gen + 1
	}
	r.markup = renderNodes(gq)

	gq.Find("a[href], button, [data-action]").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		el := newElement(d, name, r.gen, n)
		r.elements = append(r.elements, el)
		r.byNode[n] = el
	})
	d.regions[name] = r
	return nil
}

// Has reports whether a region has been installed.
func (d *Document) Has(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.regions[name]
	return ok
}

// HTML returns the region's serialized markup.
func (d *Document) HTML(name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[name]; ok {
		return r.markup
	}
	return ""
}

// Text returns the region's text content with whitespace collapsed.
func (d *Document) Text(name string) string {
	d.mu.Lock()
	r, ok := d.regions[name]
	d.mu.Unlock()
	if !ok {
		return ""
	}
	return strings.Join(strings.Fields(nodeText(r.doc.Get(0))), " ")
}

// Generation counts how many times a region has been replaced.
func (d *Document) Generation(name string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.regions[name]; ok {
		return r.gen
	}
	return 0
}

// Query returns the interactive elements (anchors, buttons, [data-action])
// of every region matching selector, in document order.
func (d *Document) Query(selector string) []*Element {
	var out []*Element
	for _, r := range d.orderedRegions() {
		r.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if el, ok := r.byNode[s.Get(0)]; ok {
				out = append(out, el)
			}
		})
	}
	return out
}

// Links returns every anchor carrying an href, in document order.
func (d *Document) Links() []*Element {
	var out []*Element
	for _, r := range d.orderedRegions() {
		for _, el := range r.elements {
			if el.Tag == "a" && el.HasAttr("href") {
				out = append(out, el)
			}
		}
	}
	return out
}

// Click dispatches a click event on el and returns it so the caller can
// check whether the default action was prevented.
func (d *Document) Click(el *Element) *Event {
	ev := &Event{Type: "click", Target: el}
	el.Dispatch(ev)
	return ev
}

func (d *Document) attached(el *Element) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[el.region]
	return ok && r.gen == el.gen
}

func (d *Document) listenerID() ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Document) orderedRegions() []*region {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*region, 0, len(d.regions))
	for _, r := range d.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := regionOrder[out[i].name]
		oj, jok := regionOrder[out[j].name]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i].name < out[j].name
		}
	})
	return out
}

func parseFragment(markup string) (*goquery.Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root), nil
}

func renderNodes(doc *goquery.Document) string {
	var buf bytes.Buffer
	for n := doc.Get(0).FirstChild; n != nil; n = n.NextSibling {
		_ = html.Render(&buf, n)
	}
	return buf.String()
}
