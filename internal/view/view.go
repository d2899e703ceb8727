// Package view renders storefront views to HTML. Every function is pure: the
// same input always produces the same markup.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/cms"
	"finitefield.org/storefront/internal/format"
	"finitefield.org/storefront/internal/nav"
	"finitefield.org/storefront/internal/route"
	"finitefield.org/storefront/internal/seo"
	"finitefield.org/storefront/internal/source"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Fragment is a rendered content view plus the page metadata it implies.
type Fragment struct {
	HTML template.HTML
	Meta seo.Meta
}

// String returns the markup.
func (f Fragment) String() string { return string(f.HTML) }

// Renderer executes the view templates.
type Renderer struct {
	tmpl     *template.Template
	devDir   string
	currency string
	site     string
	baseURL  string
	scheme   route.Scheme
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCurrency sets the currency prices are formatted in.
func WithCurrency(code string) Option {
	return func(r *Renderer) {
		if code != "" {
			r.currency = code
		}
	}
}

// WithSite sets the site name used in titles and the absolute base URL used
// for canonical links.
func WithSite(name, baseURL string) Option {
	return func(r *Renderer) {
		r.site = name
		r.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithScheme overrides the URL scheme used for product links.
func WithScheme(s route.Scheme) Option {
	return func(r *Renderer) { r.scheme = s }
}

// WithDevDir reparses templates from dir on every render.
func WithDevDir(dir string) Option {
	return func(r *Renderer) { r.devDir = dir }
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{currency: "USD", site: "Storefront", scheme: route.Default}
	for _, opt := range opts {
		opt(r)
	}
	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.tmpl = t
	return r, nil
}

func (r *Renderer) parse() (*template.Template, error) {
	var fsys fs.FS = embedded
	pattern := "templates/*.tmpl"
	if r.devDir != "" {
		fsys = os.DirFS(r.devDir)
		pattern = "*.tmpl"
	}
	t, err := template.New("_root").ParseFS(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return t, nil
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	t := r.tmpl
	if r.devDir != "" {
		tc, err := r.parse()
		if err != nil {
			return err
		}
		t = tc
	}
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("view: execute %s: %w", name, err)
	}
	return nil
}

func (r *Renderer) fragment(name string, data any, meta seo.Meta) (Fragment, error) {
	var buf bytes.Buffer
	if err := r.execute(&buf, name, data); err != nil {
		return Fragment{}, err
	}
	return Fragment{HTML: template.HTML(buf.String()), Meta: meta.WithSite(r.site)}, nil
}

func (r *Renderer) abs(path string) string {
	if r.baseURL == "" {
		return path
	}
	return r.baseURL + path
}

type priceView struct {
	Price    string
	Original string
	Discount int
}

func (r *Renderer) prices(p catalog.Product) priceView {
	pv := priceView{Price: format.Price(p.Price, r.currency)}
	if p.OnSale() {
		pv.Original = format.Price(*p.OriginalPrice, r.currency)
		pv.Discount = format.Discount(p.Price, *p.OriginalPrice)
	}
	return pv
}

type cardView struct {
	priceView
	ID        int64
	Href      string
	Name      string
	Brand     string
	Image     string
	Summary   string
	Shipping  string
	Available bool
}

// Grid renders the product grid in catalog order.
func (r *Renderer) Grid(products []catalog.Product) (Fragment, error) {
	cards := make([]cardView, 0, len(products))
	for _, p := range products {
		cards = append(cards, cardView{
			priceView: r.prices(p),
			ID:        p.ID,
			Href:      r.scheme.URL(route.Product(p.ID)),
			Name:      p.Name,
			Brand:     p.Brand,
			Image:     p.Image,
			Summary:   p.Summary(),
			Shipping:  p.Shipping.Label(),
			Available: p.Available(),
		})
	}
	meta := seo.Meta{
		Description: "Browse the catalog.",
		Canonical:   r.abs("/"),
		JSONLD: []template.JS{
			seo.JSON(seo.WebSite(r.site, r.abs("/"))),
			seo.JSON(seo.Organization(r.site, r.abs("/"), "")),
		},
	}
	return r.fragment("grid", struct{ Cards []cardView }{cards}, meta)
}

type detailView struct {
	priceView
	ID        int64
	Name      string
	Brand     string
	Gallery   []string
	Rating    string
	Shipping  string
	Available bool
	Colors    []catalog.Color
	Sizes     []string
	Body      template.HTML
	Crumbs    []nav.Crumb
}

// Detail renders one product. Typed description blocks take precedence
// over the plain description.
func (r *Renderer) Detail(p catalog.Product) (Fragment, error) {
	body := template.HTML("<p>" + template.HTMLEscapeString(p.Description) + "</p>")
	if len(p.DescriptionBlocks) > 0 {
		h, err := cms.RenderBlocks(p.DescriptionBlocks)
		if err != nil {
			return Fragment{}, err
		}
		body = h
	}
	rt := route.Product(p.ID)
	dv := detailView{
		priceView: r.prices(p),
		ID:        p.ID,
		Name:      p.Name,
		Brand:     p.Brand,
		Gallery:   p.Gallery(),
		Shipping:  p.Shipping.Label(),
		Available: p.Available(),
		Colors:    p.Colors,
		Sizes:     p.Sizes,
		Body:      body,
		Crumbs:    nav.Breadcrumbs(rt, p.Name),
	}
	if p.Rating != nil {
		dv.Rating = format.Rating(*p.Rating)
	}

	canonical := r.abs(r.scheme.URL(rt))
	images := make([]string, 0, len(dv.Gallery))
	for _, src := range dv.Gallery {
		images = append(images, r.abs(src))
	}
	meta := seo.Meta{
		Title:       p.Name,
		Description: p.Summary(),
		Canonical:   canonical,
		OG:          seo.OpenGraph{Type: "product"},
		JSONLD: []template.JS{
			seo.JSON(seo.Product(p.Name, p.Brand, p.Summary(), canonical, images,
				strconv.FormatInt(p.ID, 10), &seo.Offer{
					Price:        format.Decimal(p.Price, r.currency),
					Currency:     strings.ToUpper(r.currency),
					InStock:      p.Available(),
					FreeShipping: p.Shipping.Free(),
				})),
			seo.JSON(seo.BreadcrumbList(r.crumbItems(dv.Crumbs))),
		},
	}
	if len(images) > 0 {
		meta.OG.Image = images[0]
	}
	return r.fragment("detail", dv, meta)
}

type pageView struct {
	Key     string
	Heading string
	Summary string
	Body    template.HTML
	Crumbs  []nav.Crumb
}

// Page renders a static page.
func (r *Renderer) Page(p cms.Page) (Fragment, error) {
	body := p.Body
	if body == "" && len(p.Blocks) > 0 {
		h, err := cms.RenderBlocks(p.Blocks)
		if err != nil {
			return Fragment{}, err
		}
		body = h
	}
	rt := route.Page(p.Key)
	pv := pageView{
		Key:     p.Key,
		Heading: p.Heading,
		Summary: p.Summary,
		Body:    body,
		Crumbs:  nav.Breadcrumbs(rt, p.Heading),
	}
	canonical := r.abs("/pages/" + p.Key)
	var published string
	if !p.UpdatedAt.IsZero() {
		published = p.UpdatedAt.Format("2006-01-02")
	}
	meta := seo.Meta{
		Title:       p.Heading,
		Description: p.Summary,
		Canonical:   canonical,
		OG:          seo.OpenGraph{Type: "article"},
		JSONLD: []template.JS{
			seo.JSON(seo.Article(p.Heading, canonical, published)),
			seo.JSON(seo.BreadcrumbList(r.crumbItems(pv.Crumbs))),
		},
	}
	return r.fragment("page", pv, meta)
}

type statusView struct {
	Title   string
	Message string
	Retry   string
}

// NotFound renders the not-found view for rt.
func (r *Renderer) NotFound(rt route.Route) (Fragment, error) {
	sv := statusView{Title: "Product not found.", Message: "We couldn't find that product. It may have been removed."}
	if rt.Kind == route.StaticPage {
		sv = statusView{Title: "Page not found.", Message: "We couldn't find that page."}
	}
	return r.fragment("notfound", sv, seo.Meta{Title: "Not found"})
}

// Error renders the inline load-failure view for rt.
func (r *Renderer) Error(rt route.Route, err error) (Fragment, error) {
	sv := statusView{
		Title:   "Failed to load products.",
		Message: "Please check your connection and try again.",
		Retry:   r.scheme.URL(rt),
	}
	if rt.Kind == route.StaticPage {
		sv.Title = "Failed to load page."
	}
	var le *source.LoadError
	if errors.As(err, &le) && le.Resource != "" {
		sv.Message = "Could not load " + le.Resource + ". Please try again."
	}
	return r.fragment("error", sv, seo.Meta{Title: "Something went wrong"})
}

func (r *Renderer) crumbItems(crumbs []nav.Crumb) []seo.BreadcrumbItem {
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		items = append(items, seo.BreadcrumbItem{Name: c.Label, Item: r.abs(c.Href)})
	}
	return items
}

// LayoutData is the full-page document wrapped around a content view.
type LayoutData struct {
	Lang    string
	Meta    seo.Meta
	Nav     []nav.RenderedItem
	Header  template.HTML
	Content template.HTML
	Footer  template.HTML
}

// Layout writes a complete HTML document.
func (r *Renderer) Layout(w io.Writer, d LayoutData) error {
	if d.Lang == "" {
		d.Lang = "en"
	}
	if d.Meta.Title == "" {
		d.Meta = d.Meta.WithSite(r.site)
	}
	return r.execute(w, "layout", d)
}
