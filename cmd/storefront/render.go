package main

import (
	"context"
	"fmt"
	"html/template"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"finitefield.org/storefront/internal/browser"
	"finitefield.org/storefront/internal/nav"
	"finitefield.org/storefront/internal/router"
	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/view"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		full   bool
		clicks []string
	)
	cmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render the view for a URL to stdout",
		Long: `Render resolves url (default "/") the way the storefront does in the
browser and prints the content region, or the whole page with --full.
Each --click follows the first link whose href matches, in order.`,
		Example: `  storefront render "/?id=3"
  storefront render / --click "/?id=3" --click "/" --full`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "/"
			if len(args) == 1 {
				target = args[0]
			}
			src, closer, err := a.source()
			if err != nil {
				return err
			}
			defer closer.Close()
			views, err := a.views()
			if err != nil {
				return err
			}
			res, err := renderURL(cmd.Context(), a.session(src), views, target, clicks)
			if err != nil {
				return err
			}
			if res.View == router.ViewError {
				a.log.WithError(res.Err).Warn("rendered error view")
			}
			return writeResult(cmd.OutOrStdout(), views, a.cfg.Site.Lang, res, full)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the full HTML document")
	cmd.Flags().StringArrayVar(&clicks, "click", nil, "href of a link to click after loading (repeatable)")
	return cmd
}

type rendered struct {
	router.Result
	win *browser.Window
}

// renderURL opens a window at target and replays clicks on it.
func renderURL(ctx context.Context, sess *session.Session, views *view.Renderer, target string, clicks []string) (rendered, error) {
	win, err := browser.NewWindow(target)
	if err != nil {
		return rendered{}, err
	}
	rt := router.New(sess, win, views, router.WithLogger(sess.Log.WithField("cmd", "render")))
	defer rt.Stop()

	res := rt.Start(ctx)
	for _, href := range clicks {
		el := findLink(win, href)
		if el == nil {
			return rendered{}, fmt.Errorf("no link with href %q on %s", href, win.Location())
		}
		win.Document.Click(el)
		res = rt.Last()
		sess.Log.WithFields(logrus.Fields{"href": href, "view": res.View.String()}).Debug("clicked")
	}
	if res.View == router.ViewNone {
		return rendered{}, fmt.Errorf("render %s: %w", target, res.Err)
	}
	return rendered{Result: res, win: win}, nil
}

func findLink(win *browser.Window, href string) *browser.Element {
	for _, el := range win.Document.Links() {
		if el.Attr("href") == href {
			return el
		}
	}
	return nil
}

func writeResult(w io.Writer, views *view.Renderer, lang string, res rendered, full bool) error {
	doc := res.win.Document
	if !full {
		_, err := io.WriteString(w, doc.HTML(browser.RegionContent)+"\n")
		return err
	}
	return views.Layout(w, view.LayoutData{
		Lang:    lang,
		Meta:    res.Fragment.Meta,
		Nav:     nav.Build(res.Route),
		Header:  template.HTML(doc.HTML(browser.RegionHeader)),
		Content: template.HTML(doc.HTML(browser.RegionContent)),
		Footer:  template.HTML(doc.HTML(browser.RegionFooter)),
	})
}
