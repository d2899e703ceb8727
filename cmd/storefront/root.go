package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/source"
	"finitefield.org/storefront/internal/view"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Product catalog storefront",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./storefront.yaml)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("data-dir", "data", "directory holding products.json, pages.json and includes/")
	pf.String("data-url", "", "base URL to fetch data documents from instead of data-dir")
	bindFlags(a.v, pf, map[string]string{
		"log.level":     "log-level",
		"data.dir":      "data-dir",
		"data.base_url": "data-url",
	})

	root.AddCommand(newServeCmd(a), newRenderCmd(a), newExportCmd(a))
	return root
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func (a *app) init() error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	return nil
}

// source opens the data source. The returned closer releases HTTP
// resources and is never nil.
func (a *app) source() (source.Source, io.Closer, error) {
	if a.cfg.Data.BaseURL != "" {
		h, err := source.NewHTTP(a.cfg.Data.BaseURL, a.cfg.Data.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("data source: %w", err)
		}
		return h, h, nil
	}
	return source.NewDir(a.cfg.Data.Dir), noClose{}, nil
}

type noClose struct{}

func (noClose) Close() error { return nil }

func (a *app) session(src source.Source) *session.Session {
	d := a.cfg.Data
	return session.New(src, session.Options{
		CatalogDocument: d.Catalog,
		PagesIndex:      d.Pages,
		ContentDir:      d.ContentDir,
		Header:          d.Header,
		Footer:          d.Footer,
		Timeout:         d.Timeout,
		PagesTTL:        d.PagesTTL,
		Currency:        a.cfg.Site.Currency,
		Log:             logrus.NewEntry(a.log),
	})
}

func (a *app) views() (*view.Renderer, error) {
	opts := []view.Option{
		view.WithCurrency(a.cfg.Site.Currency),
		view.WithSite(a.cfg.Site.Name, a.cfg.Site.BaseURL),
	}
	if a.cfg.Dev.Enabled && a.cfg.Dev.Templates != "" {
		opts = append(opts, view.WithDevDir(a.cfg.Dev.Templates))
	}
	return view.New(opts...)
}
