package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/handlers"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/session"
	"finitefield.org/storefront/internal/status"
	"finitefield.org/storefront/internal/view"
	"finitefield.org/storefront/internal/watch"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the storefront over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.Int("port", 8080, "HTTP listen port")
	f.String("public", "public", "public assets directory")
	f.Bool("dev", false, "development mode: reload data and templates from disk")
	bindFlags(a.v, f, map[string]string{
		"server.port":       "port",
		"server.public_dir": "public",
		"dev.enabled":       "dev",
	})
	return cmd
}

// server holds the long-lived parts of the HTTP surface.
type server struct {
	cfg      *config.Config
	sess     *session.Session
	views    *view.Renderer
	log      *logrus.Entry
	pages    *handlers.Storefront
	assets   *mw.Static
	data     *mw.Static
	includes *mw.Static
}

func newServer(cfg *config.Config, sess *session.Session, views *view.Renderer, log *logrus.Entry) *server {
	s := &server{cfg: cfg, sess: sess, views: views, log: log}
	s.pages = handlers.New(sess, views,
		handlers.WithLang(cfg.Site.Lang),
		handlers.WithChecker(status.NewChecker(sess, 15*time.Second)))

	assetAge := 7 * 24 * time.Hour
	if cfg.Dev.Enabled {
		assetAge = 0
	}
	s.assets = mw.NewStatic(filepath.Join(cfg.Server.PublicDir, "assets"), "/assets", assetAge)
	// raw documents are only exposed when they live on local disk
	if cfg.Data.BaseURL == "" && cfg.Data.Dir != "" {
		s.data = mw.NewStatic(cfg.Data.Dir, "/data", 0)
		s.includes = mw.NewStatic(filepath.Join(cfg.Data.Dir, "includes"), "/includes", 0)
	}
	return s
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(mw.Logger(s.log))
	r.Use(chimw.Recoverer)
	r.Use(mw.HTMX)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", s.pages.Health)
	r.Get("/status", s.pages.Status)
	r.Handle("/assets/*", s.assets)
	if s.data != nil {
		r.Handle("/data/*", s.data)
		r.Handle("/includes/*", s.includes)
	}

	// legacy entry points resolve through the same query rules as "/"
	for _, p := range []string{"/", "/index.html", "/product.html", "/product", "/pages/{key}"} {
		r.Get(p, s.pages.View)
	}
	r.NotFound(s.pages.NotFound)
	return r
}

// reload drops cached documents and ETags after data changed on disk.
func (s *server) reload(paths []string) {
	s.sess.Invalidate()
	s.assets.Reset()
	if s.data != nil {
		s.data.Reset()
		s.includes.Reset()
	}
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closer, err := a.source()
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logrus.NewEntry(a.log)
	sess := a.session(src)
	views, err := a.views()
	if err != nil {
		return err
	}
	s := newServer(a.cfg, sess, views, log)

	if a.cfg.Dev.Enabled && a.cfg.Dev.Watch && a.cfg.Data.BaseURL == "" {
		w, err := watch.New(a.cfg.Data.Dir, 200*time.Millisecond, s.reload, log)
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.WithError(err).Warn("watcher stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "dev": a.cfg.Dev.Enabled}).Info("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
