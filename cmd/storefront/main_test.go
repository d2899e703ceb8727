package main

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/source"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func fixtureDirs(t *testing.T) (data, public string) {
	t.Helper()
	root := t.TempDir()
	data, public = filepath.Join(root, "data"), filepath.Join(root, "public")
	writeFiles(t, data, map[string]string{
		"products.json": `[
			{"id":1,"name":"Shoe","brand":"Acme","price":2999,"image":"/img/shoe.jpg"},
			{"id":2,"name":"Sock","price":499,"image":"/img/sock.jpg"}
		]`,
		"pages.json":           `{"about":{"heading":"About us"}}`,
		"includes/header.html": `<nav class="site-nav"><a href="/">Shop</a><a href="/pages/about">About</a></nav>`,
		"includes/footer.html": `<p>footer</p>`,
	})
	writeFiles(t, public, map[string]string{"assets/css/site.css": "body{margin:0}"})
	return data, public
}

// newTestServer builds the serve command's handler over fixture data.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	data, public := fixtureDirs(t)
	v := config.New()
	v.Set("data.dir", data)
	v.Set("server.public_dir", public)
	v.Set("site.name", "Shoe Shop")
	cfg, err := config.Load(v)
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(io.Discard)
	a := &app{v: v, cfg: cfg, log: l}
	src, _, err := a.source()
	require.NoError(t, err)
	assert.IsType(t, &source.Dir{}, src)
	views, err := a.views()
	require.NoError(t, err)
	return newServer(cfg, a.session(src), views, logrus.NewEntry(l)).routes()
}

func TestServeHome(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/", "/index.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Shoe")
		assert.Contains(t, rec.Body.String(), "$29.99")
		assert.Contains(t, rec.Body.String(), "<title>Shoe Shop</title>")
	}
}

func TestServeLegacyProductPath(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/product?id=2", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/?id=2", rec.Header().Get("HX-Push-Url"))
	assert.Contains(t, rec.Body.String(), "Sock")
}

func TestServeUnknownProduct(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/?id=999", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeAssetsAndData(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/css/site.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=604800")
	assert.NotEmpty(t, rec.Header().Get("ETag"))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data/products.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), `"Sock"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/includes/footer.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzOK(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestRenderCommand(t *testing.T) {
	data, _ := fixtureDirs(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"render", "/?id=1", "--data-dir", data, "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Shoe")
	assert.Contains(t, out.String(), "Back to Shop")
	assert.NotContains(t, out.String(), "<html")
}

func TestRenderCommandFollowsClicks(t *testing.T) {
	data, _ := fixtureDirs(t)
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"render", "/", "--click", "/?id=2", "--full", "--data-dir", data, "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "<html")
	assert.Contains(t, out.String(), "Sock")

	cmd = newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"render", "/", "--click", "/nowhere", "--data-dir", data, "--log-level", "error"})
	assert.Error(t, cmd.Execute())
}

func TestExportCommand(t *testing.T) {
	data, _ := fixtureDirs(t)
	out := filepath.Join(t.TempDir(), "reports", "catalog.csv")
	cmd := newRootCmd()
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"export", "--out", out, "--data-dir", data, "--log-level", "error"})
	require.NoError(t, cmd.Execute())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Shoe", records[1][1])
}

