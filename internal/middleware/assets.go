package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Static serves the files under dir at prefix with Cache-Control,
// Vary and ETag handling. ETags are computed lazily and remembered until
// Reset; maxAge 0 disables caching.
type Static struct {
	dir    string
	prefix string
	maxAge time.Duration
	fs     http.Handler

	mu    sync.Mutex
	etags map[string]string
}

// NewStatic returns a handler for dir mounted at prefix, e.g. "/assets".
func NewStatic(dir, prefix string, maxAge time.Duration) *Static {
	prefix = "/" + strings.Trim(prefix, "/")
	return &Static{
		dir:    dir,
		prefix: prefix,
		maxAge: maxAge,
		fs:     http.StripPrefix(prefix, http.FileServer(http.Dir(dir))),
		etags:  map[string]string{},
	}
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Vary", "Accept-Encoding")
	if s.maxAge > 0 {
		secs := int(s.maxAge / time.Second)
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", secs, secs/7))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	rel := strings.TrimPrefix(r.URL.Path, s.prefix)
	if et := s.etag(rel); et != "" {
		w.Header().Set("ETag", et)
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == et {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	s.fs.ServeHTTP(w, r)
}

// Reset forgets the computed ETags after files changed on disk.
func (s *Static) Reset() {
	s.mu.Lock()
	s.etags = map[string]string{}
	s.mu.Unlock()
}

func (s *Static) etag(rel string) string {
	clean := filepath.Clean("/" + rel)
	if strings.Contains(clean, "..") {
		return ""
	}
	s.mu.Lock()
	et, ok := s.etags[clean]
	s.mu.Unlock()
	if ok {
		return et
	}
	et, err := fileETag(filepath.Join(s.dir, filepath.FromSlash(clean)))
	if err != nil {
		return ""
	}
	s.mu.Lock()
	s.etags[clean] = et
	s.mu.Unlock()
	return et
}

func fileETag(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if info, err := f.Stat(); err != nil || info.IsDir() {
		return "", fmt.Errorf("not a file: %s", path)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return `W/"` + hex.EncodeToString(h.Sum(nil)) + `"`, nil
}
