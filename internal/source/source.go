// Package source reads the storefront's static documents (catalog, pages,
// header/footer fragments) from a local directory or an HTTP origin.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrNotFound reports that the requested document does not exist.
var ErrNotFound = errors.New("source: not found")

// LoadError wraps a network, I/O or parse failure for a named resource.
type LoadError struct {
	Resource string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Wrap returns err as a *LoadError for resource unless it already is one.
func Wrap(resource string, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Resource: resource, Err: err}
}

// Source fetches a document by slash-separated name, e.g. "products.json".
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Dir serves documents from a filesystem.
type Dir struct {
	fsys fs.FS
	root string
}

// NewDir returns a Source rooted at dir on the local filesystem.
func NewDir(dir string) *Dir {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	return &Dir{fsys: os.DirFS(dir), root: dir}
}

// NewFS returns a Source reading from fsys (embedded data, fstest.MapFS).
func NewFS(fsys fs.FS) *Dir {
	return &Dir{fsys: fsys}
}

// Root returns the local directory backing the source, if any.
func (d *Dir) Root() string { return d.root }

func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Resource: name, Err: err}
	}
	clean, ok := cleanName(name)
	if !ok {
		return nil, ErrNotFound
	}
	b, err := fs.ReadFile(d.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &LoadError{Resource: name, Err: err}
	}
	return b, nil
}

// cleanName rejects names escaping the source root.
func cleanName(name string) (string, bool) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" || strings.Contains(name, "..") {
		return "", false
	}
	name = path.Clean(name)
	if !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
