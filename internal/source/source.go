// Package source retrieves the text and bytes behind a specifier, from the
// project directory for paths and over HTTP for URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/jward/kiln/internal/specifier"
)

// ErrNotFound is returned when a specifier does not resolve to content.
var ErrNotFound = errors.New("source: not found")

// Store retrieves content by specifier.
type Store interface {
	ReadText(ctx context.Context, spec string) (string, error)
	ReadBinary(ctx context.Context, spec string) ([]byte, error)
}

// Local reads virtual paths from a directory. "/a/b.ts" and "a/b.ts" both
// name the file a/b.ts under the root.
type Local struct {
	fsys fs.FS
}

// NewLocal returns a Local rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{fsys: os.DirFS(dir)}
}

// NewFS returns a Local reading from fsys.
func NewFS(fsys fs.FS) *Local {
	return &Local{fsys: fsys}
}

func (l *Local) ReadText(ctx context.Context, spec string) (string, error) {
	b, err := l.ReadBinary(ctx, spec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (l *Local) ReadBinary(ctx context.Context, spec string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := fsPath(spec)
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, spec)
		}
		return nil, fmt.Errorf("source: read %s: %w", spec, err)
	}
	return data, nil
}

// fsPath maps a virtual path to an fs.FS name.
func fsPath(spec string) string {
	p := strings.TrimPrefix(path.Clean("/"+spec), "/")
	if p == "" {
		return "."
	}
	return p
}

// Mux sends URL specifiers to Remote and everything else to Local.
type Mux struct {
	Local  Store
	Remote Store
}

func (m *Mux) ReadText(ctx context.Context, spec string) (string, error) {
	s, err := m.route(spec)
	if err != nil {
		return "", err
	}
	return s.ReadText(ctx, spec)
}

func (m *Mux) ReadBinary(ctx context.Context, spec string) ([]byte, error) {
	s, err := m.route(spec)
	if err != nil {
		return nil, err
	}
	return s.ReadBinary(ctx, spec)
}

func (m *Mux) route(spec string) (Store, error) {
	if !specifier.IsURL(spec) {
		if m.Local == nil {
			return nil, fmt.Errorf("%w: no local store for %s", ErrNotFound, spec)
		}
		return m.Local, nil
	}
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, spec, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || m.Remote == nil {
		return nil, fmt.Errorf("%w: unsupported scheme %q in %s", ErrNotFound, u.Scheme, spec)
	}
	return m.Remote, nil
}
