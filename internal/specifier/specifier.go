// Package specifier normalizes and joins module specifiers. A specifier is
// either a URL or a virtual path rooted at "/", where "/" stands for the
// project root directory.
package specifier

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// IsURL reports whether s is an absolute URL such as https://host/x.ts.
func IsURL(s string) bool {
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

// Canonical returns the canonical form of spec. URLs are returned as-is.
// Absolute host paths under root are rebased onto "/". Any other path is
// taken as virtual and rooted at "/".
func Canonical(spec, root string) (string, error) {
	if IsURL(spec) {
		return spec, nil
	}
	if spec == "" {
		return "", fmt.Errorf("specifier: empty specifier")
	}
	if root != "" && filepath.IsAbs(spec) {
		rel, err := filepath.Rel(root, spec)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return path.Join("/", filepath.ToSlash(rel)), nil
		}
	}
	return path.Join("/", filepath.ToSlash(spec)), nil
}

// Join resolves spec as referenced from referrer. URL specifiers pass
// through. Under a URL referrer, spec resolves against the URL's path.
// Otherwise absolute paths stay absolute and relative paths join the
// referrer's directory.
func Join(referrer, spec string) (string, error) {
	if IsURL(spec) {
		return spec, nil
	}
	if IsURL(referrer) {
		base, err := url.Parse(referrer)
		if err != nil {
			return "", fmt.Errorf("specifier: parse %q: %w", referrer, err)
		}
		ref, err := url.Parse(spec)
		if err != nil {
			return "", fmt.Errorf("specifier: parse %q: %w", spec, err)
		}
		return base.ResolveReference(ref).String(), nil
	}
	if path.IsAbs(spec) {
		return path.Clean(spec), nil
	}
	return path.Join(path.Dir(referrer), spec), nil
}

// Ext returns the extension of spec, ignoring any URL query or fragment.
func Ext(spec string) string {
	if IsURL(spec) {
		if u, err := url.Parse(spec); err == nil {
			return path.Ext(u.Path)
		}
	}
	return path.Ext(spec)
}
