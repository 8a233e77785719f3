package loader

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const fileScheme = "file://"

// extensions tried, in order, for specifiers without a known suffix.
var tryExtensions = []string{".ts", ".tsx", ".js", ".mjs", ".jsx", ".json"}

// Resolve resolves specifier against the location of the importing
// module. Relative, absolute and file URL specifiers are supported;
// the result must lie inside the scripts root.
func (l *Loader) Resolve(specifier, referrer string) (string, error) {
	if specifier == "" {
		return "", ErrEmptySpecifier
	}
	if referrer == "" {
		return "", ErrEmptyReferrer
	}

	base, err := toPath(referrer)
	if err != nil {
		return "", err
	}

	var location string
	switch {
	case strings.HasPrefix(specifier, fileScheme):
		if location, err = toPath(specifier); err != nil {
			return "", err
		}
	case filepath.IsAbs(specifier) || strings.HasPrefix(specifier, "/"):
		location = filepath.Clean(filepath.FromSlash(specifier))
	case isRelative(specifier):
		location = filepath.Join(filepath.Dir(base), filepath.FromSlash(specifier))
	default:
		return "", fmt.Errorf("%w: %q", ErrBareSpecifier, specifier)
	}

	if !l.contains(location) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, specifier)
	}

	if isFile(location) {
		return location, nil
	}

	if candidate, ok := l.withExtension(location); ok {
		return candidate, nil
	}

	// resolution is lexical, loading reports missing files
	return location, nil
}

// withExtension finds a file for an extensionless location, either by suffix
// or as a directory index.
func (l *Loader) withExtension(location string) (string, bool) {
	for _, ext := range tryExtensions {
		if isFile(location + ext) {
			return location + ext, true
		}
	}

	for _, ext := range tryExtensions {
		index := filepath.Join(location, "index"+ext)
		if isFile(index) {
			return index, true
		}
	}

	return "", false
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") ||
		strings.HasPrefix(specifier, "../")
}

func toPath(location string) (string, error) {
	if !strings.HasPrefix(location, fileScheme) {
		return filepath.Clean(location), nil
	}

	u, err := url.Parse(location)
	if err != nil || u.Path == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	return filepath.Clean(filepath.FromSlash(u.Path)), nil
}

// FileURL returns the file URL for a location.
func FileURL(location string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(location)}
	return u.String()
}
