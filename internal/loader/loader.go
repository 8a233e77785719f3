package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrEmptySpecifier  = errors.New("empty module specifier")
	ErrEmptyReferrer   = errors.New("empty module referrer")
	ErrBareSpecifier   = errors.New("bare module specifier")
	ErrOutsideRoot     = errors.New("module location outside of scripts root")
	ErrInvalidLocation = errors.New("invalid module location")
	ErrNotFound        = errors.New("module not found")
	ErrRead            = errors.New("module could not be read")
	ErrTranspile       = errors.New("module could not be transpiled")

	// ErrTopLevelAwait is returned by CommonJS for modules awaiting at
	// the top level. Such entry modules are loaded with AsyncBody.
	ErrTopLevelAwait = fmt.Errorf("%w: top-level await", ErrTranspile)
)

// Kind is the kind of source returned by Load. Load always returns
// plain script, whatever dialect the file was written in.
type Kind int

const (
	KindScript Kind = iota
)

// Dialect is the source language of a module file, derived from its suffix.
type Dialect int

const (
	DialectScript Dialect = iota
	DialectTypeScript
	DialectTSX
	DialectJSX
	DialectJSON
)

func (d Dialect) String() string {
	switch d {
	case DialectScript:
		return "script"
	case DialectTypeScript:
		return "typescript"
	case DialectTSX:
		return "tsx"
	case DialectJSX:
		return "jsx"
	case DialectJSON:
		return "json"
	default:
		return "unknown"
	}
}

// DialectOf classifies a location by its suffix. Unknown suffixes are
// treated as plain script.
func DialectOf(location string) Dialect {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".ts", ".mts", ".cts":
		return DialectTypeScript
	case ".tsx":
		return DialectTSX
	case ".jsx":
		return DialectJSX
	case ".json":
		return DialectJSON
	default:
		return DialectScript
	}
}

// Source is a loaded module.
type Source struct {
	Location string
	Code     string
	Kind     Kind
	Dialect  Dialect
}

type Config struct {
	// Root is the directory all scripts and their imports live in.
	Root string `conf:"scripts_root"`

	// JSXFactory is the function JSX elements compile to.
	JSXFactory string `conf:"jsx_factory"`

	// JSXFragment is the component JSX fragments compile to.
	JSXFragment string `conf:"jsx_fragment"`
}

type Params struct {
	Config Config

	Log *zap.Logger
}

// Loader resolves, reads and transpiles modules below a root directory.
// It holds no per-invocation state and is safe for concurrent use.
type Loader struct {
	root   string
	config Config
	log    *zap.Logger
}

func New(params Params) (*Loader, error) {
	root, err := filepath.Abs(params.Config.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid scripts root: %w", err)
	}

	return &Loader{
		root:   filepath.Clean(root),
		config: params.Config,
		log:    params.Log.Named("loader"),
	}, nil
}

// Root returns the absolute scripts root.
func (l *Loader) Root() string {
	return l.root
}

// Locate maps a script name relative to the root onto an existing
// regular file.
func (l *Loader) Locate(name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	if name == "" {
		return "", ErrInvalidLocation
	}

	location := filepath.Join(l.root, filepath.FromSlash(name))
	if !l.contains(location) {
		return "", ErrOutsideRoot
	}

	if !isFile(location) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return location, nil
}

// Load reads the module at location and returns it as plain script.
func (l *Loader) Load(location string) (Source, error) {
	if !l.contains(location) {
		return Source{}, ErrOutsideRoot
	}

	data, err := os.ReadFile(location)
	if errors.Is(err, fs.ErrNotExist) {
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, l.relative(location))
	}
	if err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	dialect := DialectOf(location)

	log := l.log.With(
		zap.String("location", l.relative(location)),
		zap.Stringer("dialect", dialect),
	)

	var code string
	switch dialect {
	case DialectScript:
		code = string(data)
	case DialectJSON:
		if !json.Valid(data) {
			return Source{}, fmt.Errorf("%w: %s: invalid json", ErrTranspile, l.relative(location))
		}
		code = "module.exports = " + string(data) + ";"
	default:
		code, err = l.transpile(string(data), dialect, location)
		if err != nil {
			log.Debug("transpile failed", zap.Error(err))
			return Source{}, err
		}
	}

	log.Debug("loaded module")

	return Source{
		Location: location,
		Code:     code,
		Kind:     KindScript,
		Dialect:  dialect,
	}, nil
}

// MARK: - helpers

func (l *Loader) contains(location string) bool {
	rel, err := filepath.Rel(l.root, location)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (l *Loader) relative(location string) string {
	if rel, err := filepath.Rel(l.root, location); err == nil {
		return filepath.ToSlash(rel)
	}
	return location
}

func isFile(location string) bool {
	info, err := os.Stat(location)
	return err == nil && info.Mode().IsRegular()
}
