// Package library resolves template names to parsed templates stored as
// files under a search path.
//
// Template NAME is read from the first search directory containing
// NAME.weft. Parsed templates are cached; in development mode every lookup
// re-reads the source and re-parses it only when its content hash changed.
package library

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/afero"

	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/pkg"
)

// Predefined errors (sentinel values).
var (
	// ErrRead is returned when a template file exists but cannot be read.
	ErrRead = pkg.NewError("read template")
	// ErrName is wrapped by the missing-template error of a name that
	// would resolve outside the search directories.
	ErrName = pkg.NewError("template name leaves search path")
)

// Library is a set of named templates on a filesystem. It implements
// [eval.Templates] and is safe for concurrent use.
type Library struct {
	fs     afero.Fs
	dirs   []string
	dev    bool
	logger log.Logger

	mu      sync.Mutex
	entries map[string]entry
}

type entry struct {
	path string
	hash uint64
	root *lang.Node
}

// Option configures a Library.
type Option func(*Library)

// WithFs sets the filesystem templates are read from.
func WithFs(fsys afero.Fs) Option {
	return func(l *Library) { l.fs = fsys }
}

// WithDirs sets the search directories, highest priority first.
func WithDirs(dirs ...string) Option {
	return func(l *Library) { l.dirs = dirs }
}

// WithDevMode re-reads template sources on every lookup.
func WithDevMode(enable bool) Option {
	return func(l *Library) { l.dev = enable }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Library) { l.logger = logger }
}

// New returns a library reading from the OS filesystem in the current
// directory unless configured otherwise.
func New(opts ...Option) *Library {
	l := &Library{
		fs:      afero.NewOsFs(),
		dirs:    []string{"."},
		entries: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Dirs returns the search directories.
func (l *Library) Dirs() []string { return slices.Clone(l.dirs) }

// Fs returns the filesystem templates are read from.
func (l *Library) Fs() afero.Fs { return l.fs }

// Lookup returns the parsed template named name.
func (l *Library) Lookup(ctx context.Context, name string) (*lang.Node, error) {
	l.mu.Lock()
	ent, ok := l.entries[name]
	l.mu.Unlock()

	if ok && !l.dev {
		return ent.root, nil
	}

	path, err := l.find(name)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, ErrRead.Wrap(err).With(slog.String("path", path))
	}

	src := string(data)
	hash := lang.Hash(src)

	if ok && ent.hash == hash && ent.path == path {
		return ent.root, nil
	}

	if ok {
		lang.Forget(ent.hash)

		l.logger.DebugContext(ctx, "template changed",
			slog.String("name", name),
			slog.String("path", path),
		)
	}

	root, err := lang.ParseString(ctx, src, lang.WithFile(path), lang.WithLogger(l.logger))
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.entries[name] = entry{path: path, hash: hash, root: root}
	l.mu.Unlock()

	l.logger.TraceContext(ctx, "template loaded",
		slog.String("name", name),
		slog.String("path", path),
		slog.String("source_hash", strconv.FormatUint(hash, 16)),
	)

	return root, nil
}

// Path returns the file that template name resolves to.
func (l *Library) Path(name string) (string, error) {
	return l.find(name)
}

func (l *Library) find(name string) (string, error) {
	file := filepath.FromSlash(name)
	if !filepath.IsLocal(file) {
		return "", eval.ErrMissingTemplate.Wrap(ErrName).
			With(slog.String("template", name))
	}

	if filepath.Ext(file) != pkg.Ext {
		file += pkg.Ext
	}

	for _, dir := range l.dirs {
		path := filepath.Join(dir, file)

		if ok, _ := afero.Exists(l.fs, path); ok {
			return path, nil
		}
	}

	err := eval.ErrMissingTemplate.With(slog.String("template", name))

	if m := fuzzy.Find(name, l.Names()); len(m) > 0 {
		err = err.With(slog.String("suggest", m[0].Str))
	}

	return "", err
}

// Names returns the name of every template under the search path, sorted
// and without duplicates.
func (l *Library) Names() []string {
	var names []string

	for _, dir := range l.dirs {
		_ = afero.Walk(l.fs, dir, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}

				return err
			}

			if info.IsDir() || filepath.Ext(path) != pkg.Ext {
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}

			names = append(names, filepath.ToSlash(strings.TrimSuffix(rel, pkg.Ext)))

			return nil
		})
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// Invalidate drops the cached parse of template name.
func (l *Library) Invalidate(name string) {
	l.mu.Lock()
	ent, ok := l.entries[name]
	delete(l.entries, name)
	l.mu.Unlock()

	if ok {
		lang.Forget(ent.hash)
	}
}

// Check parses every template and returns the combined parse errors.
func (l *Library) Check(ctx context.Context) error {
	var result *multierror.Error

	for _, name := range l.Names() {
		if _, err := l.Lookup(ctx, name); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}
