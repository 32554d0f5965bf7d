package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/ardnew/weft/engine"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/library"
	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/pkg"
	"github.com/ardnew/weft/store"
)

// Globals holds the flags shared by every command.
type Globals struct {
	Source  []string          `help:"Template source file(s) or '-' for stdin" placeholder:"FILE"             short:"s" type:"existingfile"`
	Path    []string          `help:"Template search directory, highest priority first"                        placeholder:"DIR"             short:"I"`
	Dev     bool              `help:"Re-read templates on every lookup"`
	Data    string            `help:"YAML or JSON file supplying render data"  placeholder:"FILE"             short:"d" type:"existingfile"`
	DB      string            `default:"${db}"                                 help:"Record store data source name" name:"db"  placeholder:"DSN"`
	View    map[string]string `help:"Register view NAME listing the records of COLLECTION"                     placeholder:"NAME=COLLECTION"`
	Record  map[string]string `help:"Register view NAME loading one record of COLLECTION by id"                placeholder:"NAME=COLLECTION"`
	Timeout time.Duration     `default:"30s"                                   help:"Bound each render; zero disables"`
	Minify  bool              `help:"Minify rendered markup"`
}

// library returns the template library over the search path composed of
// --path directories followed by those listed in the WEFT_PATH variable.
func (g *Globals) library() *library.Library {
	fsys := afero.NewOsFs()

	dirs := library.SearchPath(fsys, os.Getenv(pkg.EnvPath), g.Path...)
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	return library.New(
		library.WithFs(fsys),
		library.WithDirs(dirs...),
		library.WithDevMode(g.Dev),
		library.WithLogger(log.Default()),
	)
}

// open opens the record store.
func (g *Globals) open(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, g.DB, store.WithLogger(log.Default()))
}

// engine returns an engine rendering templates from lib. The record store
// is opened only when a view or record is registered; the returned func
// closes it.
func (g *Globals) engine(ctx context.Context, lib *library.Library) (*engine.Engine, func() error, error) {
	eng := engine.New(
		engine.WithTemplates(lib),
		engine.WithLogger(log.Default()),
		engine.WithMinify(g.Minify),
		engine.WithTimeout(g.Timeout),
	)

	if len(g.View) == 0 && len(g.Record) == 0 {
		return eng, func() error { return nil }, nil
	}

	st, err := g.open(ctx)
	if err != nil {
		return nil, nil, err
	}

	for name, collection := range g.View {
		eng.Register(name, st.Lister(collection))
	}

	for name, collection := range g.Record {
		eng.Register(name, st.Loader(collection))
	}

	log.DebugContext(ctx, "registered views",
		slog.Any("views", eng.Views().Names()),
		slog.String("db", st.Driver()),
	)

	return eng, st.Close, nil
}

// layers returns the render scope read from --data.
func (g *Globals) layers() ([]any, error) {
	if g.Data == "" {
		return nil, nil
	}

	buf, err := os.ReadFile(g.Data)
	if err != nil {
		return nil, ErrData.Wrap(err).With(slog.String("file", g.Data))
	}

	var data map[string]any
	if err := yaml.Unmarshal(buf, &data); err != nil {
		return nil, ErrData.Wrap(err).With(slog.String("file", g.Data))
	}

	return []any{data}, nil
}

// template returns the template named name from lib, or parses the
// --source files when name is empty.
func (g *Globals) template(ctx context.Context, lib *library.Library, name string) (*lang.Node, error) {
	if name != "" {
		return lib.Lookup(ctx, name)
	}

	src := sourceFilesFrom(ctx)
	if src == nil {
		return nil, ErrNoTemplate
	}

	file := stdinSource
	if names := src.Names(); len(names) == 1 {
		file = names[0]
	}

	return lang.ParseReader(ctx, src, lang.WithFile(file), lang.WithLogger(log.Default()))
}
