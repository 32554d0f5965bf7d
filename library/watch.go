package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ardnew/weft/pkg"
)

// ErrWatch is returned when the search directories cannot be watched.
var ErrWatch = pkg.NewError("watch templates")

// Watch invalidates cached templates as their files change on disk. It
// blocks until ctx is done. Only the OS filesystem can be watched.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer w.Close()

	for _, dir := range l.dirs {
		if err := w.Add(dir); err != nil {
			return ErrWatch.Wrap(err).With(slog.String("dir", dir))
		}
	}

	l.logger.DebugContext(ctx, "watching templates", slog.Any("dirs", l.dirs))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			l.handle(ctx, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			l.logger.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}

// handle invalidates the template named by a filesystem event.
func (l *Library) handle(ctx context.Context, ev fsnotify.Event) {
	if filepath.Ext(ev.Name) != pkg.Ext {
		return
	}

	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	name, ok := l.nameOf(ev.Name)
	if !ok {
		return
	}

	l.logger.DebugContext(ctx, "template invalidated",
		slog.String("name", name),
		slog.String("op", ev.Op.String()),
	)

	l.Invalidate(name)
}

// nameOf returns the template name of path, relative to the search
// directory containing it.
func (l *Library) nameOf(path string) (string, bool) {
	for _, dir := range l.dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}

		return filepath.ToSlash(strings.TrimSuffix(rel, pkg.Ext)), true
	}

	return "", false
}
