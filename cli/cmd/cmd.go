package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the standard output of the running command.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

type sourceFilesKey struct{}

// SourceFiles reads the concatenated template source files.
type SourceFiles interface {
	io.Reader
	// Names returns the file names read, with "-" standing for stdin.
	Names() []string
}

type sourceFiles struct {
	io.Reader

	names []string
}

func (s *sourceFiles) Names() []string { return s.names }

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// WithSourceFiles returns a new context.Context containing a [SourceFiles]
// reading the given files in order.
//
// Files are deduplicated by device and inode, so symlinks and relative
// spellings of one file are read once. Every "-" collapses into a single
// stdin reader placed last.
func WithSourceFiles(ctx context.Context, sources []string) context.Context {
	src := buildSourceFiles(sources)
	if src == nil {
		return ctx
	}

	return context.WithValue(ctx, sourceFilesKey{}, src)
}

func buildSourceFiles(sources []string) SourceFiles {
	if len(sources) == 0 {
		return nil
	}

	var (
		readers  []io.Reader
		names    []string
		hasStdin bool
	)

	seen := make(map[fileKey]struct{})

	stdinInfo, _ := os.Stdin.Stat()
	stdinKey, _ := makeFileKey(stdinInfo)

	for _, src := range sources {
		if src == stdinSource {
			hasStdin = true

			continue
		}

		reader, key, ok := openUniqueFile(src, seen)
		if !ok {
			continue
		}

		// Stdin named by its device path is still read once, last.
		if key == stdinKey {
			hasStdin = true

			continue
		}

		readers = append(readers, reader)
		names = append(names, src)
	}

	if hasStdin {
		readers = append(readers, os.Stdin)
		names = append(names, stdinSource)
	}

	if len(readers) == 0 {
		return nil
	}

	return &sourceFiles{Reader: io.MultiReader(readers...), names: names}
}

// openUniqueFile opens the file at path unless a file with the same device
// and inode was already seen.
func openUniqueFile(path string, seen map[fileKey]struct{}) (io.Reader, fileKey, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fileKey{}, false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fileKey{}, false
	}

	key, ok := makeFileKey(info)
	if !ok {
		return nil, key, false
	}

	if _, exists := seen[key]; exists {
		return nil, key, false
	}

	seen[key] = struct{}{}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, key, false
	}

	return file, key, true
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	if info == nil {
		return key, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// sourceFilesFrom retrieves the [SourceFiles] stored in ctx by
// [WithSourceFiles], or nil.
func sourceFilesFrom(ctx context.Context) SourceFiles {
	r, _ := ctx.Value(sourceFilesKey{}).(SourceFiles)

	return r
}
