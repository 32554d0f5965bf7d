package lang

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// globalCache stores parse results keyed by source content hash. Entries
// are shared read-only by every render of the same source.
var globalCache sync.Map

// entry tracks the single parse of one source.
type entry struct {
	once sync.Once
	root *Node
	err  error
}

// Hash returns the cache key of src.
func Hash(src string) uint64 {
	return xxh3.HashString(src)
}

// ParseString parses src, returning the cached AST when the same content
// was parsed before. Parse errors are cached too; the file name given with
// [WithFile] is applied to each returned error.
func ParseString(ctx context.Context, src string, opts ...Option) (*Node, error) {
	o := makeOptions(opts...)
	key := Hash(src)

	value, loaded := globalCache.LoadOrStore(key, new(entry))

	ent, ok := value.(*entry)
	if !ok {
		return nil, ErrReadInput.With(slog.String("issue", "invalid cache entry"))
	}

	o.logger.TraceContext(ctx, "cache lookup",
		slog.String("file", o.file),
		slog.String("source_hash", strconv.FormatUint(key, 16)),
		slog.Bool("cache_hit", loaded),
	)

	ent.once.Do(func() {
		ent.root, ent.err = Parse(ctx, src, WithLogger(o.logger))
	})

	if ent.err != nil {
		var pe *ParseError
		if errors.As(ent.err, &pe) && o.file != "" {
			return nil, pe.withFile(o.file)
		}

		return nil, ent.err
	}

	return ent.root, nil
}

// ParseReader reads all of r and parses it through the cache.
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Node, error) {
	// Read-ahead prefetches the next chunk while the previous one is copied.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	return ParseString(ctx, string(data), opts...)
}

// Forget drops the cached parse of the source with the given hash.
func Forget(hash uint64) {
	globalCache.Delete(hash)
}

// ClearCache removes every cached parse result.
func ClearCache() {
	globalCache.Clear()
}
