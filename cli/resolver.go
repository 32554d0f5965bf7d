package cli

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/weft/pkg"
)

// ErrConfig is returned when a configuration file cannot be decoded.
var ErrConfig = pkg.NewError("invalid configuration file")

// resolve returns a [kong.ConfigurationLoader] reading YAML (or JSON)
// configuration files.
//
// Flags are read from the mapping under key section when present, and from
// the top-level mapping otherwise. Keys may spell flag names with hyphens
// or underscores:
//
//	log-level: debug
//	log_pretty: false
//	path: [./templates, ./layouts]
//	view: {users: users}
//
// Command-line flags override config file values. An empty file yields an
// empty configuration.
func resolve(section string) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return config{}, nil
			}

			return nil, ErrConfig.Wrap(err)
		}

		if sub, ok := doc[section].(map[string]any); ok {
			doc = sub
		}

		cfg := make(config, len(doc))
		for key, val := range doc {
			cfg[key] = flagText(val)
		}

		return cfg, nil
	}
}

// config implements [kong.Resolver] for decoded configuration files.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}

// flagText converts a decoded value into the form kong parses from the
// command line. Booleans pass through; numbers become strings; sequences
// join with "," and mappings join "k=v" pairs with ";".
func flagText(v any) any {
	switch v := v.(type) {
	case bool, string, nil:
		return v

	case int:
		return strconv.Itoa(v)

	case uint64:
		return strconv.FormatUint(v, 10)

	case int64:
		return strconv.FormatInt(v, 10)

	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)

	case []any:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(flagText(x))
		}

		return strings.Join(parts, ",")

	case map[string]any:
		parts := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			parts = append(parts, k+"="+fmt.Sprint(flagText(v[k])))
		}

		return strings.Join(parts, ";")

	default:
		return fmt.Sprint(v)
	}
}
