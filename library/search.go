package library

import (
	"os"
	"strings"

	"github.com/ardnew/mung"
	"github.com/spf13/afero"
)

// SearchPath composes the template search path: dirs first, then the
// entries of the path list env, keeping only directories that exist on
// fsys. Duplicates keep their first position.
func SearchPath(fsys afero.Fs, env string, dirs ...string) []string {
	list := mung.Make(
		mung.WithSubjectItems(env),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(dirs...),
		mung.WithFilter(func(dir string) bool {
			ok, _ := afero.DirExists(fsys, dir)

			return ok
		}),
	).String()

	var out []string

	for _, dir := range strings.Split(list, string(os.PathListSeparator)) {
		if dir != "" {
			out = append(out, dir)
		}
	}

	return out
}
