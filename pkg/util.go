package pkg

import (
	"iter"
	"slices"
)

// Map returns an iterator over fn applied to each value of seq.
func Map[T, U any](seq iter.Seq[T], fn func(T) U) iter.Seq[U] {
	return func(yield func(U) bool) {
		for x := range seq {
			if !yield(fn(x)) {
				return
			}
		}
	}
}

// AnyValues returns an iterator over v as values of type any.
func AnyValues[T any](v ...T) iter.Seq[any] {
	return Map(slices.Values(v), func(x T) any { return x })
}
