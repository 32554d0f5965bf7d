package eval

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/scope"
)

// value evaluates x under sc. Paths contribute the reference they
// resolved through; literals contribute none.
func value(sc *scope.Scope, x lang.Expr) (any, []scope.Ref, error) {
	switch x.Kind {
	case lang.ExprNumber:
		if i, err := strconv.Atoi(x.Source); err == nil {
			return i, nil, nil
		}

		return x.Number(), nil, nil

	case lang.ExprString:
		return x.String(), nil, nil

	case lang.ExprArray:
		var (
			items = make([]any, 0, len(x.Items))
			refs  []scope.Ref
		)

		for _, it := range x.Items {
			v, r, err := value(sc, it)
			if err != nil {
				return nil, nil, err
			}

			items = append(items, v)
			refs = append(refs, r...)
		}

		return items, refs, nil

	case lang.ExprPath:
		res, err := sc.Resolve(x.Path())
		if err != nil {
			return nil, nil, err
		}

		return res.Value, []scope.Ref{res.Ref}, nil
	}

	return nil, nil, lang.ErrInvalidExpression.With(slog.String("expr", x.Source))
}

// values evaluates each expression in xs.
func values(sc *scope.Scope, xs []lang.Expr) ([]any, []scope.Ref, error) {
	var (
		out  = make([]any, 0, len(xs))
		refs []scope.Ref
	)

	for _, x := range xs {
		v, r, err := value(sc, x)
		if err != nil {
			return nil, nil, err
		}

		out = append(out, v)
		refs = append(refs, r...)
	}

	return out, refs, nil
}

// interpolate replaces each mustache in s with its stringified value.
func interpolate(sc *scope.Scope, s string) (string, []scope.Ref, error) {
	if !lang.HasMustache(s) {
		return s, nil, nil
	}

	segs, err := lang.Segments(s)
	if err != nil {
		return "", nil, err
	}

	var (
		sb   strings.Builder
		refs []scope.Ref
	)

	for _, seg := range segs {
		if seg.Expr == nil {
			sb.WriteString(seg.Text)

			continue
		}

		v, r, err := value(sc, *seg.Expr)
		if err != nil {
			return "", nil, err
		}

		sb.WriteString(Stringify(v))
		refs = append(refs, r...)
	}

	return sb.String(), refs, nil
}

// Stringify formats v for output. Nil renders empty, numbers without
// exponent or trailing zeros, and sequences as comma-separated items.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case []any:
		parts := make([]string, len(t))
		for i, x := range t {
			parts[i] = Stringify(x)
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprint(v)
}

// Truthy reports whether v counts as true in a condition: false, nil,
// zero numbers, and empty strings or collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case Collection:
		return len(t.Values()) > 0
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}

	if f, ok := number(v); ok {
		return f != 0
	}

	return true
}

// number converts numeric values, and strings holding one, to float64.
func number(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

		return f, err == nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}

	return 0, false
}

func isNumeric(v any) bool {
	if _, ok := v.(string); ok {
		return false
	}

	_, ok := number(v)

	return ok
}

// Equal compares a and b. Numbers compare by value regardless of type, a
// number and a numeric string compare as numbers, and anything else must
// be deeply equal.
func Equal(a, b any) bool {
	if isNumeric(a) || isNumeric(b) {
		x, okx := number(a)
		y, oky := number(b)

		if okx && oky {
			return x == y
		}
	}

	return reflect.DeepEqual(a, b)
}

// Greater reports whether a is greater than b, comparing numerically when
// both are numbers and lexically when both are strings.
func Greater(a, b any) bool {
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			if x, okx := number(sa); okx {
				if y, oky := number(sb); oky {
					return x > y
				}
			}

			return sa > sb
		}
	}

	x, okx := number(a)
	y, oky := number(b)

	return okx && oky && x > y
}

// Iterate returns the items of v: the values of a [Collection], the
// elements of a slice or array, or the yield of an iterator. Nil has no
// items.
func Iterate(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case Collection:
		return t.Values(), nil
	case iter.Seq[any]:
		var out []any
		for x := range t {
			out = append(out, x)
		}

		return out, nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}

		return out, nil
	}

	return nil, ErrNotIterable.With(slog.String("type", fmt.Sprintf("%T", v)))
}

// coerce converts input text to the type of the value it replaces.
func coerce(prev any, s string) any {
	switch prev.(type) {
	case bool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case int:
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
	case int64:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case float64:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}
