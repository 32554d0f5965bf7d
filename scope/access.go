package scope

import (
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lookup returns the attribute key of obj without consulting any scope.
func Lookup(obj any, key string) (any, bool) {
	return lookup(obj, key)
}

func lookup(obj any, key string) (any, bool) {
	switch o := obj.(type) {
	case nil:
		return nil, false
	case Bindable:
		return o.Get(key)
	case map[string]any:
		v, ok := o[key]

		return v, ok
	}

	rv := reflect.ValueOf(obj)

	if m, ok := method(rv, key); ok {
		return m.Interface(), true
	}

	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}

		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, false
		}

		v := rv.MapIndex(reflect.ValueOf(key).Convert(kt))
		if !v.IsValid() {
			return nil, false
		}

		return v.Interface(), true

	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}

		return rv.Index(i).Interface(), true

	case reflect.Struct:
		if f, ok := field(rv, key); ok {
			return f.Interface(), true
		}
	}

	return nil, false
}

// Method returns the method of obj named name, accepting the exported
// spelling of a lower-case name.
func Method(obj any, name string) (reflect.Value, bool) {
	if obj == nil {
		return reflect.Value{}, false
	}

	return method(reflect.ValueOf(obj), name)
}

func method(rv reflect.Value, name string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}

	for _, n := range spellings(name) {
		if m := rv.MethodByName(n); m.IsValid() {
			return m, true
		}
	}

	return reflect.Value{}, false
}

// field finds an exported struct field by name, exported spelling, or
// json tag.
func field(rv reflect.Value, key string) (reflect.Value, bool) {
	rt := rv.Type()

	for _, n := range spellings(key) {
		if sf, ok := rt.FieldByName(n); ok && sf.IsExported() {
			return rv.FieldByIndex(sf.Index), true
		}
	}

	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if tag == key {
			return rv.Field(i), true
		}
	}

	return reflect.Value{}, false
}

// spellings returns name and, if different, name with its first rune
// upper-cased.
func spellings(name string) []string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return []string{name}
	}

	return []string{name, string(unicode.ToUpper(r)) + name[size:]}
}

var errorType = reflect.TypeFor[error]()

// call invokes v if it is a function taking no arguments and returns its
// first result. A trailing non-nil error result is returned as the error.
func call(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return v, nil
	}

	rt := rv.Type()
	if rt.NumIn() != 0 || rt.NumOut() == 0 {
		return v, nil
	}

	out := rv.Call(nil)

	if last := out[len(out)-1]; rt.Out(len(out)-1) == errorType && !last.IsNil() {
		err, _ := last.Interface().(error)

		return nil, ErrCall.Wrap(err)
	}

	if len(out) == 1 && rt.Out(0) == errorType {
		return nil, nil
	}

	return out[0].Interface(), nil
}

// IsNil reports whether v is nil or a nil pointer, map, slice, or func.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// assign writes value to key of obj by reflection.
func assign(obj any, key string, value any) error {
	if m, ok := obj.(map[string]any); ok {
		m[key] = value

		return nil
	}

	fail := ErrNotWritable.With(
		slog.String("key", key),
		slog.String("type", reflect.TypeOf(obj).String()),
	)

	rv := reflect.ValueOf(obj)

	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		val, ok := convert(value, rv.Type().Elem())
		if !ok {
			return fail
		}

		rv.SetMapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()), val)

		return nil

	case rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct:
		f, ok := field(rv.Elem(), key)
		if !ok || !f.CanSet() {
			return fail
		}

		val, ok := convert(value, f.Type())
		if !ok {
			return fail
		}

		f.Set(val)

		return nil
	}

	return fail
}

func convert(value any, to reflect.Type) (reflect.Value, bool) {
	if value == nil {
		return reflect.Zero(to), true
	}

	v := reflect.ValueOf(value)

	switch {
	case v.Type().AssignableTo(to):
		return v, true
	case v.Type().ConvertibleTo(to) && v.Kind() != reflect.String:
		return v.Convert(to), true
	case v.Kind() == reflect.String && to.Kind() == reflect.String:
		return v.Convert(to), true
	default:
		return reflect.Value{}, false
	}
}
