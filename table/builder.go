package table

import (
	"reflect"
	"strings"
	"sync"
)

// FilterableColumnConfig is the short form of a column: a row key plus presentation hints.
// Nil flags default to true.
type FilterableColumnConfig[R any] struct {
	Key            string
	TranslateKey   string
	FilterCategory string
	CustomCell     RenderFunc[R]
	NormalizeValue func(string) string
	Sortable       *bool
	Filterable     *bool
	Visible        *bool
}

// FilterableColumn expands a config into a full Column that reads the row field named Key, is
// hidable, and filters by exact match on the normalized value.
func FilterableColumn[R any](cfg FilterableColumnConfig[R]) Column[R] {
	col := Column[R]{
		ID:             cfg.Key,
		Header:         cfg.TranslateKey,
		FilterCategory: cfg.FilterCategory,
		Accessor:       KeyAccessor[R](cfg.Key),
		Render:         cfg.CustomCell,
		FilterFn:       FilterExact,
		Sortable:       deref(cfg.Sortable, true),
		Filterable:     deref(cfg.Filterable, true),
		Hidable:        true,
		Hidden:         !deref(cfg.Visible, true),
	}
	if col.Header == "" {
		col.Header = cfg.Key
	}
	if col.FilterCategory == "" {
		col.FilterCategory = col.Header
	}
	if cfg.NormalizeValue != nil {
		col.Normalize = StringNormalizer(cfg.NormalizeValue)
	}
	return col
}

// StringNormalizer lifts a text normalizer to a NormalizeFunc. Non-text values pass through.
func StringNormalizer(f func(string) string) NormalizeFunc {
	return func(v any) any {
		if s, ok := Indirect(v).(string); ok {
			return f(s)
		}
		return v
	}
}

func deref(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// KeyAccessor reads key from map rows (string keyed) or from struct rows, matching the field name
// or its json tag.
func KeyAccessor[R any](key string) Accessor[R] {
	return func(row R) any {
		return lookupKey(any(row), key)
	}
}

func lookupKey(row any, key string) any {
	switch r := row.(type) {
	case map[string]any:
		return r[key]
	case map[string]string:
		v, ok := r[key]
		if !ok {
			return nil
		}
		return v
	}

	rv := reflect.ValueOf(row)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Struct:
		idx, ok := structFieldIndex(rv.Type(), key)
		if !ok {
			return nil
		}
		return rv.FieldByIndex(idx).Interface()
	}
	return nil
}

type fieldCacheKey struct {
	t   reflect.Type
	key string
}

var fieldCache sync.Map

func structFieldIndex(t reflect.Type, key string) ([]int, bool) {
	ck := fieldCacheKey{t: t, key: key}
	if cached, ok := fieldCache.Load(ck); ok {
		idx := cached.([]int)
		return idx, idx != nil
	}

	var found []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		tag := strings.Split(f.Tag.Get("json"), ",")[0]
		if f.Name == key || tag == key {
			found = f.Index
			break
		}
	}
	fieldCache.Store(ck, found)
	return found, found != nil
}
