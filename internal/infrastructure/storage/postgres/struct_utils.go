package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// ExtractDBColumns lists column names from struct "db" tags, descending into
// embedded structs such as entity.BaseEntity. Call it once at init.
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	return meta.columns
}

type fieldInfo struct {
	index  []int
	column string
}

type typeMetadata struct {
	fields  []fieldInfo
	columns []string
}

var typeCache sync.Map // map[reflect.Type]*typeMetadata

func metadataFor(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		collectFields(t, nil, meta)
	}
	typeCache.Store(t, meta)
	return meta
}

func collectFields(t reflect.Type, parent []int, meta *typeMetadata) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(slices.Clone(parent), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, index, meta)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		meta.fields = append(meta.fields, fieldInfo{index: index, column: tag})
		meta.columns = append(meta.columns, tag)
	}
}

// StructToMap converts a struct to a column map using "db" tags.
// Columns named in skip are left out.
func StructToMap(v any, skip ...string) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	meta := metadataFor(rv.Type())
	res := make(map[string]any, len(meta.fields))
	for _, fi := range meta.fields {
		if slices.Contains(skip, fi.column) {
			continue
		}
		res[fi.column] = rv.FieldByIndex(fi.index).Interface()
	}
	return res
}
