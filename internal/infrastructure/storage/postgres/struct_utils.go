package postgres

import (
	"fmt"
	"reflect"
	"sync"
)

// rowLayout maps the db-tagged fields of a row type, including those promoted
// from entity.BaseDocument, to their field index paths. Fields tagged "-"
// (order lines, return lines) are written by their own repositories.
type rowLayout struct {
	columns []string
	paths   map[string][]int
}

var layouts sync.Map // reflect.Type -> *rowLayout

func layoutOf(t reflect.Type) *rowLayout {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := layouts.Load(t); ok {
		return cached.(*rowLayout)
	}

	layout := &rowLayout{paths: make(map[string][]int)}
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if f.Anonymous || !f.IsExported() {
				continue
			}
			col := f.Tag.Get("db")
			if col == "" || col == "-" {
				continue
			}
			// First field tagged with a column wins.
			if _, dup := layout.paths[col]; dup {
				continue
			}
			layout.columns = append(layout.columns, col)
			layout.paths[col] = f.Index
		}
	}

	actual, _ := layouts.LoadOrStore(t, layout)
	return actual.(*rowLayout)
}

// ExtractDBColumns returns the column names of T in declaration order,
// BaseDocument columns first.
//
//	columns := ExtractDBColumns[supply.SupplyPayment]()
//	// ["id", "number", "version", "created_at", "updated_at", "supply_order_id", ...]
func ExtractDBColumns[T any]() []string {
	layout := layoutOf(reflect.TypeFor[T]())
	return append([]string(nil), layout.columns...)
}

func structValue(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}

// StructToMap returns the db-tagged fields of v keyed by column.
// Nil or non-struct values yield nil.
func StructToMap(v any) map[string]any {
	rv, ok := structValue(v)
	if !ok {
		return nil
	}
	layout := layoutOf(rv.Type())
	res := make(map[string]any, len(layout.columns))
	for _, col := range layout.columns {
		res[col] = rv.FieldByIndex(layout.paths[col]).Interface()
	}
	return res
}

// RowValues returns the values of cols from v in the same order, for one
// VALUES tuple of a multi-row insert.
func RowValues(v any, cols []string) ([]any, error) {
	rv, ok := structValue(v)
	if !ok {
		return nil, fmt.Errorf("row values: %T is not a struct", v)
	}
	layout := layoutOf(rv.Type())
	values := make([]any, len(cols))
	for i, col := range cols {
		path, ok := layout.paths[col]
		if !ok {
			return nil, fmt.Errorf("row values: %s has no column %q", rv.Type().Name(), col)
		}
		values[i] = rv.FieldByIndex(path).Interface()
	}
	return values, nil
}
