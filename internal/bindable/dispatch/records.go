package dispatch

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/louisbranch/workspace/internal/platform/naming"
)

// RecordsKey is the mapping key list actions use for their records.
const RecordsKey = "records"

// Column is one inferred list column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// CountValue counts a list success value. A mapping counts its "records"
// entry, or its only entry when it has no "records"; a mapping with several
// other keys counts 0. A slice counts its elements and anything else counts
// as one.
func CountValue(value any) int {
	if value == nil {
		return 1
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return 1
		}
		records := rv.MapIndex(reflect.ValueOf(RecordsKey).Convert(rv.Type().Key()))
		if !records.IsValid() || isNil(records) {
			if rv.Len() != 1 {
				return 0
			}
			iter := rv.MapRange()
			iter.Next()
			records = iter.Value()
		}
		return entryLen(records)
	case reflect.Slice, reflect.Array:
		return rv.Len()
	default:
		return 1
	}
}

// entryLen counts a mapping entry: nil is empty, a sequence or mapping
// counts its elements and a scalar counts as one.
func entryLen(v reflect.Value) int {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	if isNil(v) {
		return 0
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len()
	default:
		return 1
	}
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// ExtractRecords normalizes a list success value into record maps. A mapping
// contributes its "records" entry; a slice contributes its elements. Elements
// that are not maps are converted through their JSON form and dropped when
// they do not encode as an object.
func ExtractRecords(value any) []map[string]any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map {
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		records := rv.MapIndex(reflect.ValueOf(RecordsKey).Convert(rv.Type().Key()))
		if !records.IsValid() {
			return nil
		}
		rv = records
		for rv.Kind() == reflect.Interface && !rv.IsNil() {
			rv = rv.Elem()
		}
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]map[string]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if record, ok := toRecord(rv.Index(i).Interface()); ok {
			out = append(out, record)
		}
	}
	return out
}

func toRecord(value any) (map[string]any, bool) {
	if record, ok := value.(map[string]any); ok {
		return record, true
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil || record == nil {
		return nil, false
	}
	return record, true
}

// InferColumns derives list columns from the keys of the first record,
// excluding "id", in key order.
func InferColumns(records []map[string]any) []Column {
	if len(records) == 0 {
		return nil
	}
	keys := make([]string, 0, len(records[0]))
	for key := range records[0] {
		if key == "id" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	columns := make([]Column, 0, len(keys))
	for _, key := range keys {
		columns = append(columns, Column{Key: key, Label: naming.Titleize(key)})
	}
	return columns
}
