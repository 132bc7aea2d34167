package schema

import (
	"encoding/json"
	"math"
	"sort"
	"time"
	"unicode/utf8"
)

// maxUnicodeLen is the rune length up to which strings infer as Unicode(N).
const maxUnicodeLen = 256

var unicodeType = TypeUnicode + "(256)"

// InferFromRecords derives field names and coarse field types from a sample.
// Field order is first-seen order, with each record's keys visited sorted so
// the result is deterministic for a given sample.
func InferFromRecords(records Records) (Schema, error) {
	if len(records) == 0 {
		return Schema{}, ErrEmptyPayload
	}

	types := make(map[string]string)
	var order []string
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, seen := types[k]; !seen {
				types[k] = ""
				order = append(order, k)
			}
			t := InferValueType(r[k])
			if t == "" {
				continue
			}
			types[k] = mergeTypes(types[k], t)
		}
	}

	s := Schema{Fields: make([]Field, len(order))}
	for i, name := range order {
		t := types[name]
		if t == "" {
			t = TypeUnicodeText
		}
		s.Fields[i] = Field{Name: name, Type: t}
	}
	return s, nil
}

// InferValueType returns the field type for a single value, or "" for nil.
func InferValueType(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		return TypeBoolean
	case int8, int16, int32, uint8, uint16:
		return TypeInteger
	case int:
		return intType(int64(val))
	case int64:
		return intType(val)
	case uint, uint32, uint64:
		return TypeBigInteger
	case float32:
		return floatType(float64(val))
	case float64:
		return floatType(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return intType(i)
		}
		return TypeFloat
	case time.Time:
		return TypeDateTime
	case string:
		if _, err := time.Parse(time.RFC3339, val); err == nil {
			return TypeDateTime
		}
		if utf8.RuneCountInString(val) <= maxUnicodeLen {
			return unicodeType
		}
		return TypeUnicodeText
	case []byte:
		return TypeUnicodeText
	case map[string]any, []any, Record:
		return TypeJSON
	default:
		return TypeUnicodeText
	}
}

func intType(i int64) string {
	if i > math.MaxInt32 || i < math.MinInt32 {
		return TypeBigInteger
	}
	return TypeInteger
}

func floatType(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return intType(int64(f))
	}
	return TypeFloat
}

// mergeTypes widens two observed types of one field.
func mergeTypes(a, b string) string {
	if a == "" || a == b {
		return b
	}
	ca, cb := TypeClass(a), TypeClass(b)
	switch {
	case isIntClass(ca) && isIntClass(cb):
		return TypeBigInteger
	case (isIntClass(ca) || ca == TypeFloat) && (isIntClass(cb) || cb == TypeFloat):
		return TypeFloat
	case ca == TypeUnicode && cb == TypeUnicode:
		return unicodeType
	}
	return TypeUnicodeText
}

func isIntClass(c string) bool {
	return c == TypeInteger || c == TypeBigInteger
}
