package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Mapping renames fields and recasts their values.
type Mapping struct {
	Renames map[string]string `json:"renames,omitempty"` // source name → target name
	Casts   map[string]string `json:"casts,omitempty"`   // target name → field type
}

func (m Mapping) IsEmpty() bool {
	return len(m.Renames) == 0 && len(m.Casts) == 0
}

// TranslationFor maps the fields of from onto the fields of to. Names are
// matched exactly first, then ignoring case and punctuation.
func TranslationFor(from, to Schema) Mapping {
	m := Mapping{Renames: map[string]string{}, Casts: map[string]string{}}
	used := map[string]bool{}
	for _, tf := range to.Fields {
		src, ok := from.Field(tf.Name)
		if !ok {
			norm := normalizeName(tf.Name)
			for _, ff := range from.Fields {
				if !used[ff.Name] && normalizeName(ff.Name) == norm {
					src, ok = ff, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		used[src.Name] = true
		if src.Name != tf.Name {
			m.Renames[src.Name] = tf.Name
		}
		if !SameTypeClass(src.Type, tf.Type) {
			m.Casts[tf.Name] = tf.Type
		}
	}
	return m
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Apply returns new records with the mapping applied.
func (rs Records) Apply(m Mapping) Records {
	out := make(Records, len(rs))
	for i, r := range rs {
		out[i] = r.Apply(m)
	}
	return out
}

// Apply returns a new record with the mapping applied.
func (r Record) Apply(m Mapping) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if to, ok := m.Renames[k]; ok {
			k = to
		}
		out[k] = v
	}
	for name, t := range m.Casts {
		if v, ok := out[name]; ok {
			out[name] = Coerce(t, v)
		}
	}
	return out
}

// Coerce converts v to the Go representation of the given field type.
// Values that cannot be converted are returned unchanged.
func Coerce(fieldType string, v any) any {
	if v == nil {
		return nil
	}
	switch TypeClass(fieldType) {
	case TypeInteger, TypeBigInteger:
		if n, ok := toInt(v); ok {
			return n
		}
	case TypeFloat:
		if f, ok := toFloat(v); ok {
			return f
		}
	case TypeBoolean:
		if b, ok := ToBool(v); ok {
			return b
		}
	case TypeUnicode, TypeUnicodeText:
		switch val := v.(type) {
		case string:
			return val
		case []byte:
			return string(val)
		case map[string]any, []any:
			if data, err := json.Marshal(val); err == nil {
				return string(data)
			}
		}
		return fmt.Sprint(v)
	case TypeDateTime:
		if s, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
	case TypeJSON:
		if s, ok := v.(string); ok {
			var out any
			if json.Unmarshal([]byte(s), &out) == nil {
				return out
			}
		}
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// toInt converts v to int64 without going through float64 unless v is a
// float with no fractional part that fits.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		t := strings.TrimSpace(n)
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToFloat converts numbers, numeric strings and booleans to float64.
func ToFloat(v any) (float64, bool) {
	return toFloat(v)
}

// ToBool parses v as a boolean. Strings accept true/false, yes/no, 1/0;
// numbers are true when non-zero. ok is false when v is not a boolean.
func ToBool(v any) (b, ok bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "1", "t", "y":
			return true, true
		case "false", "no", "0", "f", "n":
			return false, true
		}
		return false, false
	default:
		f, ok := toFloat(v)
		if !ok {
			return false, false
		}
		return f != 0, true
	}
}
