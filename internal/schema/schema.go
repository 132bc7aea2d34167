package schema

import (
	"strings"

	"github.com/google/uuid"
)

// Field type identifiers.
const (
	TypeInteger     = "Integer"
	TypeBigInteger  = "BigInteger"
	TypeFloat       = "Float"
	TypeBoolean     = "Boolean"
	TypeUnicode     = "Unicode"
	TypeUnicodeText = "UnicodeText"
	TypeDateTime    = "DateTime"
	TypeJSON        = "JSON"
)

// AnyKey is the key of the dynamic schema.
const AnyKey = "Any"

var keyNamespace = uuid.MustParse("6f1d3c1e-5b0a-4b8e-9a57-2d43f6c0a1b9")

// Field describes a single named, typed column.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // e.g. "Integer", "Unicode(256)"
}

// Schema is an ordered set of fields. A schema without fields and without a
// name is the dynamic "Any" schema.
type Schema struct {
	Name   string  `json:"name,omitempty"`
	Fields []Field `json:"fields"`
}

// Any returns the dynamic schema that defers to whatever is inferred.
func Any() Schema {
	return Schema{Name: AnyKey}
}

func (s Schema) IsAny() bool {
	return len(s.Fields) == 0 && (s.Name == "" || s.Name == AnyKey)
}

// FieldNames returns field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) HasField(name string) bool {
	_, ok := s.Field(name)
	return ok
}

// Key is the stable identifier a schema is stored under.
func (s Schema) Key() string {
	if s.IsAny() {
		return AnyKey
	}
	if s.Name != "" {
		return s.Name
	}
	var b strings.Builder
	for _, f := range s.Fields {
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type)
		b.WriteByte(';')
	}
	return "schema_" + strings.ReplaceAll(uuid.NewSHA1(keyNamespace, []byte(b.String())).String(), "-", "")
}

// Clone returns a copy with its own field slice.
func (s Schema) Clone() Schema {
	out := Schema{Name: s.Name, Fields: make([]Field, len(s.Fields))}
	copy(out.Fields, s.Fields)
	return out
}

// TypeClass strips the parametrization from a field type,
// so "Unicode(256)" and "Unicode(32)" share the class "Unicode".
func TypeClass(fieldType string) string {
	if i := strings.Index(fieldType, "("); i >= 0 {
		return strings.TrimSpace(fieldType[:i])
	}
	return strings.TrimSpace(fieldType)
}

// SameTypeClass reports whether two field types belong to the same class.
func SameTypeClass(a, b string) bool {
	return TypeClass(a) == TypeClass(b)
}

// ── Records ────────────────────────────────────────────────

// Record is a single row keyed by field name.
type Record map[string]any

// Records is an ordered list of rows.
type Records []Record

// Clone deep-copies the row maps. Nested values are shared.
func (rs Records) Clone() Records {
	out := make(Records, len(rs))
	for i, r := range rs {
		c := make(Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
