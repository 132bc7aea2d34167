package schema

import (
	"fmt"
	"strings"
)

// CastLevel is the strictness used when reconciling inferred and nominal schemas.
type CastLevel int

const (
	CastNone CastLevel = iota
	CastSoft
	CastHard
)

func (l CastLevel) String() string {
	switch l {
	case CastNone:
		return "none"
	case CastSoft:
		return "soft"
	case CastHard:
		return "hard"
	}
	return fmt.Sprintf("CastLevel(%d)", int(l))
}

func ParseCastLevel(s string) (CastLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return CastNone, nil
	case "soft":
		return CastSoft, nil
	case "hard":
		return CastHard, nil
	}
	return CastNone, fmt.Errorf("unknown cast level %q", s)
}

// CastToRealizedSchema reconciles the inferred schema of some data with the
// nominal schema its producer declared.
//
// A strict match returns nominal. When nominal declares a subset of the
// inferred fields, levels below HARD keep inferred and take nominal's field
// types, HARD returns nominal. When nominal declares fields the data lacks,
// SOFT and HARD fail with a *SchemaTypeError; NONE skips the check.
func CastToRealizedSchema(inferred, nominal Schema, level CastLevel) (Schema, error) {
	if nominal.IsAny() {
		return inferred, nil
	}
	if StrictMatch(inferred, nominal) {
		return nominal, nil
	}

	var missing []string
	for _, f := range nominal.Fields {
		if !inferred.HasField(f.Name) {
			missing = append(missing, f.Name)
		}
	}

	if len(missing) == 0 {
		if level >= CastHard {
			return nominal, nil
		}
		out := inferred.Clone()
		for i, f := range out.Fields {
			if nf, ok := nominal.Field(f.Name); ok {
				out.Fields[i].Type = nf.Type
			}
		}
		return out, nil
	}

	if level >= CastSoft {
		return Schema{}, &SchemaTypeError{Nominal: nominal.Key(), Missing: missing}
	}
	return inferred, nil
}

// StrictMatch reports whether both schemas have the same field names and
// every field shares a type class.
func StrictMatch(a, b Schema) bool {
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for _, f := range a.Fields {
		other, ok := b.Field(f.Name)
		if !ok || !SameTypeClass(f.Type, other.Type) {
			return false
		}
	}
	return true
}
