package ingest

import (
	"fmt"
	"sort"
	"strings"

	"datablocks/internal/schema"
)

// ── Transforms ─────────────────────────────────────────────
// Transforms reshape imported records before they become a block. Each
// step sees one record and returns it (possibly modified) plus whether to
// keep it. Sort is the exception: it needs every record and runs last.

// TransformSpec is a declarative transform as it arrives in JSON or flags.
type TransformSpec struct {
	Type   string         `json:"type"` // filter | rename | select | dedupe | sort | limit | type_cast | default_value
	Config map[string]any `json:"config"`
}

// Transformer processes a single record.
type Transformer interface {
	Transform(schema.Record) (schema.Record, bool)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(schema.Record) (schema.Record, bool)

func (f TransformerFunc) Transform(r schema.Record) (schema.Record, bool) { return f(r) }

// Pipeline is a built transform chain.
type Pipeline struct {
	steps []Transformer
	sort  *sortStep
}

// BuildPipeline validates specs and builds the chain. Unknown types and
// missing required keys are errors rather than silently skipped steps.
func BuildPipeline(specs []TransformSpec) (*Pipeline, error) {
	p := &Pipeline{}
	for i, spec := range specs {
		cfg := SourceConfig(spec.Config)
		fail := func(key string) error {
			return fmt.Errorf("transform %d (%s): %s is required", i, spec.Type, key)
		}
		switch spec.Type {
		case "filter":
			field, op := cfg.String("field"), cfg.String("op")
			if field == "" {
				return nil, fail("field")
			}
			if op == "" {
				op = "eq"
			}
			p.steps = append(p.steps, filterStep(field, op, spec.Config["value"]))

		case "rename":
			mapping, ok := spec.Config["mapping"].(map[string]any)
			if !ok || len(mapping) == 0 {
				return nil, fail("mapping")
			}
			p.steps = append(p.steps, renameStep(mapping))

		case "select":
			fields := stringList(spec.Config["fields"])
			if len(fields) == 0 {
				return nil, fail("fields")
			}
			p.steps = append(p.steps, selectStep(fields))

		case "dedupe":
			key := cfg.String("key")
			if key == "" {
				return nil, fail("key")
			}
			p.steps = append(p.steps, dedupeStep(key))

		case "sort":
			field := cfg.String("field")
			if field == "" {
				return nil, fail("field")
			}
			p.sort = &sortStep{field: field, desc: strings.EqualFold(cfg.String("direction"), "desc")}

		case "limit":
			count, ok := schema.ToFloat(spec.Config["count"])
			if !ok || count <= 0 {
				return nil, fail("count")
			}
			p.steps = append(p.steps, limitStep(int(count)))

		case "type_cast":
			field, castType := cfg.String("field"), cfg.String("castType")
			if field == "" || castType == "" {
				return nil, fail("field and castType")
			}
			fieldType, ok := castTypes[strings.ToLower(castType)]
			if !ok {
				return nil, fmt.Errorf("transform %d: unknown castType %q", i, castType)
			}
			p.steps = append(p.steps, castStep(field, fieldType))

		case "default_value":
			field := cfg.String("field")
			if field == "" {
				return nil, fail("field")
			}
			p.steps = append(p.steps, defaultStep(field, spec.Config["defaultValue"]))

		default:
			return nil, fmt.Errorf("transform %d: unknown type %q", i, spec.Type)
		}
	}
	return p, nil
}

// Empty reports whether the pipeline would leave records untouched.
func (p *Pipeline) Empty() bool { return len(p.steps) == 0 && p.sort == nil }

// Apply runs the chain over records. Input records are copied, not mutated.
func (p *Pipeline) Apply(records schema.Records) schema.Records {
	out := make(schema.Records, 0, len(records))
next:
	for _, rec := range records {
		r := make(schema.Record, len(rec))
		for k, v := range rec {
			r[k] = v
		}
		for _, t := range p.steps {
			var keep bool
			if r, keep = t.Transform(r); !keep {
				continue next
			}
		}
		out = append(out, r)
	}
	if p.sort != nil {
		p.sort.apply(out)
	}
	return out
}

// ── Steps ──────────────────────────────────────────────────

func filterStep(field, op string, value any) Transformer {
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		v, ok := r[field]
		if !ok {
			return r, false
		}
		switch op {
		case "eq":
			return r, fmt.Sprint(v) == fmt.Sprint(value)
		case "neq":
			return r, fmt.Sprint(v) != fmt.Sprint(value)
		case "contains":
			return r, strings.Contains(fmt.Sprint(v), fmt.Sprint(value))
		case "gt":
			return r, compareValues(v, value) > 0
		case "lt":
			return r, compareValues(v, value) < 0
		}
		return r, true
	})
}

func renameStep(mapping map[string]any) Transformer {
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		for from, to := range mapping {
			if v, ok := r[from]; ok {
				delete(r, from)
				r[fmt.Sprint(to)] = v
			}
		}
		return r, true
	})
}

func selectStep(fields []string) Transformer {
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		kept := make(schema.Record, len(fields))
		for _, f := range fields {
			if v, ok := r[f]; ok {
				kept[f] = v
			}
		}
		return kept, true
	})
}

func dedupeStep(key string) Transformer {
	seen := map[string]bool{}
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		v := fmt.Sprint(r[key])
		if seen[v] {
			return r, false
		}
		seen[v] = true
		return r, true
	})
}

func limitStep(count int) Transformer {
	n := 0
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		n++
		return r, n <= count
	})
}

// castTypes maps transform cast names onto schema field types.
var castTypes = map[string]string{
	"number":   schema.TypeFloat,
	"float":    schema.TypeFloat,
	"integer":  schema.TypeInteger,
	"string":   schema.TypeUnicodeText,
	"bool":     schema.TypeBoolean,
	"boolean":  schema.TypeBoolean,
	"datetime": schema.TypeDateTime,
	"json":     schema.TypeJSON,
}

// castStep coerces field the same way a block read "as" a schema does:
// values that do not convert are left as they are.
func castStep(field, fieldType string) Transformer {
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		if v, ok := r[field]; ok && v != nil {
			r[field] = schema.Coerce(fieldType, v)
		}
		return r, true
	})
}

func defaultStep(field string, value any) Transformer {
	return TransformerFunc(func(r schema.Record) (schema.Record, bool) {
		if v, ok := r[field]; !ok || v == nil || v == "" {
			r[field] = value
		}
		return r, true
	})
}

type sortStep struct {
	field string
	desc  bool
}

func (s *sortStep) apply(records schema.Records) {
	sort.SliceStable(records, func(i, j int) bool {
		c := compareValues(records[i][s.field], records[j][s.field])
		if s.desc {
			return c > 0
		}
		return c < 0
	})
}

// ── Helpers ────────────────────────────────────────────────

func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		return l
	case []any:
		out := make([]string, 0, len(l))
		for _, f := range l {
			out = append(out, fmt.Sprint(f))
		}
		return out
	case string:
		var out []string
		for _, f := range strings.Split(l, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	}
	return nil
}

func compareValues(a, b any) int {
	fa, aOk := schema.ToFloat(a)
	fb, bOk := schema.ToFloat(b)
	if aOk && bOk {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
