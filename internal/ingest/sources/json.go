package sources

import (
	"fmt"
	"strings"

	"datablocks/internal/schema"
)

// navigatePath walks a dot-separated path into nested objects.
func navigatePath(obj any, path string) (any, error) {
	current := obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid data path: %q not found", part)
		}
		current = m[part]
	}
	return current, nil
}

// toRecords turns a decoded JSON value into records. Arrays keep their
// object elements; a lone object is one record. Nested values stay as they
// are and infer as JSON.
func toRecords(raw any) schema.Records {
	switch v := raw.(type) {
	case []any:
		records := make(schema.Records, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				records = append(records, schema.Record(m))
			}
		}
		return records
	case map[string]any:
		return schema.Records{schema.Record(v)}
	}
	return schema.Records{}
}
