package mcpserver

import (
	"encoding/json"
	"fmt"
)

// parseJSON parses a JSON string into the target type.
func parseJSON(data string, target any) error {
	return json.Unmarshal([]byte(data), target)
}

// stringArg returns args[key] as a string, or "".
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// requireString returns args[key] or an error naming the missing argument.
func requireString(args map[string]any, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// objectArg accepts either a JSON-encoded string or an already decoded object.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var out map[string]any
		if err := parseJSON(v, &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		return out, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
