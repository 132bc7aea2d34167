package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPayload is returned when a schema is inferred from zero records.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrSchemaConflict is returned when a schema name is already stored
	// with different fields.
	ErrSchemaConflict = errors.New("schema name bound to different fields")

	// ErrSchemaType is matched by every *SchemaTypeError.
	ErrSchemaType = errors.New("schema type error")
)

// SchemaTypeError reports nominal fields missing from the inferred schema.
type SchemaTypeError struct {
	Nominal string
	Missing []string
}

func (e *SchemaTypeError) Error() string {
	return fmt.Sprintf("schema %s: fields missing from data: %s", e.Nominal, strings.Join(e.Missing, ", "))
}

func (e *SchemaTypeError) Is(target error) bool {
	return target == ErrSchemaType
}
