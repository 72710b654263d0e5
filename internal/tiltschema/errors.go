package tiltschema

import (
	"errors"
	"fmt"
)

// ErrSchemaFormat marks violations of the schema authoring conventions.
// These are fatal: they indicate a malformed static schema, not a runtime
// condition to recover from.
var ErrSchemaFormat = errors.New("schema format error")

// ErrSchemaPath marks a hierarchy path that does not exist in the schema,
// which indicates a corrupted task record.
var ErrSchemaPath = errors.New("schema path error")

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaFormat, fmt.Sprintf(format, args...))
}

func pathErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaPath, fmt.Sprintf(format, args...))
}
