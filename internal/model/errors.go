package model

import (
	"fmt"

	"github.com/23skdu/longbow-herald/internal/metrics"
)

// ConfigError reports an invalid hyperparameter combination at construction.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("model config: %s: %s", e.Field, e.Msg)
}

func configErrf(field, format string, args ...interface{}) *ConfigError {
	metrics.RecordValidationError("config", "invalid_"+field)
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// IndexError reports a token index outside [0, VocabSize). Indices are never
// clamped; an out-of-range token aborts the call.
type IndexError struct {
	Index     int
	VocabSize int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("model: token index %d out of range [0, %d)", e.Index, e.VocabSize)
}
