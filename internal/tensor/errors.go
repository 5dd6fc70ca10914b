package tensor

import (
	"fmt"

	"github.com/23skdu/longbow-herald/internal/metrics"
)

// ShapeError reports a dimension mismatch between tensor operands. Shape
// mismatches are fatal: operations never reshape or truncate silently.
type ShapeError struct {
	Op     string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor: %s: %s", e.Op, e.Detail)
}

// Errorf builds a *ShapeError and counts it in the validation metrics.
func Errorf(op, format string, args ...interface{}) *ShapeError {
	metrics.RecordValidationError(op, "shape_mismatch")
	return &ShapeError{Op: op, Detail: fmt.Sprintf(format, args...)}
}
