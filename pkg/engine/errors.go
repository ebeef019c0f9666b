package engine

import (
	"github.com/JacekPliszka/polars/pkg/engine/internal/errors"
	"github.com/JacekPliszka/polars/pkg/engine/internal/workers"
)

// Kinds of query errors. Use errors.Is to test an error for a kind.
var (
	ErrSchema         = errors.ErrSchema
	ErrDataType       = errors.ErrDataType
	ErrOrder          = errors.ErrOrder
	ErrJoinValidation = errors.ErrJoinValidation
	ErrShape          = errors.ErrShape
	ErrCompute        = errors.ErrCompute

	// ErrCancelled is returned when a query is cancelled while it runs.
	ErrCancelled = workers.ErrCancelled
)

// Error is the error type of the kinds above. Subject names the column or
// expression the error is about.
type Error = errors.Error
