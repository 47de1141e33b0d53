package engine

import "codeberg.org/mutker/roadwatch/internal/errors"

const (
	ErrEntityNotFound   = errors.ErrEntityNotFound
	ErrDetectorNotFound = errors.ErrDetectorNotFound
	ErrInvalidConfig    = errors.ErrInvalidConfig
	ErrEngineClosed     = errors.ErrorCode("engine_closed")
)
