package monitor

import "codeberg.org/mutker/roadwatch/internal/errors"

const (
	ErrDetectorNotFound = errors.ErrDetectorNotFound
	ErrMalformedSample  = errors.ErrMalformedSample
)
