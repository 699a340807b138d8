package probe

import "errors"

var (
	// ErrInvalidInterval is returned when the probe interval is not positive
	ErrInvalidInterval = errors.New("probe interval must be greater than 0")
	// ErrInvalidTimeout is returned when the probe timeout is not positive
	ErrInvalidTimeout = errors.New("probe timeout must be greater than 0")
	// ErrInvalidEmitTimeout is returned when the emit timeout is negative
	ErrInvalidEmitTimeout = errors.New("emit timeout must not be negative")
)
