package monitor

import "errors"

var (
	// ErrInvalidTick is returned when the manager tick is not positive
	ErrInvalidTick = errors.New("manager tick must be greater than 0")
	// ErrInvalidResultBuffer is returned when the result buffer is negative
	ErrInvalidResultBuffer = errors.New("result buffer must not be negative")
	// ErrInvalidResyncInterval is returned when the resync interval is not positive
	ErrInvalidResyncInterval = errors.New("resync interval must be greater than 0")
)
