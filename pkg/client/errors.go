package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested target does not exist
	ErrNotFound = errors.New("target not found")
	// ErrBadRequest is returned when the api rejected the request
	ErrBadRequest = errors.New("bad request")
	// ErrInvalidServer is returned when the server url is not a http(s) url
	ErrInvalidServer = errors.New("invalid server url")
	// ErrInvalidTimeout is returned when the request timeout is not positive
	ErrInvalidTimeout = errors.New("invalid request timeout")
	// ErrInvalidRetry is returned when the retry configuration is negative
	ErrInvalidRetry = errors.New("invalid retry configuration")
)

// ErrUnexpectedStatus is returned for any response status the client does not handle
type ErrUnexpectedStatus struct {
	Code int
	Body string
}

func (e ErrUnexpectedStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}
