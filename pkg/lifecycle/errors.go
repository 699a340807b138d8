package lifecycle

import "errors"

// ErrAlreadyStarted is returned when a loop is started on a controller that already ran one
var ErrAlreadyStarted = errors.New("controller already started a loop")
