package testutil

import "errors"

// ErrSimulated is a sentinel error for testing store failure paths.
var ErrSimulated = errors.New("simulated error for testing")
