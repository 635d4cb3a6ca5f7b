package api

import "errors"

// ErrInternal is reported when a handler panics.
var ErrInternal = errors.New("internal server error")
