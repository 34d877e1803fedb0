package tui

import "errors"

// ErrMissingResolver is returned when the resolver service is not provided.
var ErrMissingResolver = errors.New("tui: resolver service is required")

// ErrInvalidPorts is returned when ports is nil.
var ErrInvalidPorts = errors.New("tui: invalid ports configuration")
