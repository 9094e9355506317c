// Package vis turns correlator cycles into calibrated spectra and
// channel-averaged quantities.
package vis

import "errors"

var (
	// ErrNotFound is returned when a window or polarisation is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidBaseline marks a sample whose baseline has no index in the
	// cycle; the cycle is treated as corrupt.
	ErrInvalidBaseline = errors.New("invalid baseline")
	ErrUnknownAction   = errors.New("unknown tsys action")
	ErrBadFactor       = errors.New("averaging factor must be positive")
)
