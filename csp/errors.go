package csp

import "errors"

var (
	// ErrClosedChannel is returned by a blocking Send on a closed channel.
	ErrClosedChannel = errors.New("csp: send on closed channel")

	// ErrInvalidCapacity is returned by NewChannel for a negative capacity.
	ErrInvalidCapacity = errors.New("csp: invalid channel capacity")

	// ErrAllClearedSelect is returned by Select when every participating
	// operation has been cleared (or none were ever given): blocking
	// forever would be indistinguishable from a stuck program, so it is
	// surfaced instead.
	ErrAllClearedSelect = errors.New("csp: select has no active operations")
)
