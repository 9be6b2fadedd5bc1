package erf

import "errors"

// Errors returned while opening, reading, or writing a capsule.
var (
	// ErrInvalidSignature is returned when a capsule's 4-byte
	// signature is not one of ERF/MOD/SAV/RIM, or its version is not
	// the expected one.
	ErrInvalidSignature = errors.New("erf: invalid signature")

	// ErrResourceNotFound is returned by Get when no record matches
	// the requested identity.
	ErrResourceNotFound = errors.New("erf: resource not found")

	// ErrDuplicateIdentity is returned when a capsule's resource list
	// names the same identity twice.
	ErrDuplicateIdentity = errors.New("erf: identity appears more than once in capsule")
)
