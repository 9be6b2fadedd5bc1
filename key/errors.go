package key

import "errors"

// Errors returned while opening or reading a keyed archive (KEY/BIF/BZF).
var (
	// ErrInvalidSignature is returned when a KEY or data-archive
	// signature does not match one of the expected values.
	ErrInvalidSignature = errors.New("key: invalid signature")

	// ErrInvalidVersion is returned when the version field is not "V1  ".
	ErrInvalidVersion = errors.New("key: unsupported version")

	// ErrDataArchiveMissing is returned by Get when the data archive a
	// resource's packed id points at could not be opened. It is fatal
	// only for that identity, not for the archive as a whole.
	ErrDataArchiveMissing = errors.New("key: referenced data archive is unavailable")

	// ErrResourceNotFound is returned by Get when no table entry
	// matches the requested identity.
	ErrResourceNotFound = errors.New("key: resource not found")

	// ErrSizeMismatch is returned when a BZF payload's decompressed
	// length does not match the size recorded in the variable
	// resource table.
	ErrSizeMismatch = errors.New("key: decompressed size does not match table entry")

	// ErrDuplicateIdentity is returned when a KEY table lists the same
	// identity twice.
	ErrDuplicateIdentity = errors.New("key: identity appears more than once in archive")
)
