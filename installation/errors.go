package installation

import "errors"

// ErrResourceNotFound is returned by Resource when no layer holds the
// requested identity.
var ErrResourceNotFound = errors.New("installation: resource not found")
