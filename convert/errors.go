package convert

import "errors"

// ErrCollision is returned when a model's offset graph cannot be
// rewritten because two insertion/removal points land on the same
// location, which would make the shift ambiguous.
var ErrCollision = errors.New("convert: conflicting offset-shift points")
