package link

import "errors"

// ErrNotFound is returned by any link-addressed operation that references an
// unknown identifier. Callers must be able to tell it apart from storage
// failures, so it is never wrapped into one.
var ErrNotFound = errors.New("link not found")
