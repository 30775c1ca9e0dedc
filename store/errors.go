package store

import "errors"

// ErrNotFound is returned when no snapshot exists for the given key.
var ErrNotFound = errors.New("snapshot not found")
