package store

import "errors"

// ErrNotFound is returned by mutations whose target row does not exist.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

type scanner interface{ Scan(...any) error }
