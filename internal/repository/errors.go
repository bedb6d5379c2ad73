// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. ErrNotFound signals a missing row, ErrForbidden an
// operation on a resource owned by someone else, and ErrConflict a
// write that lost against existing state (a duplicate key, a seat
// already taken).
package repository

import "errors"

// ErrNotFound is returned when a lookup by key yields no rows.
// Handlers translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as a duplicate promotion code or a seat
// held by another session. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")
