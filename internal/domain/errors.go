package domain

import "errors"

// ErrNotFound is returned when the requested trip does not exist in the
// canonical set. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. unknown emoji, duplicate trip id).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrStoreRead is returned when a backing store could not be read.
// During sync it aborts reconciliation for the cycle.
var ErrStoreRead = errors.New("store read failure")

// ErrStoreWrite is returned when a backing store rejected a write.
// The in-memory set is kept; the next mutation writes again.
var ErrStoreWrite = errors.New("store write failure")

// ErrSerialization is returned when a trip set could not be encoded or decoded.
// Loads treat it as "no data"; saves treat it as a failed write.
var ErrSerialization = errors.New("serialization failure")

// ErrSessionUnavailable is returned when an operation needs a signed-in user
// and there is none, or when a session token is rejected.
var ErrSessionUnavailable = errors.New("session unavailable")

// ErrForbidden is returned when the signed-in user lacks the entitlement
// for a gated feature. Handlers should map this to HTTP 403.
var ErrForbidden = errors.New("forbidden")
