package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// birthday does not exist, either at load time or when a conditional write
// discovers it has vanished.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions and value-object
// constructors when input fails business rule validation (e.g. missing
// required field, unparseable date, negative reminder offset).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrForbidden is returned by service functions when a birthday exists but is
// owned by a different user than the one making the request.
// Handlers should map this to HTTP 403, or to 404 when existence must be hidden.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned by repo Save implementations when a birthday with the
// same ID already exists.
// Handlers should map this to HTTP 409.
var ErrConflict = errors.New("conflict")
