package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the requested state transition is no longer valid,
// e.g. finalizing a draft that has already been finalized.
var ErrConflict = errors.New("resource state conflict")

// ErrForbidden indicates that the authenticated user may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvariantViolation is reserved for assertion failures the ledger should
// log rather than silently swallow, e.g. an ambiguous reciprocal match.
var ErrInvariantViolation = errors.New("ledger invariant violation")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")
