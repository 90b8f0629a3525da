package apperrors

import "errors"

// ErrNotFound indicates that a requested document or resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed shape or value validation.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the operation is not allowed in the resource's current state,
// e.g. editing or deleting an approved transaction.
var ErrConflict = errors.New("operation conflicts with current state")

// ErrForbidden indicates the caller is not allowed to perform the operation.
var ErrForbidden = errors.New("operation not permitted")

// ErrIntegrity indicates prior persisted state is inconsistent (e.g. an account
// without its balances relation). Not user-recoverable.
var ErrIntegrity = errors.New("data integrity violation")

// ErrInternal indicates an unexpected internal failure.
var ErrInternal = errors.New("internal error")
