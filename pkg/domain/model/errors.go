package model

import "errors"

// Error categories. Every domain error belongs to exactly one of them and
// errors.Is(err, ErrNotFound) and friends classify it.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type domainError struct {
	kind error
	msg  string
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Is(target error) bool { return target == e.kind }

func newError(kind error, msg string) error {
	return &domainError{kind: kind, msg: msg}
}

var (
	ErrAlreadyFrozen = newError(ErrNotFound, "entity is already frozen")
	ErrNotFrozen     = newError(ErrNotFound, "entity is not frozen")
	ErrNothingToDo   = newError(ErrBadRequest, "at least one field must be provided")
)
