package apperrors

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("version conflict")
	ErrNoChange   = errors.New("no changes to apply")
	ErrValidation = errors.New("validation failed")
)
