package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrOutOfRange     = errors.New("address outside any managed space")
	ErrHasAssignments = errors.New("space has assignments")
	ErrExhausted      = errors.New("no free address")
)
