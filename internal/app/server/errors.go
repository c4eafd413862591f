package server

import "errors"

var (
	ErrEmptyName      = errors.New("empty display name")
	ErrDuplicateLogin = errors.New("name already bound to a live connection")
	ErrUnknownAction  = errors.New("unknown action kind")
)
