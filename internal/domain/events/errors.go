package events

import "errors"

var (
	ErrNotFound  = errors.New("event not found")
	ErrForbidden = errors.New("permission denied")
)
