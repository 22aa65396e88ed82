package models

import "errors"

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (e.g. a campaign slot) already exists.
	ErrDuplicate = errors.New("duplicate record")
)
