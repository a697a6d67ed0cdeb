package database

import "errors"

var (
	// ErrStubExists is returned when an attempt is made to create
	// a short link with a stub that is already taken.
	ErrStubExists = errors.New("stub exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// or mutate a link that doesn't exist.
	ErrLinkNotFound = errors.New("link not found")
)
