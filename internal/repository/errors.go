package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrInvalidArgument indicates malformed input reached the repository.
var ErrInvalidArgument = errors.New("repository: invalid argument")
