package domain

import "errors"

// Shared persistence outcomes. Repositories translate driver errors into
// these so services never inspect SQL state directly.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)
