// Package repository holds the MySQL data access layer.  Sentinel errors
// defined here let handlers pick a status code without inspecting driver
// errors.
package repository

import "errors"

// ErrConflict is returned when a write collides with existing state, such as
// a duplicate identifier.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an address that is taken.
var ErrEmailExists = errors.New("email already exists")
