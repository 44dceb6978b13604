// Package repository implements MySQL persistence for users, tours and
// reviews. Sentinel errors defined here let handlers distinguish failure
// scenarios without inspecting driver error strings themselves.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique email
// constraint. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned when a tour insert or update collides with the
// unique tour name constraint. Handlers translate it into HTTP 409.
var ErrNameExists = errors.New("tour name already exists")

// ErrPasswordMismatch is returned when password and passwordConfirm differ
// at write time. The write is rejected, not just flagged.
var ErrPasswordMismatch = errors.New("passwords are not the same")
