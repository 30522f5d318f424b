// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as handlers
// and the auth service to distinguish between different failure scenarios
// without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers should
// translate this into an HTTP 404 (or, on the login path, into the
// account-not-found auth error).
var ErrNotFound = errors.New("not found")

// ErrAccountExists is returned when an insert collides with the unique
// account name constraint. Handlers should translate this into HTTP 409.
var ErrAccountExists = errors.New("account already exists")

// ErrPatientExists is returned when a patient insert collides with the
// unique identifier constraint.
var ErrPatientExists = errors.New("patient identifier already exists")
