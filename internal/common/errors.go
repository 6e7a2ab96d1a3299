// Package common defines sentinel errors and constants shared by the
// repositories, services and transports of gophhabits. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorConflict is returned by repositories when an insert hits a
	// (habit, date) uniqueness constraint. Services recover from it.
	ErrorConflict = errors.New("conflict")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrorBackupsDisabled is returned when a snapshot upload is requested
	// but no object storage is configured.
	ErrorBackupsDisabled = errors.New("backups disabled")
)
