package repository

import "errors"

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrMessageInUse is returned when deleting a message that a schedule
	// still references.
	ErrMessageInUse = errors.New("message is referenced by a schedule")

	// ErrDuplicateEmail is returned when a recipient email collides with an
	// existing row (emails are unique, case-insensitive).
	ErrDuplicateEmail = errors.New("recipient email already exists")
)
