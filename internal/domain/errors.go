package domain

import "errors"

var (
	// Generation errors. Transport failures live in pkg/ai and never reach here.
	ErrParse = errors.New("model output could not be parsed")

	// Driver errors
	ErrOperatorAbort = errors.New("operator aborted the session")

	// Storage errors
	ErrPersistence     = errors.New("persistence failed") // fatal for the driver
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUsername = errors.New("username is empty")
)
