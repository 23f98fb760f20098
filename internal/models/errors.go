package models

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidState           = errors.New("invalid state")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidInput           = errors.New("invalid input")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrConfirmationInProgress = errors.New("confirmation already in progress")
)
