package model

import "errors"

var (
	// ErrDataUnavailable means the market or news provider could not be reached
	// or answered with an unusable payload.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrInsufficientData means a component received fewer usable rows than it needs.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidCriteria means filter criteria failed validation.
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrNotificationFailure means the alert sink rejected or failed to deliver a message.
	ErrNotificationFailure = errors.New("notification failure")
)
