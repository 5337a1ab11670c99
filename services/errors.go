package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrForbidden           = errors.New("forbidden")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrProviderUnsupported = errors.New("oauth provider not supported")

	ErrInvalidCode     = errors.New("invalid verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrTooManyAttempts = errors.New("too many verification attempts")

	ErrLoadFailed         = errors.New("could not load data")
	ErrAreaNotFound       = errors.New("area not found")
	ErrListingNotFound    = errors.New("listing not found")
	ErrNotListingOwner    = errors.New("not the owner of this listing")
	ErrInvalidImage       = errors.New("unsupported image")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrAlreadyBooked      = errors.New("listing already booked by this renter")
	ErrOwnListing         = errors.New("cannot book own listing")
	ErrListingUnavailable = errors.New("listing is not available")
	ErrInvalidTransition  = errors.New("booking status cannot change")
	ErrPaymentFailed      = errors.New("payment failed")
)

// ValidationError is returned for bad input, before any store call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
