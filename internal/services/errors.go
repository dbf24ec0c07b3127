package services

import "errors"

// Sentinel errors shared by the entity services. Handlers map these onto
// HTTP status codes; anything else is treated as an internal error.
var (
	ErrEmailExists        = errors.New("email already in use by another account")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrQuotaExceeded      = errors.New("monthly listing quota exceeded")
	ErrReceiverNotPremium = errors.New("only premium agents can receive messages")
	ErrUploadFailed       = errors.New("image upload failed")
	ErrValidation         = errors.New("invalid request payload")
)
