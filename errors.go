package authsync

import (
	errors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = "auth_invalid_credentials"
	TextCodeProviderUnavailable = "auth_provider_unavailable"
	TextCodeInvalidEmail        = "auth_invalid_email"
	TextCodeInvalidInput        = "auth_invalid_input"
	TextCodeProfileNotFound     = "profile_not_found"
	TextCodeTransportFailed     = "profile_transport_failed"
)

// ErrInvalidCredentials is returned when the provider rejects an email and
// password pair.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrProviderUnavailable is returned when the identity provider cannot be
// reached or answers with a server failure.
var ErrProviderUnavailable = errors.New("identity provider unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeProviderUnavailable)

// ErrInvalidEmail is returned when an email address fails validation before
// or at the provider.
var ErrInvalidEmail = errors.New("invalid email address", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(errors.CodeBadRequest)

// ErrInvalidInput is returned when a non-email field fails validation, such
// as a too-short password or a missing company name.
var ErrInvalidInput = errors.New("invalid input", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ErrProfileNotFound is returned when the backend has no profile row for the
// authenticated user.
var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrTransport is returned for backend API failures that are neither a
// missing profile nor a caller mistake.
var ErrTransport = errors.New("profile request failed", errors.CategoryOperation).
	WithTextCode(TextCodeTransportFailed)

// WrapProviderErr normalizes a raw provider failure into the package
// taxonomy, keeping the cause attached for logs.
func WrapProviderErr(err error) error {
	if err == nil {
		return nil
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		return err
	}

	clone := ErrProviderUnavailable.Clone()
	clone.Source = err
	return clone.WithMetadata(map[string]any{
		"cause": err.Error(),
	})
}
