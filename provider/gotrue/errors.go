package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	authsync "github.com/chatdock/go-authsync"
)

// apiError captures a normalized GoTrue error response.
type apiError struct {
	Operation   string
	Status      int
	Code        string
	Description string
}

func (e *apiError) Error() string {
	if e == nil {
		return "gotrue error"
	}
	if e.Description != "" {
		return fmt.Sprintf("gotrue %s failed: %s", scope(e), e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("gotrue %s failed: %s", scope(e), e.Code)
	}
	return fmt.Sprintf("gotrue %s failed: status %d", scope(e), e.Status)
}

func scope(e *apiError) string {
	if e.Operation != "" {
		return e.Operation
	}
	return "request"
}

// errorBody covers the response shapes GoTrue has used across versions.
type errorBody struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}

	switch {
	case body.ErrorCode != "":
		apiErr.Code = body.ErrorCode
	case body.Error != "":
		apiErr.Code = body.Error
	}
	switch {
	case body.ErrorDescription != "":
		apiErr.Description = body.ErrorDescription
	case body.Msg != "":
		apiErr.Description = body.Msg
	case body.Message != "":
		apiErr.Description = body.Message
	}

	return apiErr
}

func asAPIError(err error, target **apiError) bool {
	return errors.As(err, target)
}

// normalizeError maps raw transport and API failures into the authsync
// taxonomy, keeping the cause attached for logs.
func normalizeError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		clone := authsync.ErrProviderUnavailable.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{
			"operation": operation,
			"cause":     err.Error(),
		})
	}
	apiErr.Operation = operation

	sentinel := authsync.ErrProviderUnavailable
	switch {
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized:
		if apiErr.Code == "invalid_grant" || apiErr.Code == "invalid_credentials" || operation == "sign_in" {
			sentinel = authsync.ErrInvalidCredentials
		}
	case apiErr.Status == http.StatusUnprocessableEntity:
		sentinel = authsync.ErrInvalidEmail
	}

	clone := sentinel.Clone()
	clone.Source = apiErr
	return clone.WithMetadata(map[string]any{
		"operation": operation,
		"status":    apiErr.Status,
		"cause":     apiErr.Error(),
	})
}
