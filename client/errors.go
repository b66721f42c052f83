package client

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	authsync "github.com/chatdock/go-authsync"
)

const genericFailure = "An error occurred"

// detailBody is the backend's error envelope.
type detailBody struct {
	Detail string `json:"detail"`
}

// errorFromResponse maps a non-2xx response into the authsync taxonomy,
// surfacing the detail field when present.
func errorFromResponse(method, path string, resp *http.Response) error {
	detail := genericFailure

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var body detailBody
		if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
			detail = body.Detail
		}
	}

	sentinel := authsync.ErrTransport
	if resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/customers") {
		sentinel = authsync.ErrProfileNotFound
	}

	clone := sentinel.Clone()
	return clone.WithMetadata(map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
		"detail": detail,
	})
}
