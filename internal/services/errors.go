package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/pitch/internal/shared"
)

// ServiceError is a failure reported by the backend, either through a non-2xx status or an `error` field in the body.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return shared.ErrAPIRequest
}

// newServiceError prefers the server's own message and falls back to the status.
func newServiceError(resp *APIResponse) *ServiceError {
	var body struct {
		Error string `json:"error"`
	}
	if resp.IsJSON {
		_ = json.Unmarshal(resp.Body, &body)
	}

	msg := strings.TrimSpace(body.Error)
	if msg == "" {
		msg = fmt.Sprintf("server error %d", resp.StatusCode)
	}
	return &ServiceError{Status: resp.StatusCode, Message: msg}
}

func transportError(err error) error {
	return fmt.Errorf("%w: %v", shared.ErrTransport, err)
}
