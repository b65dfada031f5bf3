package xray

import (
	"errors"
	"fmt"
)

// RemoteServiceError is returned when the proxy backend answers with a status the
// operation does not tolerate.
type RemoteServiceError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsRemoteError reports whether err carries a RemoteServiceError and returns it.
func IsRemoteError(err error) (*RemoteServiceError, bool) {
	var remoteErr *RemoteServiceError
	if errors.As(err, &remoteErr) {
		return remoteErr, true
	}
	return nil, false
}
