package api

import (
	"errors"
	"fmt"
)

// AuthError indicates that the server rejected the bearer token
// (expired or invalid). Callers route it to the login screen instead
// of retrying, since this client never re-derives credentials itself.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %s", e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
