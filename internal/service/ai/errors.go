package ai

import (
	"errors"
	"fmt"
)

// StatusError reports a non-success HTTP status from the upstream provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: upstream returned status %d: %s", e.Provider, e.Code, e.Body)
}

// AsStatusError unwraps err into a *StatusError when the provider answered
// with a non-success status.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
