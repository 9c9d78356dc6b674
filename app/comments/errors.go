package comments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidLimit = errors.New("limit must be at least 1")

type InvalidUsernameError struct {
	Username string
}

func (e *InvalidUsernameError) Error() string {
	if e.Username == "" {
		return "username is required"
	}
	return fmt.Sprintf("invalid username: %q", e.Username)
}

// AllApproachesFailedError is returned once the feed and listing strategies
// have both failed for a user.
type AllApproachesFailedError struct {
	Username string
	Errs     []error
}

func (e *AllApproachesFailedError) Error() string {
	return fmt.Sprintf("all approaches failed for user %s: %v", e.Username, errors.Join(e.Errs...))
}

func (e *AllApproachesFailedError) Unwrap() []error {
	return e.Errs
}

type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After <= 0 {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out after %s", e.After)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}
