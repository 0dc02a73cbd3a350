package trust

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// ValidationFailedError is the hard rejection of an action whose score fell under the hard floor.
// The action must be treated as if it never happened.
type ValidationFailedError struct {
	ActionID string
	Score    float64
	Issues   []string
}

func (err *ValidationFailedError) Reason() string {
	if len(err.Issues) == 0 {
		return fmt.Sprintf("validation score %.2f too low", err.Score)
	}
	return strings.Join(err.Issues, "; ")
}

func (err *ValidationFailedError) Error() string {
	return "action validation failed: " + err.Reason()
}

// IsValidationFailed reports whether err (or its cause) is a hard rejection.
func IsValidationFailed(err error) bool {
	_, ok := errors.Cause(err).(*ValidationFailedError)
	return ok
}
