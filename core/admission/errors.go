package admission

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidTransitionError is returned for a status change the workflow does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (err InvalidTransitionError) Error() string {
	if err.From == StatusArchived {
		return fmt.Sprintf("cannot move an archived application to %q", err.To)
	}
	return fmt.Sprintf("cannot move an application from %q to %q", err.From, err.To)
}

// IsInvalidTransition reports whether the cause of err is an *InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	_, ok := errors.Cause(err).(*InvalidTransitionError)
	return ok
}
