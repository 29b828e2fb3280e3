package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/routinely/routinely/pkg/validation"
)

// ErrPermissionDenied is returned when a user lacks the capability an
// operation requires. Denials are logged for audit but never persisted as
// execution records.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError carries the full issue list of a rejected workflow.
type ValidationError struct {
	Issues []validation.Issue
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Issues))

	for _, issue := range e.Issues {
		if issue.Severity == validation.SeverityError {
			messages = append(messages, issue.Location+": "+issue.Message)
		}
	}

	return fmt.Sprintf("workflow validation failed: %s", strings.Join(messages, "; "))
}

// PermissionError wraps a denial with the denied operation's context.
type PermissionError struct {
	UserID     string
	WorkflowID string
	Operation  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s may not %s workflow %s", e.UserID, e.Operation, e.WorkflowID)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}
