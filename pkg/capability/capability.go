// Package capability implements the cross-user permission model for workflows.
package capability

import "github.com/routinely/routinely/pkg/models"

// Capability is a named permission checked against a user and a workflow.
type Capability string

const (
	View    Capability = "view"
	Execute Capability = "execute"
	Edit    Capability = "edit"
	Delete  Capability = "delete"
)

// HasCapability decides whether userID may exercise the requested capability
// on the workflow. The owner always holds every capability. For everyone else
// the absence of an explicit grant is a denial; capabilities are never
// inferred from other grants.
func HasCapability(userID string, workflow *models.Workflow, capability Capability) bool {
	if workflow == nil || userID == "" {
		return false
	}

	if userID == workflow.OwnerID {
		return true
	}

	switch capability {
	case View:
		return workflow.IsPublic || workflow.IsSharedWith(userID)
	case Execute:
		// Execute is implied by sharing.
		return workflow.IsSharedWith(userID)
	case Edit:
		return workflow.IsEditor(userID)
	case Delete:
		return false
	default:
		return false
	}
}
