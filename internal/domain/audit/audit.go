// Package audit defines the audit trail contract used by domain services.
package audit

import (
	"context"

	"facturard/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionIssue      Action = "issue"
	ActionAnnul      Action = "annul"
	ActionStatus     Action = "status"
	ActionDeactivate Action = "deactivate"
)

// Recorder writes audit entries. Record joins the transaction in ctx when
// there is one, so the entry commits or rolls back with the change.
type Recorder interface {
	Record(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Nop ignores audit entries.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, string, id.ID, Action, map[string]any) error { return nil }
