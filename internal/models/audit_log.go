package models

import "time"

// Audited entities and the actions recorded against them.
const (
	AuditAccount  = "account"
	AuditTransfer = "transfer"

	ActionCreated      = "created"
	ActionActivated    = "activated"
	ActionDeactivated  = "deactivated"
	ActionStatusChange = "status_change"
)

// AuditLog is one row of the trail. Entries are written best-effort after
// the change they describe and are never read back by the services.
type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
