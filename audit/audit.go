// Package audit defines the append-only audit log Entry entity.
package audit

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Action names the kind of configuration change an entry records.
type Action string

// Audit actions.
const (
	ActionBindRole         Action = "bind_role"
	ActionUnbindRole       Action = "unbind_role"
	ActionAddOverride      Action = "add_override"
	ActionRemoveOverride   Action = "remove_override"
	ActionSetRequirement   Action = "set_requirement"
	ActionClearRequirement Action = "clear_requirement"
	ActionAutoConfigure    Action = "auto_configure"
	ActionResetGuild       Action = "reset_guild"
)

// Entry is a single audit record. Entries are append-only; nothing
// mutates or deletes them in normal operation.
type Entry struct {
	ID         id.AuditID     `json:"id" db:"id"`
	GuildID    string         `json:"guild_id" db:"guild_id"`
	ActorID    string         `json:"actor_id" db:"actor_id"`
	Action     Action         `json:"action" db:"action"`
	TargetKind string         `json:"target_kind,omitempty" db:"target_kind"`
	TargetID   string         `json:"target_id,omitempty" db:"target_id"`
	Before     map[string]any `json:"before,omitempty" db:"before"`
	After      map[string]any `json:"after,omitempty" db:"after"`
	Reason     string         `json:"reason,omitempty" db:"reason"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying audit entries.
type QueryFilter struct {
	GuildID string     `json:"guild_id,omitempty"`
	ActorID string     `json:"actor_id,omitempty"`
	Action  Action     `json:"action,omitempty"`
	After   *time.Time `json:"after,omitempty"`
	Before  *time.Time `json:"before,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
}
