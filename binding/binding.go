// Package binding defines the RoleBinding entity: a guild's mapping from
// one of its roles to a permission level.
package binding

import (
	"time"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/level"
)

// Source records how a binding came to exist.
type Source string

// Binding sources.
const (
	// SourceAuto marks bindings written by guild auto-configuration.
	SourceAuto Source = "auto"

	// SourceManual marks bindings set explicitly by an administrator.
	SourceManual Source = "manual"
)

// Binding maps a role within a guild to a permission level. A guild has
// at most one binding per role.
type Binding struct {
	ID        id.BindingID `json:"id" db:"id"`
	GuildID   string       `json:"guild_id" db:"guild_id"`
	RoleID    string       `json:"role_id" db:"role_id"`
	Level     level.Level  `json:"level" db:"level"`
	Source    Source       `json:"source" db:"source"`
	UpdatedBy string       `json:"updated_by,omitempty" db:"updated_by"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing bindings.
type ListFilter struct {
	GuildID string   `json:"guild_id,omitempty"`
	RoleIDs []string `json:"role_ids,omitempty"`
	Source  Source   `json:"source,omitempty"`
	Limit   int      `json:"limit,omitempty"`
	Offset  int      `json:"offset,omitempty"`
}
