// Package requirement defines per-guild required-level overrides for
// permission nodes. A guild may raise or lower the level a node demands
// relative to the registry default; resolution prefers the guild value
// when one exists.
package requirement

import (
	"time"

	"github.com/xraph/bastion/level"
)

// Requirement pins the required level for one node within one guild.
type Requirement struct {
	GuildID   string      `json:"guild_id" db:"guild_id"`
	Node      string      `json:"node" db:"node"`
	Level     level.Level `json:"level" db:"level"`
	UpdatedBy string      `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}
