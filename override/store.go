package override

import (
	"context"
	"time"

	"github.com/xraph/bastion/id"
)

// ListFilter contains filters for listing overrides. TargetIDs matches
// any of the given IDs, which lets the resolution path fetch a
// principal's user and role overrides in one query.
type ListFilter struct {
	GuildID    string     `json:"guild_id,omitempty"`
	Node       string     `json:"node,omitempty"`
	TargetKind TargetKind `json:"target_kind,omitempty"`
	TargetIDs  []string   `json:"target_ids,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// Store defines persistence operations for overrides. Expired rows stay
// queryable until purged; expiry filtering happens at resolution time.
type Store interface {
	// CreateOverride persists a new override.
	CreateOverride(ctx context.Context, o *Override) error

	// GetOverride retrieves an override by ID.
	GetOverride(ctx context.Context, overrideID id.OverrideID) (*Override, error)

	// DeleteOverride removes an override by ID.
	DeleteOverride(ctx context.Context, overrideID id.OverrideID) error

	// DeleteOverridesByKey removes all overrides matching (guild, target,
	// node), optionally narrowed to one scope. Returns the removed rows.
	DeleteOverridesByKey(ctx context.Context, guildID string, kind TargetKind, targetID, node string, scope *Scope) ([]*Override, error)

	// ListOverrides returns overrides matching the filter.
	ListOverrides(ctx context.Context, filter *ListFilter) ([]*Override, error)

	// PurgeExpiredOverrides removes rows whose expiry is at or before
	// now. Purging never changes resolution results; it is storage
	// hygiene only.
	PurgeExpiredOverrides(ctx context.Context, now time.Time) (int64, error)

	// DeleteOverridesByGuild removes all overrides for a guild.
	DeleteOverridesByGuild(ctx context.Context, guildID string) error
}
