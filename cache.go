package bastion

import (
	"context"

	"github.com/xraph/bastion/level"
)

// Cache provides caching for resolutions and effective levels. A nil
// cache disables caching; the engine stays correct either way, only
// slower. Implementations bound staleness with a TTL.
type Cache interface {
	// Get returns a cached resolution, if available.
	Get(ctx context.Context, req *ResolveRequest) (*Resolution, bool)

	// Set stores a resolution in the cache.
	Set(ctx context.Context, req *ResolveRequest, res *Resolution)

	// GetLevel returns a cached effective level for a guild member.
	GetLevel(ctx context.Context, guildID, userID string) (level.Level, bool)

	// SetLevel stores an effective level for a guild member.
	SetLevel(ctx context.Context, guildID, userID string, lvl level.Level)

	// InvalidateGuild removes all cached entries for a guild.
	InvalidateGuild(ctx context.Context, guildID string)

	// InvalidatePrincipal removes all cached entries for one user
	// within a guild.
	InvalidatePrincipal(ctx context.Context, guildID, userID string)
}
