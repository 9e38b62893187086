package api

import (
	"github.com/xraph/bastion/classify"
)

// ──────────────────────────────────────────────────
// Resolution requests
// ──────────────────────────────────────────────────

// ResolveRequest is the request body for a permission resolution.
type ResolveRequest struct {
	UserID    string   `json:"user_id" description:"Principal user identifier"`
	RoleIDs   []string `json:"role_ids,omitempty" description:"Role identifiers the principal holds"`
	GuildID   string   `json:"guild_id" description:"Guild identifier"`
	ChannelID string   `json:"channel_id,omitempty" description:"Channel identifier for channel-scoped overrides"`
	Node      string   `json:"node" description:"Permission node (e.g. moderation.kick)"`
}

// BatchResolveRequest contains multiple resolutions.
type BatchResolveRequest struct {
	Resolutions []ResolveRequest `json:"resolutions" description:"List of permission resolutions"`
}

// EffectiveLevelRequest is the body for computing an effective level.
type EffectiveLevelRequest struct {
	UserID  string   `json:"user_id" description:"Principal user identifier"`
	RoleIDs []string `json:"role_ids,omitempty" description:"Role identifiers the principal holds"`
	GuildID string   `json:"guild_id" description:"Guild identifier"`
}

// ──────────────────────────────────────────────────
// Binding requests
// ──────────────────────────────────────────────────

// BindRoleRequest is the body for binding a role to a level.
type BindRoleRequest struct {
	Level string `json:"level" description:"Level name (e.g. MODERATOR)"`
}

// ListBindingsRequest holds query parameters for listing bindings.
type ListBindingsRequest struct {
	Source string `query:"source" description:"Filter by source (manual/auto)"`
	Limit  int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Override requests
// ──────────────────────────────────────────────────

// AddOverrideRequest is the body for adding an override.
type AddOverrideRequest struct {
	TargetKind string `json:"target_kind" description:"Target type (user or role)"`
	TargetID   string `json:"target_id" description:"Target identifier"`
	Node       string `json:"node" description:"Permission node"`
	Granted    bool   `json:"granted" description:"Grant (true) or deny (false)"`
	ScopeKind  string `json:"scope_kind,omitempty" description:"Scope (global, guild, channel; default guild)"`
	ScopeID    string `json:"scope_id,omitempty" description:"Channel ID for channel scope"`
	ExpiresAt  string `json:"expires_at,omitempty" description:"Expiration time (RFC3339)"`
	Reason     string `json:"reason,omitempty" description:"Human-readable reason"`
}

// RemoveOverrideRequest is the body for removing overrides.
type RemoveOverrideRequest struct {
	TargetKind string `json:"target_kind" description:"Target type (user or role)"`
	TargetID   string `json:"target_id" description:"Target identifier"`
	Node       string `json:"node" description:"Permission node"`
	ScopeKind  string `json:"scope_kind,omitempty" description:"Narrow removal to one scope"`
	ScopeID    string `json:"scope_id,omitempty" description:"Channel ID for channel scope"`
}

// ListOverridesRequest holds query parameters for listing overrides.
type ListOverridesRequest struct {
	Node       string `query:"node" description:"Filter by node"`
	TargetKind string `query:"target_kind" description:"Filter by target type"`
	TargetID   string `query:"target_id" description:"Filter by target ID"`
	Limit      int    `query:"limit" description:"Maximum results"`
	Offset     int    `query:"offset" description:"Results to skip"`
}

// ──────────────────────────────────────────────────
// Requirement requests
// ──────────────────────────────────────────────────

// SetRequirementRequest is the body for setting a node requirement.
type SetRequirementRequest struct {
	Level string `json:"level" description:"Required level name"`
}

// ──────────────────────────────────────────────────
// Guild requests
// ──────────────────────────────────────────────────

// AutoConfigureRequest carries the guild's role snapshots.
type AutoConfigureRequest struct {
	Roles []classify.Snapshot `json:"roles" description:"Role snapshots to classify"`
}

// ──────────────────────────────────────────────────
// Audit requests
// ──────────────────────────────────────────────────

// ListAuditsRequest holds query parameters for querying the audit log.
type ListAuditsRequest struct {
	ActorID string `query:"actor_id" description:"Filter by actor"`
	Action  string `query:"action" description:"Filter by action"`
	After   string `query:"after" description:"After timestamp (RFC3339)"`
	Before  string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit   int    `query:"limit" description:"Maximum results"`
	Offset  int    `query:"offset" description:"Results to skip"`
}
