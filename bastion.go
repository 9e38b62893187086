// Package bastion provides hierarchical, override-capable authorization
// for chat-bot guilds.
//
// Bastion resolves whether a principal (a user plus the guild roles they
// hold) may perform a named operation within a guild. Guild roles are
// bound to authority levels, operations carry level requirements, and
// scoped overrides grant or deny individual operations to specific users
// or roles ahead of the level comparison.
//
//	eng, err := bastion.NewEngine(
//	    bastion.WithStore(memStore),
//	)
//	res, err := eng.Resolve(ctx, &bastion.ResolveRequest{
//	    Principal: bastion.Principal{UserID: "user_123", RoleIDs: []string{"role_mods"}},
//	    GuildID:   "guild_456",
//	    Node:      "moderation.kick",
//	})
package bastion

import (
	"strings"

	"github.com/xraph/bastion/classify"
	"github.com/xraph/bastion/level"
)

// Principal is the actor in a resolution request: a user and the guild
// roles they currently hold. Role membership is supplied by the caller;
// Bastion never queries the chat platform itself.
type Principal struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids,omitempty"`
}

// ResolveRequest is the input to a permission resolution.
type ResolveRequest struct {
	Principal Principal `json:"principal"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id,omitempty"`
	Node      string    `json:"node"`
}

// flightKey collapses concurrent identical resolutions into one store
// round trip. Role IDs are part of the key because they shape the result.
func (r *ResolveRequest) flightKey() string {
	return r.GuildID + "\x00" + r.Principal.UserID + "\x00" + r.Node + "\x00" +
		r.ChannelID + "\x00" + strings.Join(r.Principal.RoleIDs, ",")
}

// Factor names which rule decided a resolution.
type Factor string

const (
	// FactorOverrideUser means a user-targeted override decided the outcome.
	FactorOverrideUser Factor = "override_user"

	// FactorOverrideRole means role-targeted overrides decided the outcome.
	FactorOverrideRole Factor = "override_role"

	// FactorBotOwner means the principal is a configured bot owner.
	FactorBotOwner Factor = "bot_owner"

	// FactorBanned means a banned role binding blocked the principal.
	FactorBanned Factor = "banned"

	// FactorLevel means the effective-versus-required level comparison decided.
	FactorLevel Factor = "level"
)

// Resolution is the outcome of a permission resolution.
type Resolution struct {
	Allowed        bool        `json:"allowed"`
	Factor         Factor      `json:"factor"`
	EffectiveLevel level.Level `json:"effective_level"`
	RequiredLevel  level.Level `json:"required_level"`
	Reason         string      `json:"reason,omitempty"`
	EvalTimeNs     int64       `json:"eval_time_ns"`
}

// AutoConfigureReport summarizes one auto-configuration pass over a
// guild's roles. The pass is idempotent: re-running it against unchanged
// roles reports everything as already configured.
type AutoConfigureReport struct {
	GuildID           string           `json:"guild_id"`
	Applied           []AppliedBinding `json:"applied,omitempty"`
	AlreadyConfigured []string         `json:"already_configured,omitempty"`
	Skipped           []SkippedRole    `json:"skipped,omitempty"`
}

// AppliedBinding records one binding created or adjusted by auto-configuration.
type AppliedBinding struct {
	RoleID     string                  `json:"role_id"`
	RoleName   string                  `json:"role_name"`
	Level      level.Level             `json:"level"`
	Class      classify.Classification `json:"classification"`
	Confidence float64                 `json:"confidence"`
}

// SkippedRole records one role auto-configuration declined to bind, and why.
type SkippedRole struct {
	RoleID   string `json:"role_id"`
	RoleName string `json:"role_name"`
	Reason   string `json:"reason"`
}
