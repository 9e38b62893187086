// Package override defines scoped, optionally time-limited permission
// overrides and the pure precedence rules that pick a winner among them.
package override

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/bastion/id"
)

// ErrInvalid is returned when an override fails validation.
var ErrInvalid = errors.New("override: invalid override")

// TargetKind names what an override applies to.
type TargetKind string

// Override targets.
const (
	TargetUser TargetKind = "user"
	TargetRole TargetKind = "role"
)

// ScopeKind names the breadth an override applies at. More specific
// scopes win over less specific ones at resolution time.
type ScopeKind string

// Override scopes, least to most specific.
const (
	ScopeGlobal  ScopeKind = "global"
	ScopeGuild   ScopeKind = "guild"
	ScopeChannel ScopeKind = "channel"
)

// Scope pairs a scope kind with the identifier it applies to. Global
// scope carries no ID.
type Scope struct {
	Kind ScopeKind `json:"kind" db:"kind"`
	ID   string    `json:"id,omitempty" db:"id"`
}

// GlobalScope is the scope matching everywhere.
var GlobalScope = Scope{Kind: ScopeGlobal}

// GuildScope returns the scope for a guild.
func GuildScope(guildID string) Scope { return Scope{Kind: ScopeGuild, ID: guildID} }

// ChannelScope returns the scope for a channel.
func ChannelScope(channelID string) Scope { return Scope{Kind: ScopeChannel, ID: channelID} }

// CandidateScopes returns the scopes to check for a resolution request,
// most specific first. channelID may be empty.
func CandidateScopes(guildID, channelID string) []Scope {
	scopes := make([]Scope, 0, 3)
	if channelID != "" {
		scopes = append(scopes, ChannelScope(channelID))
	}
	scopes = append(scopes, GuildScope(guildID), GlobalScope)

	return scopes
}

// Override grants or denies one node to one target within one scope.
// A nil ExpiresAt means the override never expires on its own.
type Override struct {
	ID         id.OverrideID `json:"id" db:"id"`
	GuildID    string        `json:"guild_id" db:"guild_id"`
	TargetKind TargetKind    `json:"target_kind" db:"target_kind"`
	TargetID   string        `json:"target_id" db:"target_id"`
	Node       string        `json:"node" db:"node"`
	Granted    bool          `json:"granted" db:"granted"`
	Scope      Scope         `json:"scope" db:"scope"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	Reason     string        `json:"reason,omitempty" db:"reason"`
	CreatedBy  string        `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// Validate checks internal consistency at creation time: known kinds,
// a scope ID that belongs to the declared scope, and an expiry strictly
// in the future when present.
func (o *Override) Validate(now time.Time) error {
	if o.TargetKind != TargetUser && o.TargetKind != TargetRole {
		return fmt.Errorf("%w: target kind %q", ErrInvalid, o.TargetKind)
	}
	if o.TargetID == "" {
		return fmt.Errorf("%w: empty target id", ErrInvalid)
	}
	if o.Node == "" {
		return fmt.Errorf("%w: empty node", ErrInvalid)
	}
	if o.GuildID == "" {
		return fmt.Errorf("%w: empty guild id", ErrInvalid)
	}

	switch o.Scope.Kind {
	case ScopeGlobal:
		if o.Scope.ID != "" {
			return fmt.Errorf("%w: global scope must not carry an id", ErrInvalid)
		}
	case ScopeGuild:
		if o.Scope.ID != o.GuildID {
			return fmt.Errorf("%w: guild scope id %q does not match guild %q", ErrInvalid, o.Scope.ID, o.GuildID)
		}
	case ScopeChannel:
		if o.Scope.ID == "" {
			return fmt.Errorf("%w: channel scope requires an id", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: scope kind %q", ErrInvalid, o.Scope.Kind)
	}

	if o.ExpiresAt != nil && !o.ExpiresAt.After(now) {
		return fmt.Errorf("%w: expiry %s is not in the future", ErrInvalid, o.ExpiresAt.Format(time.RFC3339))
	}

	return nil
}

// Expired reports whether the override has lapsed at now. Expiry is
// evaluated lazily at read time; rows are not swept eagerly.
func (o *Override) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !o.ExpiresAt.After(now)
}

// Resolve scans scopes from most to least specific and returns the first
// non-expired candidate, breaking ties within a scope by most recent
// CreatedAt. Candidates are assumed pre-filtered by target and node.
// Returns nil when nothing matches.
func Resolve(candidates []*Override, scopes []Scope, now time.Time) *Override {
	matches := ResolveAll(candidates, scopes, now)
	if len(matches) == 0 {
		return nil
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if m.CreatedAt.After(best.CreatedAt) {
			best = m
		}
	}

	return best
}

// ResolveAll returns every non-expired candidate at the most specific
// scope that has any match, in input order. Callers that must arbitrate
// between conflicting grants (role-targeted overrides) inspect the full
// set; deny wins on disagreement.
func ResolveAll(candidates []*Override, scopes []Scope, now time.Time) []*Override {
	for _, scope := range scopes {
		var matches []*Override
		for _, o := range candidates {
			if o.Scope == scope && !o.Expired(now) {
				matches = append(matches, o)
			}
		}
		if len(matches) > 0 {
			return matches
		}
	}

	return nil
}
