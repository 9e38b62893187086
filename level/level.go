// Package level defines the universal permission hierarchy used across all
// guilds. Levels form a total order; every other subsystem compares levels
// through this package so the scale can change without touching resolution
// logic.
package level

import "fmt"

// Level is a position on the universal authority scale. Higher values carry
// more authority. The zero value is Everyone.
type Level int

// Canonical levels, lowest to highest.
const (
	// Banned principals are explicitly denied all commands.
	Banned Level = -1

	// Everyone is the default level for principals with no bound roles.
	Everyone Level = 0

	// Member marks verified or trusted members (VIPs, supporters).
	Member Level = 10

	// Moderator grants basic moderation (warn, mute, kick).
	Moderator Level = 50

	// LeadModerator grants advanced moderation (mass actions, lockdown).
	LeadModerator Level = 65

	// Admin grants basic administration.
	Admin Level = 80

	// LeadAdmin grants advanced administration.
	LeadAdmin Level = 90

	// Owner is full authority within a single guild.
	Owner Level = 100

	// BotAdmin is cross-guild bot administration.
	BotAdmin Level = 150

	// BotOwner is unconditional authority.
	BotOwner Level = 200
)

var names = map[Level]string{
	Banned:        "banned",
	Everyone:      "everyone",
	Member:        "member",
	Moderator:     "moderator",
	LeadModerator: "lead_moderator",
	Admin:         "admin",
	LeadAdmin:     "lead_admin",
	Owner:         "owner",
	BotAdmin:      "bot_admin",
	BotOwner:      "bot_owner",
}

var byName = func() map[string]Level {
	m := make(map[string]Level, len(names))
	for l, n := range names {
		m[n] = l
	}
	return m
}()

// Known returns the canonical scale in ascending order.
func Known() []Level {
	return []Level{
		Banned, Everyone, Member, Moderator, LeadModerator,
		Admin, LeadAdmin, Owner, BotAdmin, BotOwner,
	}
}

// Compare returns -1 if a carries less authority than b, 0 if equal,
// and +1 if more.
func Compare(a, b Level) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l meets or exceeds threshold.
func (l Level) AtLeast(threshold Level) bool { return Compare(l, threshold) >= 0 }

// Max returns the higher-authority of a and b.
func Max(a, b Level) Level {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// String returns the canonical name for known levels and the numeric value
// for custom ones.
func (l Level) String() string {
	if n, ok := names[l]; ok {
		return n
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Parse converts a canonical name back into a Level.
func Parse(s string) (Level, error) {
	l, ok := byName[s]
	if !ok {
		return Everyone, fmt.Errorf("level: unknown level %q", s)
	}
	return l, nil
}
