package requirement

import "context"

// Store defines persistence operations for guild node requirements.
type Store interface {
	// SetRequirement creates or replaces the requirement for (guild, node).
	SetRequirement(ctx context.Context, r *Requirement) error

	// GetRequirement retrieves the requirement for (guild, node). Returns
	// nil with no error when the guild has no override for the node.
	GetRequirement(ctx context.Context, guildID, node string) (*Requirement, error)

	// DeleteRequirement removes the requirement for (guild, node).
	// Returns the removed requirement, or nil if none existed.
	DeleteRequirement(ctx context.Context, guildID, node string) (*Requirement, error)

	// ListRequirements returns all requirements for a guild.
	ListRequirements(ctx context.Context, guildID string) ([]*Requirement, error)

	// DeleteRequirementsByGuild removes all requirements for a guild.
	DeleteRequirementsByGuild(ctx context.Context, guildID string) error
}
