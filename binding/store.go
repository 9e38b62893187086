package binding

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for role bindings.
type Store interface {
	// UpsertBinding creates or replaces the binding for (guild, role).
	// On replace the existing ID and CreatedAt are preserved.
	UpsertBinding(ctx context.Context, b *Binding) error

	// GetBinding retrieves the binding for (guild, role).
	GetBinding(ctx context.Context, guildID, roleID string) (*Binding, error)

	// GetBindingByID retrieves a binding by ID.
	GetBindingByID(ctx context.Context, bindingID id.BindingID) (*Binding, error)

	// DeleteBinding removes the binding for (guild, role). Returns the
	// removed binding, or nil if none existed.
	DeleteBinding(ctx context.Context, guildID, roleID string) (*Binding, error)

	// ListBindings returns bindings matching the filter.
	ListBindings(ctx context.Context, filter *ListFilter) ([]*Binding, error)

	// DeleteBindingsByGuild removes all bindings for a guild.
	DeleteBindingsByGuild(ctx context.Context, guildID string) error
}
