// Package plugin defines the plugin system for Bastion.
// Plugins are notified of lifecycle events (resolution performed, role
// bound, override added, audit write failed, etc.) and can react —
// logging, metrics, notification dispatch.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeResolve is called before a resolution is evaluated.
// The req parameter is *bastion.ResolveRequest (passed as any to avoid import cycle).
type BeforeResolve interface {
	OnBeforeResolve(ctx context.Context, req any) error
}

// AfterResolve is called after a resolution completes.
// The req parameter is *bastion.ResolveRequest; result is *bastion.Resolution.
type AfterResolve interface {
	OnAfterResolve(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Binding lifecycle hooks
// ──────────────────────────────────────────────────

// RoleBound is called after a role binding is created or updated.
type RoleBound interface {
	OnRoleBound(ctx context.Context, b *binding.Binding) error
}

// RoleUnbound is called after a role binding is removed.
type RoleUnbound interface {
	OnRoleUnbound(ctx context.Context, b *binding.Binding) error
}

// ──────────────────────────────────────────────────
// Override lifecycle hooks
// ──────────────────────────────────────────────────

// OverrideAdded is called after an override is created.
type OverrideAdded interface {
	OnOverrideAdded(ctx context.Context, o *override.Override) error
}

// OverrideRemoved is called after an override is removed.
type OverrideRemoved interface {
	OnOverrideRemoved(ctx context.Context, o *override.Override) error
}

// ──────────────────────────────────────────────────
// Requirement lifecycle hooks
// ──────────────────────────────────────────────────

// RequirementSet is called after a guild node requirement is set.
type RequirementSet interface {
	OnRequirementSet(ctx context.Context, r *requirement.Requirement) error
}

// RequirementCleared is called after a guild node requirement is removed.
type RequirementCleared interface {
	OnRequirementCleared(ctx context.Context, r *requirement.Requirement) error
}

// ──────────────────────────────────────────────────
// Guild lifecycle hooks
// ──────────────────────────────────────────────────

// GuildAutoConfigured is called after a guild auto-configuration pass.
// The report parameter is *bastion.AutoConfigureReport.
type GuildAutoConfigured interface {
	OnGuildAutoConfigured(ctx context.Context, guildID string, report any) error
}

// GuildReset is called after a guild's configuration is wiped.
type GuildReset interface {
	OnGuildReset(ctx context.Context, guildID string) error
}

// ──────────────────────────────────────────────────
// Audit hooks
// ──────────────────────────────────────────────────

// AuditFailed is called when an audit entry could not be persisted.
// The primary mutation is already durable when this fires.
type AuditFailed interface {
	OnAuditFailed(ctx context.Context, e *audit.Entry, err error) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
