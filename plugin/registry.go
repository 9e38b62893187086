package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeResolveEntry struct {
	name string
	hook BeforeResolve
}
type afterResolveEntry struct {
	name string
	hook AfterResolve
}
type roleBoundEntry struct {
	name string
	hook RoleBound
}
type roleUnboundEntry struct {
	name string
	hook RoleUnbound
}
type overrideAddedEntry struct {
	name string
	hook OverrideAdded
}
type overrideRemovedEntry struct {
	name string
	hook OverrideRemoved
}
type requirementSetEntry struct {
	name string
	hook RequirementSet
}
type requirementClearedEntry struct {
	name string
	hook RequirementCleared
}
type guildAutoConfiguredEntry struct {
	name string
	hook GuildAutoConfigured
}
type guildResetEntry struct {
	name string
	hook GuildReset
}
type auditFailedEntry struct {
	name string
	hook AuditFailed
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeResolve       []beforeResolveEntry
	afterResolve        []afterResolveEntry
	roleBound           []roleBoundEntry
	roleUnbound         []roleUnboundEntry
	overrideAdded       []overrideAddedEntry
	overrideRemoved     []overrideRemovedEntry
	requirementSet      []requirementSetEntry
	requirementCleared  []requirementClearedEntry
	guildAutoConfigured []guildAutoConfiguredEntry
	guildReset          []guildResetEntry
	auditFailed         []auditFailedEntry
	shutdown            []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeResolve); ok {
		r.beforeResolve = append(r.beforeResolve, beforeResolveEntry{name, h})
	}
	if h, ok := p.(AfterResolve); ok {
		r.afterResolve = append(r.afterResolve, afterResolveEntry{name, h})
	}
	if h, ok := p.(RoleBound); ok {
		r.roleBound = append(r.roleBound, roleBoundEntry{name, h})
	}
	if h, ok := p.(RoleUnbound); ok {
		r.roleUnbound = append(r.roleUnbound, roleUnboundEntry{name, h})
	}
	if h, ok := p.(OverrideAdded); ok {
		r.overrideAdded = append(r.overrideAdded, overrideAddedEntry{name, h})
	}
	if h, ok := p.(OverrideRemoved); ok {
		r.overrideRemoved = append(r.overrideRemoved, overrideRemovedEntry{name, h})
	}
	if h, ok := p.(RequirementSet); ok {
		r.requirementSet = append(r.requirementSet, requirementSetEntry{name, h})
	}
	if h, ok := p.(RequirementCleared); ok {
		r.requirementCleared = append(r.requirementCleared, requirementClearedEntry{name, h})
	}
	if h, ok := p.(GuildAutoConfigured); ok {
		r.guildAutoConfigured = append(r.guildAutoConfigured, guildAutoConfiguredEntry{name, h})
	}
	if h, ok := p.(GuildReset); ok {
		r.guildReset = append(r.guildReset, guildResetEntry{name, h})
	}
	if h, ok := p.(AuditFailed); ok {
		r.auditFailed = append(r.auditFailed, auditFailedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Resolution event emitters
// ──────────────────────────────────────────────────

// EmitBeforeResolve notifies all plugins that implement BeforeResolve.
func (r *Registry) EmitBeforeResolve(ctx context.Context, req any) {
	for _, e := range r.beforeResolve {
		if err := e.hook.OnBeforeResolve(ctx, req); err != nil {
			r.logHookError("OnBeforeResolve", e.name, err)
		}
	}
}

// EmitAfterResolve notifies all plugins that implement AfterResolve.
func (r *Registry) EmitAfterResolve(ctx context.Context, req, result any) {
	for _, e := range r.afterResolve {
		if err := e.hook.OnAfterResolve(ctx, req, result); err != nil {
			r.logHookError("OnAfterResolve", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Binding event emitters
// ──────────────────────────────────────────────────

// EmitRoleBound notifies all plugins that implement RoleBound.
func (r *Registry) EmitRoleBound(ctx context.Context, b *binding.Binding) {
	for _, e := range r.roleBound {
		if err := e.hook.OnRoleBound(ctx, b); err != nil {
			r.logHookError("OnRoleBound", e.name, err)
		}
	}
}

// EmitRoleUnbound notifies all plugins that implement RoleUnbound.
func (r *Registry) EmitRoleUnbound(ctx context.Context, b *binding.Binding) {
	for _, e := range r.roleUnbound {
		if err := e.hook.OnRoleUnbound(ctx, b); err != nil {
			r.logHookError("OnRoleUnbound", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Override event emitters
// ──────────────────────────────────────────────────

// EmitOverrideAdded notifies all plugins that implement OverrideAdded.
func (r *Registry) EmitOverrideAdded(ctx context.Context, o *override.Override) {
	for _, e := range r.overrideAdded {
		if err := e.hook.OnOverrideAdded(ctx, o); err != nil {
			r.logHookError("OnOverrideAdded", e.name, err)
		}
	}
}

// EmitOverrideRemoved notifies all plugins that implement OverrideRemoved.
func (r *Registry) EmitOverrideRemoved(ctx context.Context, o *override.Override) {
	for _, e := range r.overrideRemoved {
		if err := e.hook.OnOverrideRemoved(ctx, o); err != nil {
			r.logHookError("OnOverrideRemoved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Requirement event emitters
// ──────────────────────────────────────────────────

// EmitRequirementSet notifies all plugins that implement RequirementSet.
func (r *Registry) EmitRequirementSet(ctx context.Context, req *requirement.Requirement) {
	for _, e := range r.requirementSet {
		if err := e.hook.OnRequirementSet(ctx, req); err != nil {
			r.logHookError("OnRequirementSet", e.name, err)
		}
	}
}

// EmitRequirementCleared notifies all plugins that implement RequirementCleared.
func (r *Registry) EmitRequirementCleared(ctx context.Context, req *requirement.Requirement) {
	for _, e := range r.requirementCleared {
		if err := e.hook.OnRequirementCleared(ctx, req); err != nil {
			r.logHookError("OnRequirementCleared", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Guild event emitters
// ──────────────────────────────────────────────────

// EmitGuildAutoConfigured notifies all plugins that implement GuildAutoConfigured.
func (r *Registry) EmitGuildAutoConfigured(ctx context.Context, guildID string, report any) {
	for _, e := range r.guildAutoConfigured {
		if err := e.hook.OnGuildAutoConfigured(ctx, guildID, report); err != nil {
			r.logHookError("OnGuildAutoConfigured", e.name, err)
		}
	}
}

// EmitGuildReset notifies all plugins that implement GuildReset.
func (r *Registry) EmitGuildReset(ctx context.Context, guildID string) {
	for _, e := range r.guildReset {
		if err := e.hook.OnGuildReset(ctx, guildID); err != nil {
			r.logHookError("OnGuildReset", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Audit emitter
// ──────────────────────────────────────────────────

// EmitAuditFailed notifies all plugins that implement AuditFailed.
func (r *Registry) EmitAuditFailed(ctx context.Context, entry *audit.Entry, failure error) {
	for _, e := range r.auditFailed {
		if err := e.hook.OnAuditFailed(ctx, entry, failure); err != nil {
			r.logHookError("OnAuditFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
