package bastion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/classify"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/level"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// BindRole binds a guild role to a level. Rebinding an existing role
// replaces its level and marks it manually configured; auto-configuration
// will not touch it afterwards.
func (e *Engine) BindRole(ctx context.Context, guildID, roleID string, lvl level.Level) (*binding.Binding, error) {
	if !knownLevel(lvl) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(lvl))
	}

	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	prev, err := e.findBinding(sctx, guildID, roleID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	b := &binding.Binding{
		ID:        id.NewBindingID(),
		GuildID:   guildID,
		RoleID:    roleID,
		Level:     lvl,
		Source:    binding.SourceManual,
		UpdatedBy: actorFromContext(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.UpsertBinding(sctx, b); err != nil {
		return nil, storeErr(err)
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID:    guildID,
		Action:     audit.ActionBindRole,
		TargetKind: "role",
		TargetID:   roleID,
		Before:     bindingSnapshot(prev),
		After:      bindingSnapshot(b),
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitRoleBound(ctx, b)

	return b, nil
}

// UnbindRole removes a role's level binding. Removing an absent binding
// is a no-op returning nil.
func (e *Engine) UnbindRole(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	removed, err := e.store.DeleteBinding(sctx, guildID, roleID)
	if err != nil {
		return nil, storeErr(err)
	}
	if removed == nil {
		return nil, nil
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID:    guildID,
		Action:     audit.ActionUnbindRole,
		TargetKind: "role",
		TargetID:   roleID,
		Before:     bindingSnapshot(removed),
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitRoleUnbound(ctx, removed)

	return removed, nil
}

// AddOverride validates and persists an override. The ID, creation time,
// and creator are filled in when absent.
func (e *Engine) AddOverride(ctx context.Context, o *override.Override) (*override.Override, error) {
	now := e.clock()
	if o.ID.IsNil() {
		o.ID = id.NewOverrideID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	if o.CreatedBy == "" {
		o.CreatedBy = actorFromContext(ctx)
	}
	if err := o.Validate(now); err != nil {
		return nil, err
	}

	mu := e.guildLock(o.GuildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.CreateOverride(sctx, o); err != nil {
		return nil, storeErr(err)
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID:    o.GuildID,
		Action:     audit.ActionAddOverride,
		TargetKind: string(o.TargetKind),
		TargetID:   o.TargetID,
		After:      overrideSnapshot(o),
		Reason:     o.Reason,
	})
	e.invalidateOverrideTarget(ctx, o)
	e.plugins.EmitOverrideAdded(ctx, o)

	return o, nil
}

// RemoveOverride removes all overrides matching (guild, target, node),
// optionally narrowed to one scope. It returns the removed overrides;
// removing nothing is a no-op.
func (e *Engine) RemoveOverride(ctx context.Context, guildID string, kind override.TargetKind, targetID, nodeName string, scope *override.Scope) ([]*override.Override, error) {
	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	removed, err := e.store.DeleteOverridesByKey(sctx, guildID, kind, targetID, nodeName, scope)
	if err != nil {
		return nil, storeErr(err)
	}

	for _, o := range removed {
		e.appendAudit(ctx, &audit.Entry{
			GuildID:    guildID,
			Action:     audit.ActionRemoveOverride,
			TargetKind: string(o.TargetKind),
			TargetID:   o.TargetID,
			Before:     overrideSnapshot(o),
		})
		e.invalidateOverrideTarget(ctx, o)
		e.plugins.EmitOverrideRemoved(ctx, o)
	}

	return removed, nil
}

// SetRequirement raises or lowers the level a guild demands for a node,
// replacing the node's registered default. The node must be registered.
func (e *Engine) SetRequirement(ctx context.Context, guildID, nodeName string, lvl level.Level) (*requirement.Requirement, error) {
	if _, err := e.registry.Lookup(nodeName); err != nil {
		return nil, err
	}
	if !knownLevel(lvl) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, int(lvl))
	}

	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	prev, err := e.store.GetRequirement(sctx, guildID, nodeName)
	if err != nil {
		return nil, storeErr(err)
	}

	r := &requirement.Requirement{
		GuildID:   guildID,
		Node:      nodeName,
		Level:     lvl,
		UpdatedBy: actorFromContext(ctx),
		UpdatedAt: e.clock(),
	}
	if err := e.store.SetRequirement(sctx, r); err != nil {
		return nil, storeErr(err)
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID:    guildID,
		Action:     audit.ActionSetRequirement,
		TargetKind: "node",
		TargetID:   nodeName,
		Before:     requirementSnapshot(prev),
		After:      requirementSnapshot(r),
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitRequirementSet(ctx, r)

	return r, nil
}

// ClearRequirement removes a guild's requirement for a node, restoring
// the node's registered default. Clearing an absent requirement is a
// no-op returning nil.
func (e *Engine) ClearRequirement(ctx context.Context, guildID, nodeName string) (*requirement.Requirement, error) {
	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	removed, err := e.store.DeleteRequirement(sctx, guildID, nodeName)
	if err != nil {
		return nil, storeErr(err)
	}
	if removed == nil {
		return nil, nil
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID:    guildID,
		Action:     audit.ActionClearRequirement,
		TargetKind: "node",
		TargetID:   nodeName,
		Before:     requirementSnapshot(removed),
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitRequirementCleared(ctx, removed)

	return removed, nil
}

// AutoConfigure classifies the guild's roles and binds levels for the
// authority roles it is confident about. Manually configured bindings
// are never touched, and re-running against unchanged roles reports
// them as already configured instead of rewriting them.
func (e *Engine) AutoConfigure(ctx context.Context, guildID string, roles []classify.Snapshot) (*AutoConfigureReport, error) {
	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	existing, err := e.store.ListBindings(sctx, &binding.ListFilter{GuildID: guildID})
	if err != nil {
		return nil, storeErr(err)
	}
	byRole := make(map[string]*binding.Binding, len(existing))
	for _, b := range existing {
		byRole[b.RoleID] = b
	}

	now := e.clock()
	actor := actorFromContext(ctx)
	report := &AutoConfigureReport{GuildID: guildID}

	for _, r := range e.classifier.Analyze(roles) {
		if r.Classification != classify.Authority {
			report.Skipped = append(report.Skipped, SkippedRole{
				RoleID:   r.RoleID,
				RoleName: r.Name,
				Reason:   string(r.Classification),
			})
			continue
		}
		if r.Confidence < e.config.AutoConfigureMinConfidence {
			report.Skipped = append(report.Skipped, SkippedRole{
				RoleID:   r.RoleID,
				RoleName: r.Name,
				Reason:   "low confidence",
			})
			continue
		}

		prev := byRole[r.RoleID]
		if prev != nil {
			if prev.Source == binding.SourceManual {
				report.Skipped = append(report.Skipped, SkippedRole{
					RoleID:   r.RoleID,
					RoleName: r.Name,
					Reason:   "manually configured",
				})
				continue
			}
			if prev.Level == r.SuggestedLevel {
				report.AlreadyConfigured = append(report.AlreadyConfigured, r.RoleID)
				continue
			}
		}

		b := &binding.Binding{
			ID:        id.NewBindingID(),
			GuildID:   guildID,
			RoleID:    r.RoleID,
			Level:     r.SuggestedLevel,
			Source:    binding.SourceAuto,
			UpdatedBy: actor,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.store.UpsertBinding(sctx, b); err != nil {
			return nil, storeErr(err)
		}

		e.appendAudit(ctx, &audit.Entry{
			GuildID:    guildID,
			Action:     audit.ActionBindRole,
			TargetKind: "role",
			TargetID:   r.RoleID,
			Before:     bindingSnapshot(prev),
			After:      bindingSnapshot(b),
			Reason:     r.Rationale,
		})
		e.plugins.EmitRoleBound(ctx, b)

		report.Applied = append(report.Applied, AppliedBinding{
			RoleID:     r.RoleID,
			RoleName:   r.Name,
			Level:      r.SuggestedLevel,
			Class:      r.Classification,
			Confidence: r.Confidence,
		})
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID: guildID,
		Action:  audit.ActionAutoConfigure,
		After: map[string]any{
			"applied":            len(report.Applied),
			"already_configured": len(report.AlreadyConfigured),
			"skipped":            len(report.Skipped),
		},
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitGuildAutoConfigured(ctx, guildID, report)

	return report, nil
}

// ResetGuild removes all of a guild's bindings, requirements, and
// overrides. Audit history is preserved.
func (e *Engine) ResetGuild(ctx context.Context, guildID string) error {
	mu := e.guildLock(guildID)
	mu.Lock()
	defer mu.Unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.DeleteBindingsByGuild(sctx, guildID); err != nil {
		return storeErr(err)
	}
	if err := e.store.DeleteRequirementsByGuild(sctx, guildID); err != nil {
		return storeErr(err)
	}
	if err := e.store.DeleteOverridesByGuild(sctx, guildID); err != nil {
		return storeErr(err)
	}

	e.appendAudit(ctx, &audit.Entry{
		GuildID: guildID,
		Action:  audit.ActionResetGuild,
	})
	e.invalidateGuild(ctx, guildID)
	e.plugins.EmitGuildReset(ctx, guildID)

	return nil
}

// AuditLog returns a guild's most recent audit entries, newest first.
func (e *Engine) AuditLog(ctx context.Context, guildID string, limit int) ([]*audit.Entry, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	entries, err := e.store.ListAudits(sctx, &audit.QueryFilter{GuildID: guildID, Limit: limit})
	if err != nil {
		return nil, storeErr(err)
	}
	return entries, nil
}

// PurgeExpired removes lapsed overrides and audit entries older than the
// configured retention. Purging never changes resolution results.
func (e *Engine) PurgeExpired(ctx context.Context) (overrides, audits int64, err error) {
	now := e.clock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	overrides, err = e.store.PurgeExpiredOverrides(sctx, now)
	if err != nil {
		return 0, 0, storeErr(err)
	}

	if e.config.AuditRetention > 0 {
		audits, err = e.store.PurgeAudits(sctx, now.Add(-e.config.AuditRetention))
		if err != nil {
			return overrides, 0, storeErr(err)
		}
	}

	return overrides, audits, nil
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

func (e *Engine) guildLock(guildID string) *sync.Mutex {
	v, _ := e.guildMu.LoadOrStore(guildID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// findBinding looks up a binding without depending on backend-specific
// not-found errors; absence is a nil result.
func (e *Engine) findBinding(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	list, err := e.store.ListBindings(ctx, &binding.ListFilter{
		GuildID: guildID,
		RoleIDs: []string{roleID},
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// appendAudit persists an audit entry after the mutation it records is
// already durable. Failures are logged and surfaced to plugins, never
// propagated: a lost audit entry must not roll back the change.
func (e *Engine) appendAudit(ctx context.Context, entry *audit.Entry) {
	entry.ID = id.NewAuditID()
	entry.ActorID = actorFromContext(ctx)
	entry.CreatedAt = e.clock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.store.AppendAudit(sctx, entry); err != nil {
		e.logger.Error("audit append failed",
			slog.String("guild_id", entry.GuildID),
			slog.String("action", string(entry.Action)),
			slog.String("error", err.Error()),
		)
		e.plugins.EmitAuditFailed(ctx, entry, err)
	}
}

func (e *Engine) invalidateGuild(ctx context.Context, guildID string) {
	if e.cache != nil {
		e.cache.InvalidateGuild(ctx, guildID)
	}
}

func (e *Engine) invalidateOverrideTarget(ctx context.Context, o *override.Override) {
	if e.cache == nil {
		return
	}
	if o.TargetKind == override.TargetUser {
		e.cache.InvalidatePrincipal(ctx, o.GuildID, o.TargetID)
		return
	}
	e.cache.InvalidateGuild(ctx, o.GuildID)
}

func bindingSnapshot(b *binding.Binding) map[string]any {
	if b == nil {
		return nil
	}
	return map[string]any{
		"role_id": b.RoleID,
		"level":   b.Level.String(),
		"source":  string(b.Source),
	}
}

func overrideSnapshot(o *override.Override) map[string]any {
	if o == nil {
		return nil
	}
	snap := map[string]any{
		"node":        o.Node,
		"target_kind": string(o.TargetKind),
		"target_id":   o.TargetID,
		"granted":     o.Granted,
		"scope_kind":  string(o.Scope.Kind),
	}
	if o.Scope.ID != "" {
		snap["scope_id"] = o.Scope.ID
	}
	if o.ExpiresAt != nil {
		snap["expires_at"] = o.ExpiresAt.Format(time.RFC3339)
	}
	return snap
}

func requirementSnapshot(r *requirement.Requirement) map[string]any {
	if r == nil {
		return nil
	}
	return map[string]any{
		"node":  r.Node,
		"level": r.Level.String(),
	}
}
