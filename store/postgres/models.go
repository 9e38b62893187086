package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/level"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// ──────────────────────────────────────────────────
// Binding model
// ──────────────────────────────────────────────────

type bindingModel struct {
	grove.BaseModel `grove:"table:bastion_bindings"`
	ID              string    `grove:"id,pk"`
	GuildID         string    `grove:"guild_id,notnull"`
	RoleID          string    `grove:"role_id,notnull"`
	Level           int       `grove:"level,notnull"`
	Source          string    `grove:"source,notnull"`
	UpdatedBy       string    `grove:"updated_by"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func bindingToModel(b *binding.Binding) *bindingModel {
	return &bindingModel{
		ID:        b.ID.String(),
		GuildID:   b.GuildID,
		RoleID:    b.RoleID,
		Level:     int(b.Level),
		Source:    string(b.Source),
		UpdatedBy: b.UpdatedBy,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func bindingFromModel(m *bindingModel) *binding.Binding {
	bid, _ := id.ParseBindingID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &binding.Binding{
		ID:        bid,
		GuildID:   m.GuildID,
		RoleID:    m.RoleID,
		Level:     level.Level(m.Level),
		Source:    binding.Source(m.Source),
		UpdatedBy: m.UpdatedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Requirement model
// ──────────────────────────────────────────────────

type requirementModel struct {
	grove.BaseModel `grove:"table:bastion_requirements"`
	GuildID         string    `grove:"guild_id,pk"`
	Node            string    `grove:"node,pk"`
	Level           int       `grove:"level,notnull"`
	UpdatedBy       string    `grove:"updated_by"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func requirementToModel(r *requirement.Requirement) *requirementModel {
	return &requirementModel{
		GuildID:   r.GuildID,
		Node:      r.Node,
		Level:     int(r.Level),
		UpdatedBy: r.UpdatedBy,
		UpdatedAt: r.UpdatedAt,
	}
}

func requirementFromModel(m *requirementModel) *requirement.Requirement {
	return &requirement.Requirement{
		GuildID:   m.GuildID,
		Node:      m.Node,
		Level:     level.Level(m.Level),
		UpdatedBy: m.UpdatedBy,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Override model
// ──────────────────────────────────────────────────

type overrideModel struct {
	grove.BaseModel `grove:"table:bastion_overrides"`
	ID              string     `grove:"id,pk"`
	GuildID         string     `grove:"guild_id,notnull"`
	TargetKind      string     `grove:"target_kind,notnull"`
	TargetID        string     `grove:"target_id,notnull"`
	Node            string     `grove:"node,notnull"`
	Granted         bool       `grove:"granted,notnull"`
	ScopeKind       string     `grove:"scope_kind,notnull"`
	ScopeID         string     `grove:"scope_id"`
	ExpiresAt       *time.Time `grove:"expires_at"`
	Reason          string     `grove:"reason"`
	CreatedBy       string     `grove:"created_by"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func overrideToModel(o *override.Override) *overrideModel {
	m := &overrideModel{
		ID:         o.ID.String(),
		GuildID:    o.GuildID,
		TargetKind: string(o.TargetKind),
		TargetID:   o.TargetID,
		Node:       o.Node,
		Granted:    o.Granted,
		ScopeKind:  string(o.Scope.Kind),
		ScopeID:    o.Scope.ID,
		Reason:     o.Reason,
		CreatedBy:  o.CreatedBy,
		CreatedAt:  o.CreatedAt,
	}
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		m.ExpiresAt = &t
	}
	return m
}

func overrideFromModel(m *overrideModel) *override.Override {
	oid, _ := id.ParseOverrideID(m.ID) //nolint:errcheck // stored IDs are always valid
	o := &override.Override{
		ID:         oid,
		GuildID:    m.GuildID,
		TargetKind: override.TargetKind(m.TargetKind),
		TargetID:   m.TargetID,
		Node:       m.Node,
		Granted:    m.Granted,
		Scope:      override.Scope{Kind: override.ScopeKind(m.ScopeKind), ID: m.ScopeID},
		Reason:     m.Reason,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
	if m.ExpiresAt != nil {
		t := *m.ExpiresAt
		o.ExpiresAt = &t
	}
	return o
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:bastion_audits"`
	ID              string         `grove:"id,pk"`
	GuildID         string         `grove:"guild_id,notnull"`
	ActorID         string         `grove:"actor_id,notnull"`
	Action          string         `grove:"action,notnull"`
	TargetKind      string         `grove:"target_kind"`
	TargetID        string         `grove:"target_id"`
	Before          map[string]any `grove:"before,type:jsonb"`
	After           map[string]any `grove:"after,type:jsonb"`
	Reason          string         `grove:"reason"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:         e.ID.String(),
		GuildID:    e.GuildID,
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		TargetKind: e.TargetKind,
		TargetID:   e.TargetID,
		Before:     e.Before,
		After:      e.After,
		Reason:     e.Reason,
		CreatedAt:  e.CreatedAt,
	}
}

func auditFromModel(m *auditModel) *audit.Entry {
	aid, _ := id.ParseAuditID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &audit.Entry{
		ID:         aid,
		GuildID:    m.GuildID,
		ActorID:    m.ActorID,
		Action:     audit.Action(m.Action),
		TargetKind: m.TargetKind,
		TargetID:   m.TargetID,
		Before:     m.Before,
		After:      m.After,
		Reason:     m.Reason,
		CreatedAt:  m.CreatedAt,
	}
}
