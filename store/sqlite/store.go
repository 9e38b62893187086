// Package sqlite provides a SQLite-backed Bastion store via grove.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
	"github.com/xraph/bastion/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a SQLite implementation of the composite Bastion store.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("bastion/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("bastion/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Binding operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertBinding(ctx context.Context, b *binding.Binding) error {
	existing := new(bindingModel)
	err := s.sdb.NewSelect(existing).
		Where("guild_id = ?", b.GuildID).
		Where("role_id = ?", b.RoleID).
		Scan(ctx)
	switch {
	case err == nil:
		// Replacing keeps the original identity and creation time.
		b.ID, _ = id.ParseBindingID(existing.ID) //nolint:errcheck // stored IDs are always valid
		b.CreatedAt = existing.CreatedAt
		m := bindingToModel(b)
		if _, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert binding: %w", err)
		}
		return nil
	case isNoRows(err):
		m := bindingToModel(b)
		if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert binding: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("bastion: upsert binding: %w", err)
	}
}

func (s *Store) GetBinding(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	m := new(bindingModel)
	err := s.sdb.NewSelect(m).
		Where("guild_id = ?", guildID).
		Where("role_id = ?", roleID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("binding %s/%s: %w", guildID, roleID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get binding: %w", err)
	}
	return bindingFromModel(m), nil
}

func (s *Store) GetBindingByID(ctx context.Context, bindingID id.BindingID) (*binding.Binding, error) {
	m := new(bindingModel)
	err := s.sdb.NewSelect(m).Where("id = ?", bindingID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("binding %s: %w", bindingID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get binding: %w", err)
	}
	return bindingFromModel(m), nil
}

func (s *Store) DeleteBinding(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	m := new(bindingModel)
	err := s.sdb.NewSelect(m).
		Where("guild_id = ?", guildID).
		Where("role_id = ?", roleID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: delete binding: %w", err)
	}
	if _, err := s.sdb.NewDelete((*bindingModel)(nil)).Where("id = ?", m.ID).Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete binding: %w", err)
	}
	return bindingFromModel(m), nil
}

func (s *Store) ListBindings(ctx context.Context, filter *binding.ListFilter) ([]*binding.Binding, error) {
	var models []*bindingModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GuildID != "" {
			q = q.Where("guild_id = ?", filter.GuildID)
		}
		if len(filter.RoleIDs) > 0 {
			q = q.Where("role_id IN (?)", filter.RoleIDs)
		}
		if filter.Source != "" {
			q = q.Where("source = ?", string(filter.Source))
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list bindings: %w", err)
	}
	result := make([]*binding.Binding, 0, len(models))
	for _, m := range models {
		result = append(result, bindingFromModel(m))
	}
	return result, nil
}

func (s *Store) DeleteBindingsByGuild(ctx context.Context, guildID string) error {
	if _, err := s.sdb.NewDelete((*bindingModel)(nil)).
		Where("guild_id = ?", guildID).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: delete guild bindings: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Requirement operations
// ──────────────────────────────────────────────────

func (s *Store) SetRequirement(ctx context.Context, r *requirement.Requirement) error {
	m := requirementToModel(r)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(guild_id, node) DO UPDATE SET level = excluded.level, updated_by = excluded.updated_by, updated_at = excluded.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: set requirement: %w", err)
	}
	return nil
}

func (s *Store) GetRequirement(ctx context.Context, guildID, node string) (*requirement.Requirement, error) {
	m := new(requirementModel)
	err := s.sdb.NewSelect(m).
		Where("guild_id = ?", guildID).
		Where("node = ?", node).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: get requirement: %w", err)
	}
	return requirementFromModel(m), nil
}

func (s *Store) DeleteRequirement(ctx context.Context, guildID, node string) (*requirement.Requirement, error) {
	m := new(requirementModel)
	err := s.sdb.NewSelect(m).
		Where("guild_id = ?", guildID).
		Where("node = ?", node).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: delete requirement: %w", err)
	}
	if _, err := s.sdb.NewDelete((*requirementModel)(nil)).
		Where("guild_id = ?", guildID).
		Where("node = ?", node).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete requirement: %w", err)
	}
	return requirementFromModel(m), nil
}

func (s *Store) ListRequirements(ctx context.Context, guildID string) ([]*requirement.Requirement, error) {
	var models []*requirementModel
	err := s.sdb.NewSelect(&models).
		Where("guild_id = ?", guildID).
		OrderExpr("node ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: list requirements: %w", err)
	}
	result := make([]*requirement.Requirement, 0, len(models))
	for _, m := range models {
		result = append(result, requirementFromModel(m))
	}
	return result, nil
}

func (s *Store) DeleteRequirementsByGuild(ctx context.Context, guildID string) error {
	if _, err := s.sdb.NewDelete((*requirementModel)(nil)).
		Where("guild_id = ?", guildID).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: delete guild requirements: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Override operations
// ──────────────────────────────────────────────────

func (s *Store) CreateOverride(ctx context.Context, o *override.Override) error {
	m := overrideToModel(o)
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: create override: %w", err)
	}
	return nil
}

func (s *Store) GetOverride(ctx context.Context, overrideID id.OverrideID) (*override.Override, error) {
	m := new(overrideModel)
	err := s.sdb.NewSelect(m).Where("id = ?", overrideID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("override %s: %w", overrideID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get override: %w", err)
	}
	return overrideFromModel(m), nil
}

func (s *Store) DeleteOverride(ctx context.Context, overrideID id.OverrideID) error {
	if _, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("id = ?", overrideID.String()).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: delete override: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverridesByKey(ctx context.Context, guildID string, kind override.TargetKind, targetID, node string, scope *override.Scope) ([]*override.Override, error) {
	var models []*overrideModel
	q := s.sdb.NewSelect(&models).
		Where("guild_id = ?", guildID).
		Where("target_kind = ?", string(kind)).
		Where("target_id = ?", targetID).
		Where("node = ?", node)
	if scope != nil {
		q = q.Where("scope_kind = ?", string(scope.Kind)).
			Where("scope_id = ?", scope.ID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete overrides by key: %w", err)
	}
	if len(models) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(models))
	removed := make([]*override.Override, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
		removed = append(removed, overrideFromModel(m))
	}
	if _, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("id IN (?)", ids).Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete overrides by key: %w", err)
	}
	return removed, nil
}

func (s *Store) ListOverrides(ctx context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	var models []*overrideModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at ASC")
	if filter != nil {
		if filter.GuildID != "" {
			q = q.Where("guild_id = ?", filter.GuildID)
		}
		if filter.Node != "" {
			q = q.Where("node = ?", filter.Node)
		}
		if filter.TargetKind != "" {
			q = q.Where("target_kind = ?", string(filter.TargetKind))
		}
		if len(filter.TargetIDs) > 0 {
			q = q.Where("target_id IN (?)", filter.TargetIDs)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list overrides: %w", err)
	}
	result := make([]*override.Override, 0, len(models))
	for _, m := range models {
		result = append(result, overrideFromModel(m))
	}
	return result, nil
}

func (s *Store) PurgeExpiredOverrides(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: purge expired overrides: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bastion: purge expired overrides rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteOverridesByGuild(ctx context.Context, guildID string) error {
	if _, err := s.sdb.NewDelete((*overrideModel)(nil)).
		Where("guild_id = ?", guildID).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: delete guild overrides: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	m, err := auditToModel(e)
	if err != nil {
		return fmt.Errorf("bastion: append audit: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: append audit: %w", err)
	}
	return nil
}

func (s *Store) GetAudit(ctx context.Context, auditID id.AuditID) (*audit.Entry, error) {
	m := new(auditModel)
	err := s.sdb.NewSelect(m).Where("id = ?", auditID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("audit %s: %w", auditID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get audit: %w", err)
	}
	return auditFromModel(m)
}

func (s *Store) ListAudits(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []*auditModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC")
	if filter != nil {
		if filter.GuildID != "" {
			q = q.Where("guild_id = ?", filter.GuildID)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", string(filter.Action))
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list audits: %w", err)
	}
	result := make([]*audit.Entry, 0, len(models))
	for _, m := range models {
		e, err := auditFromModel(m)
		if err != nil {
			return nil, fmt.Errorf("bastion: list audits: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) CountAudits(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*auditModel)(nil))
	if filter != nil {
		if filter.GuildID != "" {
			q = q.Where("guild_id = ?", filter.GuildID)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", string(filter.Action))
		}
		if filter.After != nil {
			q = q.Where("created_at > ?", *filter.After)
		}
		if filter.Before != nil {
			q = q.Where("created_at < ?", *filter.Before)
		}
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: count audits: %w", err)
	}
	return int64(count), nil
}

func (s *Store) PurgeAudits(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*auditModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: purge audits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bastion: purge audits rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteAuditsByGuild(ctx context.Context, guildID string) error {
	if _, err := s.sdb.NewDelete((*auditModel)(nil)).
		Where("guild_id = ?", guildID).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: delete guild audits: %w", err)
	}
	return nil
}
