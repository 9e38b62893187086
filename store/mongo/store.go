// Package mongo provides a MongoDB implementation of the Bastion
// composite store backed by grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
	"github.com/xraph/bastion/store"
)

// Collection name constants.
const (
	colBindings     = "bastion_bindings"
	colRequirements = "bastion_requirements"
	colOverrides    = "bastion_overrides"
	colAudits       = "bastion_audits"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// errNotFound is the sentinel for missing entities.
var errNotFound = fmt.Errorf("not found")

// Store is a MongoDB implementation of the composite Bastion store.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Migrate creates indexes for all bastion collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()
	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("bastion/mongo: migrate %s indexes: %w", col, err)
		}
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all bastion collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colBindings: {
			{
				Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "role_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "guild_id", Value: 1}}},
		},
		colRequirements: {
			{
				Keys:    bson.D{{Key: "guild_id", Value: 1}, {Key: "node", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colOverrides: {
			{Keys: bson.D{
				{Key: "guild_id", Value: 1},
				{Key: "node", Value: 1},
				{Key: "target_kind", Value: 1},
				{Key: "target_id", Value: 1},
			}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colAudits: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "actor_id", Value: 1}}},
		},
	}
}

// ──────────────────────────────────────────────────
// Binding operations
// ──────────────────────────────────────────────────

func (s *Store) UpsertBinding(ctx context.Context, b *binding.Binding) error {
	var existing bindingModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{"guild_id": b.GuildID, "role_id": b.RoleID}).
		Scan(ctx)
	switch {
	case err == nil:
		// Replacing keeps the original identity and creation time.
		b.ID, _ = id.ParseBindingID(existing.ID) //nolint:errcheck // stored IDs are always valid
		b.CreatedAt = existing.CreatedAt
		m := bindingToModel(b)
		if _, err := s.mdb.NewUpdate(m).Filter(bson.M{"_id": m.ID}).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert binding: %w", err)
		}
		return nil
	case isNoDocuments(err):
		m := bindingToModel(b)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: upsert binding: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("bastion: upsert binding: %w", err)
	}
}

func (s *Store) GetBinding(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	var m bindingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guild_id": guildID, "role_id": roleID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("binding %s/%s: %w", guildID, roleID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get binding: %w", err)
	}
	return bindingFromModel(&m), nil
}

func (s *Store) GetBindingByID(ctx context.Context, bindingID id.BindingID) (*binding.Binding, error) {
	var m bindingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": bindingID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("binding %s: %w", bindingID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get binding: %w", err)
	}
	return bindingFromModel(&m), nil
}

func (s *Store) DeleteBinding(ctx context.Context, guildID, roleID string) (*binding.Binding, error) {
	var m bindingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guild_id": guildID, "role_id": roleID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: delete binding: %w", err)
	}
	if _, err := s.mdb.NewDelete((*bindingModel)(nil)).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete binding: %w", err)
	}
	return bindingFromModel(&m), nil
}

func (s *Store) ListBindings(ctx context.Context, filter *binding.ListFilter) ([]*binding.Binding, error) {
	var models []bindingModel
	f := bson.M{}
	if filter != nil {
		if filter.GuildID != "" {
			f["guild_id"] = filter.GuildID
		}
		if len(filter.RoleIDs) > 0 {
			f["role_id"] = bson.M{"$in": filter.RoleIDs}
		}
		if filter.Source != "" {
			f["source"] = string(filter.Source)
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list bindings: %w", err)
	}
	result := make([]*binding.Binding, len(models))
	for i := range models {
		result[i] = bindingFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteBindingsByGuild(ctx context.Context, guildID string) error {
	_, err := s.mdb.NewDelete((*bindingModel)(nil)).
		Many().
		Filter(bson.M{"guild_id": guildID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete guild bindings: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Requirement operations
// ──────────────────────────────────────────────────

func (s *Store) SetRequirement(ctx context.Context, r *requirement.Requirement) error {
	m := requirementToModel(r)
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"guild_id": m.GuildID, "node": m.Node}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: set requirement: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("bastion: set requirement: %w", err)
		}
	}
	return nil
}

func (s *Store) GetRequirement(ctx context.Context, guildID, node string) (*requirement.Requirement, error) {
	var m requirementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guild_id": guildID, "node": node}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: get requirement: %w", err)
	}
	return requirementFromModel(&m), nil
}

func (s *Store) DeleteRequirement(ctx context.Context, guildID, node string) (*requirement.Requirement, error) {
	var m requirementModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"guild_id": guildID, "node": node}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bastion: delete requirement: %w", err)
	}
	if _, err := s.mdb.NewDelete((*requirementModel)(nil)).
		Filter(bson.M{"guild_id": guildID, "node": node}).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete requirement: %w", err)
	}
	return requirementFromModel(&m), nil
}

func (s *Store) ListRequirements(ctx context.Context, guildID string) ([]*requirement.Requirement, error) {
	var models []requirementModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"guild_id": guildID}).
		Sort(bson.D{{Key: "node", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("bastion: list requirements: %w", err)
	}
	result := make([]*requirement.Requirement, len(models))
	for i := range models {
		result[i] = requirementFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) DeleteRequirementsByGuild(ctx context.Context, guildID string) error {
	_, err := s.mdb.NewDelete((*requirementModel)(nil)).
		Many().
		Filter(bson.M{"guild_id": guildID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete guild requirements: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Override operations
// ──────────────────────────────────────────────────

func (s *Store) CreateOverride(ctx context.Context, o *override.Override) error {
	m := overrideToModel(o)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: create override: %w", err)
	}
	return nil
}

func (s *Store) GetOverride(ctx context.Context, overrideID id.OverrideID) (*override.Override, error) {
	var m overrideModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": overrideID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("override %s: %w", overrideID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get override: %w", err)
	}
	return overrideFromModel(&m), nil
}

func (s *Store) DeleteOverride(ctx context.Context, overrideID id.OverrideID) error {
	_, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Filter(bson.M{"_id": overrideID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete override: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverridesByKey(ctx context.Context, guildID string, kind override.TargetKind, targetID, node string, scope *override.Scope) ([]*override.Override, error) {
	f := bson.M{
		"guild_id":    guildID,
		"target_kind": string(kind),
		"target_id":   targetID,
		"node":        node,
	}
	if scope != nil {
		f["scope_kind"] = string(scope.Kind)
		f["scope_id"] = scope.ID
	}

	var models []overrideModel
	if err := s.mdb.NewFind(&models).Filter(f).Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete overrides by key: %w", err)
	}
	if len(models) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(models))
	removed := make([]*override.Override, 0, len(models))
	for i := range models {
		ids = append(ids, models[i].ID)
		removed = append(removed, overrideFromModel(&models[i]))
	}
	if _, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"_id": bson.M{"$in": ids}}).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("bastion: delete overrides by key: %w", err)
	}
	return removed, nil
}

func (s *Store) ListOverrides(ctx context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	var models []overrideModel
	f := bson.M{}
	if filter != nil {
		if filter.GuildID != "" {
			f["guild_id"] = filter.GuildID
		}
		if filter.Node != "" {
			f["node"] = filter.Node
		}
		if filter.TargetKind != "" {
			f["target_kind"] = string(filter.TargetKind)
		}
		if len(filter.TargetIDs) > 0 {
			f["target_id"] = bson.M{"$in": filter.TargetIDs}
		}
	}
	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "created_at", Value: 1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list overrides: %w", err)
	}
	result := make([]*override.Override, len(models))
	for i := range models {
		result[i] = overrideFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) PurgeExpiredOverrides(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"expires_at": bson.M{"$ne": nil, "$lte": now}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: purge expired overrides: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteOverridesByGuild(ctx context.Context, guildID string) error {
	_, err := s.mdb.NewDelete((*overrideModel)(nil)).
		Many().
		Filter(bson.M{"guild_id": guildID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete guild overrides: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit operations
// ──────────────────────────────────────────────────

func (s *Store) AppendAudit(ctx context.Context, e *audit.Entry) error {
	m := auditToModel(e)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("bastion: append audit: %w", err)
	}
	return nil
}

func (s *Store) GetAudit(ctx context.Context, auditID id.AuditID) (*audit.Entry, error) {
	var m auditModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": auditID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("audit %s: %w", auditID, errNotFound)
		}
		return nil, fmt.Errorf("bastion: get audit: %w", err)
	}
	return auditFromModel(&m), nil
}

func (s *Store) ListAudits(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	var models []auditModel
	q := s.mdb.NewFind(&models).
		Filter(auditFilter(filter)).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(int64(filter.Limit))
		}
		if filter.Offset > 0 {
			q = q.Skip(int64(filter.Offset))
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("bastion: list audits: %w", err)
	}
	result := make([]*audit.Entry, len(models))
	for i := range models {
		result[i] = auditFromModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountAudits(ctx context.Context, filter *audit.QueryFilter) (int64, error) {
	count, err := s.mdb.NewFind((*auditModel)(nil)).
		Filter(auditFilter(filter)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: count audits: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeAudits(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"created_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("bastion: purge audits: %w", err)
	}
	return res.DeletedCount(), nil
}

func (s *Store) DeleteAuditsByGuild(ctx context.Context, guildID string) error {
	_, err := s.mdb.NewDelete((*auditModel)(nil)).
		Many().
		Filter(bson.M{"guild_id": guildID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bastion: delete guild audits: %w", err)
	}
	return nil
}

func auditFilter(filter *audit.QueryFilter) bson.M {
	f := bson.M{}
	if filter == nil {
		return f
	}
	if filter.GuildID != "" {
		f["guild_id"] = filter.GuildID
	}
	if filter.ActorID != "" {
		f["actor_id"] = filter.ActorID
	}
	if filter.Action != "" {
		f["action"] = string(filter.Action)
	}
	created := bson.M{}
	if filter.After != nil {
		created["$gt"] = *filter.After
	}
	if filter.Before != nil {
		created["$lt"] = *filter.Before
	}
	if len(created) > 0 {
		f["created_at"] = created
	}
	return f
}
