// Package memory provides an in-memory implementation of the Bastion
// composite store. It is intended for testing, development, and as the
// fallback when no durable backend is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// Compile-time interface checks.
var (
	_ binding.Store     = (*Store)(nil)
	_ requirement.Store = (*Store)(nil)
	_ override.Store    = (*Store)(nil)
	_ audit.Store       = (*Store)(nil)
)

// Store is a thread-safe in-memory store for all Bastion entities.
type Store struct {
	mu sync.RWMutex

	bindings     map[string]map[string]*binding.Binding         // guildID -> roleID
	requirements map[string]map[string]*requirement.Requirement // guildID -> node
	overrides    map[string]*override.Override                  // overrideID
	audits       []*audit.Entry                                 // append order
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		bindings:     make(map[string]map[string]*binding.Binding),
		requirements: make(map[string]map[string]*requirement.Requirement),
		overrides:    make(map[string]*override.Override),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

var errNotFound = fmt.Errorf("not found")

// ──────────────────────────────────────────────────
// Binding Store
// ──────────────────────────────────────────────────

func (s *Store) UpsertBinding(_ context.Context, b *binding.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.bindings[b.GuildID]
	if guild == nil {
		guild = make(map[string]*binding.Binding)
		s.bindings[b.GuildID] = guild
	}
	cp := copyBinding(b)
	if existing, ok := guild[b.RoleID]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	}
	guild[b.RoleID] = cp
	*b = *copyBinding(cp)
	return nil
}

func (s *Store) GetBinding(_ context.Context, guildID, roleID string) (*binding.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[guildID][roleID]
	if !ok {
		return nil, fmt.Errorf("binding %s/%s: %w", guildID, roleID, errNotFound)
	}
	return copyBinding(b), nil
}

func (s *Store) GetBindingByID(_ context.Context, bindingID id.BindingID) (*binding.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, guild := range s.bindings {
		for _, b := range guild {
			if b.ID == bindingID {
				return copyBinding(b), nil
			}
		}
	}
	return nil, fmt.Errorf("binding %s: %w", bindingID, errNotFound)
}

func (s *Store) DeleteBinding(_ context.Context, guildID, roleID string) (*binding.Binding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bindings[guildID][roleID]
	if !ok {
		return nil, nil
	}
	delete(s.bindings[guildID], roleID)
	return copyBinding(b), nil
}

func (s *Store) ListBindings(_ context.Context, filter *binding.ListFilter) ([]*binding.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*binding.Binding
	for guildID, guild := range s.bindings {
		if filter != nil && filter.GuildID != "" && guildID != filter.GuildID {
			continue
		}
		for _, b := range guild {
			if filter != nil {
				if filter.Source != "" && b.Source != filter.Source {
					continue
				}
				if len(filter.RoleIDs) > 0 && !containsString(filter.RoleIDs, b.RoleID) {
					continue
				}
			}
			result = append(result, copyBinding(b))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].GuildID != result[j].GuildID {
			return result[i].GuildID < result[j].GuildID
		}
		return result[i].RoleID < result[j].RoleID
	})
	if filter != nil {
		result = applyPagination(result, pagOpts{limit: filter.Limit, offset: filter.Offset})
	}
	return result, nil
}

func (s *Store) DeleteBindingsByGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, guildID)
	return nil
}

// ──────────────────────────────────────────────────
// Requirement Store
// ──────────────────────────────────────────────────

func (s *Store) SetRequirement(_ context.Context, r *requirement.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.requirements[r.GuildID]
	if guild == nil {
		guild = make(map[string]*requirement.Requirement)
		s.requirements[r.GuildID] = guild
	}
	cp := *r
	guild[r.Node] = &cp
	return nil
}

func (s *Store) GetRequirement(_ context.Context, guildID, node string) (*requirement.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requirements[guildID][node]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) DeleteRequirement(_ context.Context, guildID, node string) (*requirement.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requirements[guildID][node]
	if !ok {
		return nil, nil
	}
	delete(s.requirements[guildID], node)
	cp := *r
	return &cp, nil
}

func (s *Store) ListRequirements(_ context.Context, guildID string) ([]*requirement.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	guild := s.requirements[guildID]
	result := make([]*requirement.Requirement, 0, len(guild))
	for _, r := range guild {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Node < result[j].Node })
	return result, nil
}

func (s *Store) DeleteRequirementsByGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requirements, guildID)
	return nil
}

// ──────────────────────────────────────────────────
// Override Store
// ──────────────────────────────────────────────────

func (s *Store) CreateOverride(_ context.Context, o *override.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[o.ID.String()] = copyOverride(o)
	return nil
}

func (s *Store) GetOverride(_ context.Context, overrideID id.OverrideID) (*override.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[overrideID.String()]
	if !ok {
		return nil, fmt.Errorf("override %s: %w", overrideID, errNotFound)
	}
	return copyOverride(o), nil
}

func (s *Store) DeleteOverride(_ context.Context, overrideID id.OverrideID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, overrideID.String())
	return nil
}

func (s *Store) DeleteOverridesByKey(_ context.Context, guildID string, kind override.TargetKind, targetID, node string, scope *override.Scope) ([]*override.Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*override.Override
	for key, o := range s.overrides {
		if o.GuildID != guildID || o.TargetKind != kind || o.TargetID != targetID || o.Node != node {
			continue
		}
		if scope != nil && o.Scope != *scope {
			continue
		}
		removed = append(removed, copyOverride(o))
		delete(s.overrides, key)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].CreatedAt.Before(removed[j].CreatedAt) })
	return removed, nil
}

func (s *Store) ListOverrides(_ context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*override.Override
	for _, o := range s.overrides {
		if filter != nil {
			if filter.GuildID != "" && o.GuildID != filter.GuildID {
				continue
			}
			if filter.Node != "" && o.Node != filter.Node {
				continue
			}
			if filter.TargetKind != "" && o.TargetKind != filter.TargetKind {
				continue
			}
			if len(filter.TargetIDs) > 0 && !containsString(filter.TargetIDs, o.TargetID) {
				continue
			}
		}
		result = append(result, copyOverride(o))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if filter != nil {
		result = applyPagination(result, pagOpts{limit: filter.Limit, offset: filter.Offset})
	}
	return result, nil
}

func (s *Store) PurgeExpiredOverrides(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for key, o := range s.overrides {
		if o.Expired(now) {
			delete(s.overrides, key)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) DeleteOverridesByGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, o := range s.overrides {
		if o.GuildID == guildID {
			delete(s.overrides, key)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit Store
// ──────────────────────────────────────────────────

func (s *Store) AppendAudit(_ context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, copyAudit(e))
	return nil
}

func (s *Store) GetAudit(_ context.Context, auditID id.AuditID) (*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.audits {
		if e.ID == auditID {
			return copyAudit(e), nil
		}
	}
	return nil, fmt.Errorf("audit %s: %w", auditID, errNotFound)
}

func (s *Store) ListAudits(_ context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*audit.Entry
	for _, e := range s.audits {
		if !matchAudit(e, filter) {
			continue
		}
		result = append(result, copyAudit(e))
	}
	// Newest first; append order breaks CreatedAt ties.
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter != nil {
		result = applyPagination(result, pagOpts{limit: filter.Limit, offset: filter.Offset})
	}
	return result, nil
}

func (s *Store) CountAudits(_ context.Context, filter *audit.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, e := range s.audits {
		if matchAudit(e, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) PurgeAudits(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audits[:0]
	var purged int64
	for _, e := range s.audits {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	s.audits = kept
	return purged, nil
}

func (s *Store) DeleteAuditsByGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audits[:0]
	for _, e := range s.audits {
		if e.GuildID == guildID {
			continue
		}
		kept = append(kept, e)
	}
	s.audits = kept
	return nil
}

func matchAudit(e *audit.Entry, filter *audit.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.GuildID != "" && e.GuildID != filter.GuildID {
		return false
	}
	if filter.ActorID != "" && e.ActorID != filter.ActorID {
		return false
	}
	if filter.Action != "" && e.Action != filter.Action {
		return false
	}
	if filter.After != nil && !e.CreatedAt.After(*filter.After) {
		return false
	}
	if filter.Before != nil && !e.CreatedAt.Before(*filter.Before) {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────
// Copy helpers (copy-on-read, copy-on-write)
// ──────────────────────────────────────────────────

func copyBinding(b *binding.Binding) *binding.Binding {
	c := *b
	return &c
}

func copyOverride(o *override.Override) *override.Override {
	c := *o
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func copyAudit(e *audit.Entry) *audit.Entry {
	c := *e
	c.Before = copyMap(e.Before)
	c.After = copyMap(e.After)
	return &c
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

type pagOpts struct{ limit, offset int }

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
