// Package cache provides caching implementations for Bastion resolutions.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/level"
)

// Compile-time interface check.
var _ bastion.Cache = (*Memory)(nil)

// Memory is an in-memory cache with TTL-based expiration. It holds both
// resolutions and effective levels; the TTL bounds how stale either can
// be after an out-of-band change.
type Memory struct {
	mu          sync.RWMutex
	resolutions map[string]*resolutionEntry
	levels      map[string]*levelEntry
	ttl         time.Duration
	maxSize     int
}

type resolutionEntry struct {
	res       *bastion.Resolution
	expiresAt time.Time
}

type levelEntry struct {
	lvl       level.Level
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cached resolutions.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		resolutions: make(map[string]*resolutionEntry),
		levels:      make(map[string]*levelEntry),
		ttl:         5 * time.Minute,
		maxSize:     10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached resolution.
func (m *Memory) Get(_ context.Context, req *bastion.ResolveRequest) (*bastion.Resolution, bool) {
	key := resolutionKey(req)
	m.mu.RLock()
	e, ok := m.resolutions[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.resolutions, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.res, true
}

// Set stores a resolution in the cache.
func (m *Memory) Set(_ context.Context, req *bastion.ResolveRequest, res *bastion.Resolution) {
	key := resolutionKey(req)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.resolutions) >= m.maxSize {
		m.evictExpired()
		if len(m.resolutions) >= m.maxSize {
			// Evict one arbitrary entry.
			m.evictOne()
		}
	}

	m.resolutions[key] = &resolutionEntry{
		res:       res,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// GetLevel returns a cached effective level for a guild member.
func (m *Memory) GetLevel(_ context.Context, guildID, userID string) (level.Level, bool) {
	key := levelKey(guildID, userID)
	m.mu.RLock()
	e, ok := m.levels[key]
	m.mu.RUnlock()
	if !ok {
		return level.Everyone, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.levels, key)
		m.mu.Unlock()
		return level.Everyone, false
	}
	return e.lvl, true
}

// SetLevel stores an effective level for a guild member.
func (m *Memory) SetLevel(_ context.Context, guildID, userID string, lvl level.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[levelKey(guildID, userID)] = &levelEntry{
		lvl:       lvl,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateGuild removes all cached entries for a guild.
func (m *Memory) InvalidateGuild(_ context.Context, guildID string) {
	prefix := guildID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.resolutions {
		if strings.HasPrefix(k, prefix) {
			delete(m.resolutions, k)
		}
	}
	for k := range m.levels {
		if strings.HasPrefix(k, prefix) {
			delete(m.levels, k)
		}
	}
}

// InvalidatePrincipal removes all cached entries for one user within a guild.
func (m *Memory) InvalidatePrincipal(_ context.Context, guildID, userID string) {
	prefix := guildID + "\x00" + userID + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.resolutions {
		if strings.HasPrefix(k, prefix) {
			delete(m.resolutions, k)
		}
	}
	delete(m.levels, levelKey(guildID, userID))
}

// Len returns the number of cached resolutions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.resolutions)
}

func resolutionKey(req *bastion.ResolveRequest) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s",
		req.GuildID,
		req.Principal.UserID,
		req.Node,
		req.ChannelID,
		strings.Join(req.Principal.RoleIDs, ","),
	)
}

func levelKey(guildID, userID string) string {
	return guildID + "\x00" + userID + "\x00level"
}

// evictExpired removes all expired resolutions. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.resolutions {
		if now.After(e.expiresAt) {
			delete(m.resolutions, k)
		}
	}
}

// evictOne removes one arbitrary resolution. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.resolutions {
		delete(m.resolutions, k)
		return
	}
}
