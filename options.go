package bastion

import (
	"log/slog"
	"time"

	"github.com/xraph/bastion/classify"
	"github.com/xraph/bastion/node"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// Option configures the Engine.
type Option func(*Engine)

// WithStore sets the storage backend. Required.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithRegistry sets the permission node registry. When omitted, a
// registry pre-populated with the default node set is used.
func WithRegistry(r *node.Registry) Option { return func(e *Engine) { e.registry = r } }

// WithClassifier sets the role classifier used by auto-configuration.
func WithClassifier(c *classify.Classifier) Option { return func(e *Engine) { e.classifier = c } }

// WithCache sets the resolution cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(cfg Config) Option { return func(e *Engine) { e.config = cfg } }

// WithClock sets the time source. Tests use this to pin time.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.clock = now } }

// WithPlugin registers a plugin for lifecycle events.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) { e.pendingPlugins = append(e.pendingPlugins, p) }
}

// WithBotOwners appends user IDs granted BotOwner authority everywhere.
func WithBotOwners(userIDs ...string) Option {
	return func(e *Engine) { e.config.BotOwnerIDs = append(e.config.BotOwnerIDs, userIDs...) }
}

// WithBotAdmins appends user IDs floored at BotAdmin in every guild.
func WithBotAdmins(userIDs ...string) Option {
	return func(e *Engine) { e.config.BotAdminIDs = append(e.config.BotAdminIDs, userIDs...) }
}
