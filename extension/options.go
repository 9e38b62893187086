package extension

import (
	"log/slog"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// ExtOption configures the Bastion Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.bastionOpts = append(e.bastionOpts, bastion.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...bastion.Option) ExtOption {
	return func(e *Extension) {
		e.bastionOpts = append(e.bastionOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithBotOwners grants BotOwner authority to the listed users.
func WithBotOwners(userIDs ...string) ExtOption {
	return func(e *Extension) {
		e.config.BotOwnerIDs = append(e.config.BotOwnerIDs, userIDs...)
		e.bastionOpts = append(e.bastionOpts, bastion.WithBotOwners(userIDs...))
	}
}

// WithBotAdmins floors the listed users at BotAdmin in every guild.
func WithBotAdmins(userIDs ...string) ExtOption {
	return func(e *Extension) {
		e.config.BotAdminIDs = append(e.config.BotAdminIDs, userIDs...)
		e.bastionOpts = append(e.bastionOpts, bastion.WithBotAdmins(userIDs...))
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
