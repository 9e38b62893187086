// Package store defines the aggregate persistence interface. Each subsystem
// (binding, requirement, override, audit) defines its own store interface.
// The composite Store composes them all.
// Backends: Postgres, SQLite, Mongo, and Memory.
package store

import (
	"context"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
)

// Store is the aggregate persistence interface.
// Each subsystem store is a composable interface; a single backend
// (postgres, sqlite, mongo, memory) implements all of them.
type Store interface {
	binding.Store
	requirement.Store
	override.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
