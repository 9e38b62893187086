package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Bastion store (PostgreSQL).
var Migrations = migrate.NewGroup("bastion")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_bindings",
			Version: "20250201000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_bindings (
    id              TEXT PRIMARY KEY,
    guild_id        TEXT NOT NULL,
    role_id         TEXT NOT NULL,
    level           INTEGER NOT NULL,
    source          TEXT NOT NULL,
    updated_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    UNIQUE(guild_id, role_id)
);

CREATE INDEX IF NOT EXISTS idx_bastion_bindings_guild ON bastion_bindings (guild_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_bindings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_requirements",
			Version: "20250201000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_requirements (
    guild_id        TEXT NOT NULL,
    node            TEXT NOT NULL,
    level           INTEGER NOT NULL,
    updated_by      TEXT NOT NULL DEFAULT '',
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),

    PRIMARY KEY (guild_id, node)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_requirements`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_overrides",
			Version: "20250201000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_overrides (
    id              TEXT PRIMARY KEY,
    guild_id        TEXT NOT NULL,
    target_kind     TEXT NOT NULL,
    target_id       TEXT NOT NULL,
    node            TEXT NOT NULL,
    granted         BOOLEAN NOT NULL,
    scope_kind      TEXT NOT NULL,
    scope_id        TEXT NOT NULL DEFAULT '',
    expires_at      TIMESTAMPTZ,
    reason          TEXT NOT NULL DEFAULT '',
    created_by      TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bastion_overrides_lookup ON bastion_overrides (guild_id, node, target_kind, target_id);
CREATE INDEX IF NOT EXISTS idx_bastion_overrides_expiry ON bastion_overrides (expires_at) WHERE expires_at IS NOT NULL;
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_overrides`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_audits",
			Version: "20250201000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS bastion_audits (
    id              TEXT PRIMARY KEY,
    guild_id        TEXT NOT NULL,
    actor_id        TEXT NOT NULL,
    action          TEXT NOT NULL,
    target_kind     TEXT NOT NULL DEFAULT '',
    target_id       TEXT NOT NULL DEFAULT '',
    before          JSONB,
    after           JSONB,
    reason          TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bastion_audits_guild ON bastion_audits (guild_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bastion_audits_actor ON bastion_audits (actor_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS bastion_audits`)
				return err
			},
		},
	)
}
