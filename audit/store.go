package audit

import (
	"context"
	"time"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for audit entries.
type Store interface {
	// AppendAudit persists a new audit entry.
	AppendAudit(ctx context.Context, e *Entry) error

	// GetAudit retrieves an audit entry by ID.
	GetAudit(ctx context.Context, auditID id.AuditID) (*Entry, error)

	// ListAudits returns entries matching the filter, newest first.
	ListAudits(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountAudits returns the number of entries matching the filter.
	CountAudits(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeAudits removes entries created before the given time.
	PurgeAudits(ctx context.Context, before time.Time) (int64, error)

	// DeleteAuditsByGuild removes all audit entries for a guild.
	DeleteAuditsByGuild(ctx context.Context, guildID string) error
}
