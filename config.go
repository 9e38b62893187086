package bastion

import "time"

// Config holds configuration for the Bastion engine.
type Config struct {
	// CacheTTL is the time-to-live for cached resolutions. It bounds
	// how stale a cached answer can be after an out-of-band change.
	// Defaults to 5 minutes.
	CacheTTL time.Duration `json:"cache_ttl,omitempty"`

	// StoreTimeout bounds every storage round trip made by the engine.
	// Defaults to 5 seconds.
	StoreTimeout time.Duration `json:"store_timeout,omitempty"`

	// AuditRetention is how long audit entries are kept before
	// PurgeExpired removes them. Zero disables audit purging.
	// Defaults to 90 days.
	AuditRetention time.Duration `json:"audit_retention,omitempty"`

	// DeepAnalysisLimit caps how many roles receive full classification
	// during auto-configuration. Defaults to 50.
	DeepAnalysisLimit int `json:"deep_analysis_limit,omitempty"`

	// RoleCountThreshold is the guild role count above which
	// classification falls back to position-only analysis.
	// Defaults to 250.
	RoleCountThreshold int `json:"role_count_threshold,omitempty"`

	// AutoConfigureMinConfidence is the classification confidence below
	// which auto-configuration skips a role. Defaults to 0.4.
	AutoConfigureMinConfidence float64 `json:"auto_configure_min_confidence,omitempty"`

	// BotOwnerIDs are user IDs granted BotOwner authority everywhere.
	// Only an explicit deny override outranks them.
	BotOwnerIDs []string `json:"bot_owner_ids,omitempty"`

	// BotAdminIDs are user IDs whose effective level is floored at
	// BotAdmin in every guild.
	BotAdminIDs []string `json:"bot_admin_ids,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:                   5 * time.Minute,
		StoreTimeout:               5 * time.Second,
		AuditRetention:             90 * 24 * time.Hour,
		DeepAnalysisLimit:          50,
		RoleCountThreshold:         250,
		AutoConfigureMinConfidence: 0.4,
	}
}
