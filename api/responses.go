package api

// ResolveResponse is the response for a permission resolution.
type ResolveResponse struct {
	Allowed        bool   `json:"allowed" description:"Whether the request is allowed"`
	Factor         string `json:"factor" description:"Deciding factor (override_user, override_role, bot_owner, banned, level)"`
	EffectiveLevel string `json:"effective_level" description:"Principal's effective level"`
	RequiredLevel  string `json:"required_level" description:"Level required for the node"`
	Reason         string `json:"reason,omitempty" description:"Human-readable reason"`
	EvalTimeNs     int64  `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// BatchResolveResponse contains results for multiple resolutions.
type BatchResolveResponse struct {
	Results []ResolveResponse `json:"results" description:"Resolution results in order"`
}

// EffectiveLevelResponse carries a principal's effective level.
type EffectiveLevelResponse struct {
	Level string `json:"level" description:"Level name"`
	Value int    `json:"value" description:"Numeric level value"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
