package bastion

import (
	"errors"

	"github.com/xraph/bastion/node"
	"github.com/xraph/bastion/override"
)

var (
	// ErrAccessDenied is returned by Enforce when a resolution denies.
	ErrAccessDenied = errors.New("bastion: access denied")

	// ErrStoreUnavailable wraps storage failures on the resolution path.
	// Callers must treat it as a denial, never as a grant.
	ErrStoreUnavailable = errors.New("bastion: store unavailable")

	// ErrInvalidRequest is returned when a resolve request is missing
	// its user, guild, or node.
	ErrInvalidRequest = errors.New("bastion: invalid resolve request")

	// ErrUnknownLevel is returned when a mutation names a level outside
	// the known scale.
	ErrUnknownLevel = errors.New("bastion: unknown level")
)

// Aliases for sentinel errors owned by subpackages, re-exported so
// callers can match everything against the root package.
var (
	// ErrUnknownNode is returned when an operation names an unregistered node.
	ErrUnknownNode = node.ErrUnknown

	// ErrDuplicateNode is returned when a node is re-registered with
	// conflicting metadata.
	ErrDuplicateNode = node.ErrDuplicate

	// ErrInvalidOverride is returned when an override fails validation.
	ErrInvalidOverride = override.ErrInvalid
)
