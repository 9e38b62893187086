// Package node defines permission nodes and the process-wide registry
// commands declare themselves against.
//
// A node is a dotted, case-sensitive capability name such as
// "moderation.kick". Registration happens once at startup; resolution
// treats any unregistered node as a hard error rather than falling back
// to a default, so typos deny instead of silently allowing.
package node

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/bastion/level"
)

// Sentinel errors for registry operations.
var (
	// ErrUnknown is returned when a node name was never registered.
	ErrUnknown = errors.New("node: unknown node")

	// ErrDuplicate is returned when a node is re-registered with a
	// different default level or description.
	ErrDuplicate = errors.New("node: duplicate node")
)

// Node describes a registered permission node.
type Node struct {
	Name         string      `json:"name"`
	DefaultLevel level.Level `json:"default_level"`
	Description  string      `json:"description,omitempty"`
	RegisteredAt time.Time   `json:"registered_at"`
}

// Registry holds the process-wide node table. The zero value is ready
// to use. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

// Register adds a node to the registry. Registering the same name with an
// identical default level and description is a no-op; registering it with
// different values returns ErrDuplicate.
func (r *Registry) Register(name string, defaultLevel level.Level, description string) error {
	if name == "" {
		return fmt.Errorf("node: register: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nodes == nil {
		r.nodes = make(map[string]*Node)
	}

	if existing, ok := r.nodes[name]; ok {
		if existing.DefaultLevel == defaultLevel && existing.Description == description {
			return nil
		}

		return fmt.Errorf("%w: %q already registered at %s", ErrDuplicate, name, existing.DefaultLevel)
	}

	r.nodes[name] = &Node{
		Name:         name,
		DefaultLevel: defaultLevel,
		Description:  description,
		RegisteredAt: r.clock()(),
	}

	return nil
}

// MustRegister is like Register but panics on error. Use for static
// command tables wired at startup.
func (r *Registry) MustRegister(name string, defaultLevel level.Level, description string) {
	if err := r.Register(name, defaultLevel, description); err != nil {
		panic(fmt.Sprintf("node: must register %q: %v", name, err))
	}
}

// Lookup returns the node registered under name, or ErrUnknown.
func (r *Registry) Lookup(name string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	cp := *n

	return &cp, nil
}

// List returns all registered nodes sorted by name.
func (r *Registry) List() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		cp := *n
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.nodes)
}

func (r *Registry) clock() func() time.Time {
	if r.now != nil {
		return r.now
	}

	return time.Now
}
