package node_test

import (
	"errors"
	"testing"

	"github.com/xraph/bastion/level"
	"github.com/xraph/bastion/node"
)

func TestRegisterAndLookup(t *testing.T) {
	r := node.NewRegistry()

	if err := r.Register("moderation.kick", level.Moderator, "Kick members"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	n, err := r.Lookup("moderation.kick")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if n.DefaultLevel != level.Moderator {
		t.Errorf("expected default level %s, got %s", level.Moderator, n.DefaultLevel)
	}
	if n.RegisteredAt.IsZero() {
		t.Error("expected RegisteredAt to be set")
	}
}

func TestLookupUnknown(t *testing.T) {
	r := node.NewRegistry()

	_, err := r.Lookup("no.such.node")
	if !errors.Is(err, node.ErrUnknown) {
		t.Errorf("expected ErrUnknown, got %v", err)
	}
}

func TestRegisterIdenticalIsNoOp(t *testing.T) {
	r := node.NewRegistry()

	if err := r.Register("basic.ping", level.Everyone, "Use ping command"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := r.Register("basic.ping", level.Everyone, "Use ping command"); err != nil {
		t.Errorf("identical re-register should be a no-op, got %v", err)
	}
	if got := r.Len(); got != 1 {
		t.Errorf("expected 1 node, got %d", got)
	}
}

func TestRegisterConflictingDuplicate(t *testing.T) {
	r := node.NewRegistry()

	if err := r.Register("basic.ping", level.Everyone, "Use ping command"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := r.Register("basic.ping", level.Moderator, "Use ping command")
	if !errors.Is(err, node.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for changed level, got %v", err)
	}

	err = r.Register("basic.ping", level.Everyone, "Something else")
	if !errors.Is(err, node.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for changed description, got %v", err)
	}
}

func TestRegisterEmptyName(t *testing.T) {
	r := node.NewRegistry()

	if err := r.Register("", level.Everyone, ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestMustRegisterPanics(t *testing.T) {
	r := node.NewRegistry()
	r.MustRegister("owner.eval", level.BotOwner, "Execute code")

	defer func() {
		if recover() == nil {
			t.Error("expected panic on conflicting MustRegister")
		}
	}()

	r.MustRegister("owner.eval", level.Owner, "Execute code")
}

func TestListSorted(t *testing.T) {
	r := node.NewRegistry()
	r.MustRegister("moderation.kick", level.Moderator, "")
	r.MustRegister("basic.ping", level.Everyone, "")
	r.MustRegister("owner.shutdown", level.Owner, "")

	nodes := r.List()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	for i := 1; i < len(nodes); i++ {
		if nodes[i-1].Name >= nodes[i].Name {
			t.Errorf("list not sorted: %q >= %q", nodes[i-1].Name, nodes[i].Name)
		}
	}
}

func TestListCopies(t *testing.T) {
	r := node.NewRegistry()
	r.MustRegister("basic.ping", level.Everyone, "")

	nodes := r.List()
	nodes[0].DefaultLevel = level.BotOwner

	n, err := r.Lookup("basic.ping")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if n.DefaultLevel != level.Everyone {
		t.Error("mutating a listed node should not affect the registry")
	}
}

func TestDefaults(t *testing.T) {
	r := node.NewRegistry()
	if err := node.Defaults(r); err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}

	tests := []struct {
		name string
		want level.Level
	}{
		{"basic.ping", level.Everyone},
		{"utility.userinfo", level.Member},
		{"moderation.kick", level.Moderator},
		{"moderation.mass_ban", level.LeadModerator},
		{"admin.settings", level.Admin},
		{"admin.audit_logs", level.LeadAdmin},
		{"owner.shutdown", level.Owner},
		{"owner.eval", level.BotOwner},
	}

	for _, tt := range tests {
		n, err := r.Lookup(tt.name)
		if err != nil {
			t.Errorf("Lookup(%q) failed: %v", tt.name, err)

			continue
		}
		if n.DefaultLevel != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, n.DefaultLevel)
		}
	}

	// Idempotent.
	if err := node.Defaults(r); err != nil {
		t.Errorf("second Defaults call should be a no-op, got %v", err)
	}
}
