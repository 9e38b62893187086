package cache

import (
	"context"
	"testing"
	"time"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/level"
)

func request(guildID, userID, node, channelID string, roleIDs ...string) *bastion.ResolveRequest {
	return &bastion.ResolveRequest{
		Principal: bastion.Principal{UserID: userID, RoleIDs: roleIDs},
		GuildID:   guildID,
		ChannelID: channelID,
		Node:      node,
	}
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	req := request("g1", "u1", "moderation.kick", "")

	if _, ok := m.Get(ctx, req); ok {
		t.Fatal("expected miss on empty cache")
	}

	res := &bastion.Resolution{Allowed: true, Factor: bastion.FactorLevel}
	m.Set(ctx, req, res)

	got, ok := m.Get(ctx, req)
	if !ok || got != res {
		t.Fatalf("expected cached resolution, got %+v ok=%v", got, ok)
	}

	// Different channel is a different key.
	if _, ok := m.Get(ctx, request("g1", "u1", "moderation.kick", "c1")); ok {
		t.Error("channel-qualified request must not hit channel-less entry")
	}

	// Different role set is a different key.
	if _, ok := m.Get(ctx, request("g1", "u1", "moderation.kick", "", "r1")); ok {
		t.Error("request with roles must not hit role-less entry")
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithTTL(10 * time.Millisecond))
	req := request("g1", "u1", "basic.ping", "")

	m.Set(ctx, req, &bastion.Resolution{Allowed: true})
	if _, ok := m.Get(ctx, req); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := m.Get(ctx, req); ok {
		t.Fatal("expected miss after expiry")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry should be removed on read, len=%d", m.Len())
	}
}

func TestLevelCache(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok := m.GetLevel(ctx, "g1", "u1"); ok {
		t.Fatal("expected level miss")
	}

	m.SetLevel(ctx, "g1", "u1", level.Moderator)
	lvl, ok := m.GetLevel(ctx, "g1", "u1")
	if !ok || lvl != level.Moderator {
		t.Fatalf("expected Moderator, got %v ok=%v", lvl, ok)
	}
}

func TestInvalidateGuild(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, request("g1", "u1", "basic.ping", ""), &bastion.Resolution{})
	m.Set(ctx, request("g2", "u1", "basic.ping", ""), &bastion.Resolution{})
	m.SetLevel(ctx, "g1", "u1", level.Admin)

	m.InvalidateGuild(ctx, "g1")

	if _, ok := m.Get(ctx, request("g1", "u1", "basic.ping", "")); ok {
		t.Error("g1 resolution should be invalidated")
	}
	if _, ok := m.GetLevel(ctx, "g1", "u1"); ok {
		t.Error("g1 level should be invalidated")
	}
	if _, ok := m.Get(ctx, request("g2", "u1", "basic.ping", "")); !ok {
		t.Error("g2 resolution must survive g1 invalidation")
	}
}

func TestInvalidatePrincipal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, request("g1", "u1", "basic.ping", ""), &bastion.Resolution{})
	m.Set(ctx, request("g1", "u2", "basic.ping", ""), &bastion.Resolution{})
	m.SetLevel(ctx, "g1", "u1", level.Admin)

	m.InvalidatePrincipal(ctx, "g1", "u1")

	if _, ok := m.Get(ctx, request("g1", "u1", "basic.ping", "")); ok {
		t.Error("u1 resolution should be invalidated")
	}
	if _, ok := m.GetLevel(ctx, "g1", "u1"); ok {
		t.Error("u1 level should be invalidated")
	}
	if _, ok := m.Get(ctx, request("g1", "u2", "basic.ping", "")); !ok {
		t.Error("u2 resolution must survive u1 invalidation")
	}
}

func TestMaxSizeEviction(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(WithMaxSize(3))

	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		m.Set(ctx, request("g1", u, "basic.ping", ""), &bastion.Resolution{})
	}

	if m.Len() > 3 {
		t.Errorf("cache exceeded max size: %d", m.Len())
	}
}
