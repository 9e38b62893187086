package override_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/override"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newOverride(t *testing.T, scope override.Scope, granted bool, createdAt time.Time) *override.Override {
	t.Helper()

	return &override.Override{
		ID:         id.NewOverrideID(),
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    granted,
		Scope:      scope,
		CreatedAt:  createdAt,
	}
}

func TestValidate(t *testing.T) {
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		mutate  func(*override.Override)
		wantErr bool
	}{
		{"valid guild scope", func(o *override.Override) {}, false},
		{"valid global scope", func(o *override.Override) { o.Scope = override.GlobalScope }, false},
		{"valid channel scope", func(o *override.Override) { o.Scope = override.ChannelScope("c1") }, false},
		{"valid future expiry", func(o *override.Override) { o.ExpiresAt = &future }, false},
		{"bad target kind", func(o *override.Override) { o.TargetKind = "guild" }, true},
		{"empty target id", func(o *override.Override) { o.TargetID = "" }, true},
		{"empty node", func(o *override.Override) { o.Node = "" }, true},
		{"empty guild", func(o *override.Override) { o.GuildID = "" }, true},
		{"global scope with id", func(o *override.Override) { o.Scope = override.Scope{Kind: override.ScopeGlobal, ID: "x"} }, true},
		{"guild scope wrong id", func(o *override.Override) { o.Scope = override.GuildScope("other") }, true},
		{"channel scope no id", func(o *override.Override) { o.Scope = override.Scope{Kind: override.ScopeChannel} }, true},
		{"unknown scope kind", func(o *override.Override) { o.Scope = override.Scope{Kind: "category"} }, true},
		{"past expiry", func(o *override.Override) { o.ExpiresAt = &past }, true},
		{"expiry exactly now", func(o *override.Override) { o.ExpiresAt = &now }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOverride(t, override.GuildScope("g1"), true, now)
			tt.mutate(o)

			err := o.Validate(now)
			if tt.wantErr && !errors.Is(err, override.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExpired(t *testing.T) {
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	o := newOverride(t, override.GlobalScope, true, now)
	if o.Expired(now) {
		t.Error("override without expiry should never expire")
	}

	o.ExpiresAt = &future
	if o.Expired(now) {
		t.Error("future expiry should not be expired")
	}

	o.ExpiresAt = &past
	if !o.Expired(now) {
		t.Error("past expiry should be expired")
	}

	o.ExpiresAt = &now
	if !o.Expired(now) {
		t.Error("expiry exactly at now should count as expired")
	}
}

func TestResolveScopePrecedence(t *testing.T) {
	global := newOverride(t, override.GlobalScope, true, now.Add(-3*time.Hour))
	guild := newOverride(t, override.GuildScope("g1"), false, now.Add(-2*time.Hour))
	channel := newOverride(t, override.ChannelScope("c1"), true, now.Add(-1*time.Hour))

	candidates := []*override.Override{global, guild, channel}
	scopes := override.CandidateScopes("g1", "c1")

	got := override.Resolve(candidates, scopes, now)
	if got == nil || got.ID != channel.ID {
		t.Fatalf("expected channel-scoped override to win, got %+v", got)
	}

	// Without a channel in the request, guild scope wins.
	scopes = override.CandidateScopes("g1", "")
	got = override.Resolve(candidates, scopes, now)
	if got == nil || got.ID != guild.ID {
		t.Fatalf("expected guild-scoped override to win, got %+v", got)
	}
}

func TestResolveSkipsExpired(t *testing.T) {
	past := now.Add(-time.Minute)

	channel := newOverride(t, override.ChannelScope("c1"), false, now.Add(-2*time.Hour))
	channel.ExpiresAt = &past
	guild := newOverride(t, override.GuildScope("g1"), true, now.Add(-1*time.Hour))

	got := override.Resolve([]*override.Override{channel, guild}, override.CandidateScopes("g1", "c1"), now)
	if got == nil || got.ID != guild.ID {
		t.Fatalf("expired channel override must be invisible, got %+v", got)
	}

	// All expired: nothing resolves.
	guild.ExpiresAt = &past
	got = override.Resolve([]*override.Override{channel, guild}, override.CandidateScopes("g1", "c1"), now)
	if got != nil {
		t.Fatalf("expected no resolution, got %+v", got)
	}
}

func TestResolveMostRecentWinsWithinScope(t *testing.T) {
	older := newOverride(t, override.GuildScope("g1"), true, now.Add(-2*time.Hour))
	newer := newOverride(t, override.GuildScope("g1"), false, now.Add(-1*time.Hour))

	got := override.Resolve([]*override.Override{older, newer}, override.CandidateScopes("g1", ""), now)
	if got == nil || got.ID != newer.ID {
		t.Fatalf("expected most recent override to win, got %+v", got)
	}
}

func TestResolveAllReturnsFullScopeSet(t *testing.T) {
	a := newOverride(t, override.GuildScope("g1"), true, now.Add(-2*time.Hour))
	b := newOverride(t, override.GuildScope("g1"), false, now.Add(-1*time.Hour))
	global := newOverride(t, override.GlobalScope, true, now.Add(-3*time.Hour))

	got := override.ResolveAll([]*override.Override{a, b, global}, override.CandidateScopes("g1", ""), now)
	if len(got) != 2 {
		t.Fatalf("expected both guild-scoped overrides, got %d", len(got))
	}
}

func TestCandidateScopes(t *testing.T) {
	scopes := override.CandidateScopes("g1", "c1")
	want := []override.Scope{
		override.ChannelScope("c1"),
		override.GuildScope("g1"),
		override.GlobalScope,
	}
	if len(scopes) != len(want) {
		t.Fatalf("expected %d scopes, got %d", len(want), len(scopes))
	}
	for i := range want {
		if scopes[i] != want[i] {
			t.Errorf("scope %d: expected %+v, got %+v", i, want[i], scopes[i])
		}
	}

	scopes = override.CandidateScopes("g1", "")
	if len(scopes) != 2 || scopes[0] != override.GuildScope("g1") {
		t.Errorf("without channel: expected guild then global, got %+v", scopes)
	}
}
