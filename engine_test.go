package bastion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/binding"
	"github.com/xraph/bastion/classify"
	"github.com/xraph/bastion/level"
	"github.com/xraph/bastion/override"
	"github.com/xraph/bastion/requirement"
	"github.com/xraph/bastion/store/memory"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *memory.Store) {
	t.Helper()
	s := memory.New()
	eng, err := NewEngine(append([]Option{WithStore(s)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, s
}

func kickRequest(userID string, roleIDs ...string) *ResolveRequest {
	return &ResolveRequest{
		Principal: Principal{UserID: userID, RoleIDs: roleIDs},
		GuildID:   "g1",
		Node:      "moderation.kick",
	}
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine()
	if err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestResolveLevelComparison(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.BindRole(ctx, "g1", "role_mods", level.Moderator); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.BindRole(ctx, "g1", "role_members", level.Member); err != nil {
		t.Fatal(err)
	}

	// moderation.kick defaults to Moderator.
	res, err := eng.Resolve(ctx, kickRequest("u_mod", "role_mods"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Factor != FactorLevel {
		t.Fatalf("moderator should kick: %+v", res)
	}
	if res.EffectiveLevel != level.Moderator || res.RequiredLevel != level.Moderator {
		t.Fatalf("unexpected levels: %+v", res)
	}

	res, err = eng.Resolve(ctx, kickRequest("u_member", "role_members"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("member must not kick: %+v", res)
	}

	// A principal with no bound roles defaults to Everyone.
	res, err = eng.Resolve(ctx, kickRequest("u_nobody"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.EffectiveLevel != level.Everyone {
		t.Fatalf("unbound principal should be Everyone and denied: %+v", res)
	}
}

func TestResolveHighestRoleWins(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_members", level.Member)
	_, _ = eng.BindRole(ctx, "g1", "role_admins", level.Admin)

	lvl, err := eng.EffectiveLevel(ctx, "g1", Principal{UserID: "u1", RoleIDs: []string{"role_members", "role_admins"}})
	if err != nil {
		t.Fatal(err)
	}
	if lvl != level.Admin {
		t.Fatalf("expected Admin, got %s", lvl)
	}
}

func TestResolveUnknownNode(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, err := eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1"},
		GuildID:   "g1",
		Node:      "moderation.teleport",
	})
	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}

	ok, err := eng.HasPermission(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1"},
		GuildID:   "g1",
		Node:      "moderation.teleport",
	})
	if ok || !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("unknown node must deny with error, got ok=%v err=%v", ok, err)
	}
}

func TestUserOverrideBeatsLevel(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)

	// Deny kick to a specific moderator.
	_, err := eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u_mod",
		Node:       "moderation.kick",
		Granted:    false,
		Scope:      override.GuildScope("g1"),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := eng.Resolve(ctx, kickRequest("u_mod", "role_mods"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Factor != FactorOverrideUser {
		t.Fatalf("user deny override must win: %+v", res)
	}

	// Grant kick to a plain member.
	_, err = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u_member",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err = eng.Resolve(ctx, kickRequest("u_member"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Factor != FactorOverrideUser {
		t.Fatalf("user grant override must win: %+v", res)
	}
}

func TestChannelScopeBeatsGuildScope(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    false,
		Scope:      override.ChannelScope("c_help"),
	})

	// In the channel, the channel-scoped deny wins.
	res, err := eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1"},
		GuildID:   "g1",
		ChannelID: "c_help",
		Node:      "moderation.kick",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("channel deny must beat guild grant: %+v", res)
	}

	// Elsewhere, the guild-scoped grant applies.
	res, err = eng.Resolve(ctx, kickRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("guild grant should apply outside the channel: %+v", res)
	}
}

func TestExpiredOverrideIgnored(t *testing.T) {
	ctx := context.Background()
	now := testEpoch
	eng, _ := newTestEngine(t, WithClock(func() time.Time { return now }))

	expiry := now.Add(time.Hour)
	_, err := eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
		ExpiresAt:  &expiry,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := eng.Resolve(ctx, kickRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("override should apply before expiry: %+v", res)
	}

	now = now.Add(2 * time.Hour)
	res, err = eng.Resolve(ctx, kickRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("lapsed override must be invisible: %+v", res)
	}
}

func TestRoleOverrideDenyWins(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetRole,
		TargetID:   "role_a",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetRole,
		TargetID:   "role_b",
		Node:       "moderation.kick",
		Granted:    false,
		Scope:      override.GuildScope("g1"),
	})

	// Holding both roles: the deny wins.
	res, err := eng.Resolve(ctx, kickRequest("u1", "role_a", "role_b"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Factor != FactorOverrideRole {
		t.Fatalf("conflicting role overrides must deny: %+v", res)
	}

	// Holding only the granted role: allowed.
	res, err = eng.Resolve(ctx, kickRequest("u2", "role_a"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Factor != FactorOverrideRole {
		t.Fatalf("single role grant should allow: %+v", res)
	}
}

func TestBannedDominates(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_admins", level.Admin)
	_, _ = eng.BindRole(ctx, "g1", "role_jail", level.Banned)

	// A banned binding dominates the admin binding.
	res, err := eng.Resolve(ctx, kickRequest("u1", "role_admins", "role_jail"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Factor != FactorBanned {
		t.Fatalf("banned principal must be denied: %+v", res)
	}
	if res.EffectiveLevel != level.Banned {
		t.Fatalf("effective level should be Banned, got %s", res.EffectiveLevel)
	}

	// Even basic.ping (Everyone) is denied while banned.
	res, err = eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1", RoleIDs: []string{"role_jail"}},
		GuildID:   "g1",
		Node:      "basic.ping",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("banned principal must not ping: %+v", res)
	}

	// A user-targeted grant is the escape hatch.
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "basic.ping",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	res, err = eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1", RoleIDs: []string{"role_jail"}},
		GuildID:   "g1",
		Node:      "basic.ping",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("user grant must pierce a ban: %+v", res)
	}
}

func TestBotOwner(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, WithBotOwners("u_owner"))

	// owner.eval requires BotOwner and nobody else reaches it.
	res, err := eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u_owner"},
		GuildID:   "g1",
		Node:      "owner.eval",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Factor != FactorBotOwner {
		t.Fatalf("bot owner should pass everywhere: %+v", res)
	}

	lvl, err := eng.EffectiveLevel(ctx, "g1", Principal{UserID: "u_owner"})
	if err != nil {
		t.Fatal(err)
	}
	if lvl != level.BotOwner {
		t.Fatalf("expected BotOwner level, got %s", lvl)
	}

	// An explicit user-targeted deny still wins over bot-owner status.
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u_owner",
		Node:       "moderation.ban",
		Granted:    false,
		Scope:      override.GuildScope("g1"),
	})
	res, err = eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u_owner"},
		GuildID:   "g1",
		Node:      "moderation.ban",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Factor != FactorOverrideUser {
		t.Fatalf("explicit deny must beat bot owner: %+v", res)
	}
}

func TestBotAdminFloor(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, WithBotAdmins("u_staff"))

	lvl, err := eng.EffectiveLevel(ctx, "g1", Principal{UserID: "u_staff"})
	if err != nil {
		t.Fatal(err)
	}
	if lvl != level.BotAdmin {
		t.Fatalf("expected BotAdmin floor, got %s", lvl)
	}

	// admin.reload requires Admin; the floor clears it.
	res, err := eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u_staff"},
		GuildID:   "g1",
		Node:      "admin.reload",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("bot admin should clear Admin nodes: %+v", res)
	}
}

func TestRequirementOverridesDefault(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)

	// Raise moderation.kick from Moderator to Admin.
	if _, err := eng.SetRequirement(ctx, "g1", "moderation.kick", level.Admin); err != nil {
		t.Fatal(err)
	}

	res, err := eng.Resolve(ctx, kickRequest("u_mod", "role_mods"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.RequiredLevel != level.Admin {
		t.Fatalf("raised requirement must deny moderator: %+v", res)
	}

	// Other guilds keep the default.
	res, err = eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u_mod", RoleIDs: []string{"role_mods"}},
		GuildID:   "g2",
		Node:      "moderation.kick",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.RequiredLevel != level.Moderator {
		t.Fatalf("other guild must keep default requirement: %+v", res)
	}

	// Clearing restores the registered default.
	if _, err := eng.ClearRequirement(ctx, "g1", "moderation.kick"); err != nil {
		t.Fatal(err)
	}
	res, err = eng.Resolve(ctx, kickRequest("u_mod", "role_mods"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.RequiredLevel != level.Moderator {
		t.Fatalf("cleared requirement must restore default: %+v", res)
	}

	// Unknown nodes cannot carry requirements.
	if _, err := eng.SetRequirement(ctx, "g1", "no.such.node", level.Admin); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
}

func TestEnforce(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	err := eng.Enforce(ctx, kickRequest("u1"))
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	if err := eng.Enforce(ctx, kickRequest("u1", "role_mods")); err != nil {
		t.Fatalf("unexpected enforce error: %v", err)
	}
}

func TestBindRoleValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.BindRole(ctx, "g1", "r1", level.Level(42)); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
}

func TestUnbindRoleNoop(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)

	removed, err := eng.UnbindRole(ctx, "g1", "r_missing")
	if err != nil || removed != nil {
		t.Fatalf("unbinding an absent role must be a no-op, got %+v err=%v", removed, err)
	}

	// No audit entry for a no-op.
	count, err := s.CountAudits(ctx, &audit.QueryFilter{GuildID: "g1"})
	if err != nil || count != 0 {
		t.Fatalf("no-op unbind must not audit, count=%d err=%v", count, err)
	}
}

func TestMutationsWriteAudit(t *testing.T) {
	ctx := WithActor(context.Background(), "u_admin")
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	_, _ = eng.SetRequirement(ctx, "g1", "moderation.kick", level.Admin)
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	_, _ = eng.UnbindRole(ctx, "g1", "role_mods")

	entries, err := eng.AuditLog(ctx, "g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].Action != audit.ActionUnbindRole {
		t.Fatalf("expected unbind_role first, got %s", entries[0].Action)
	}
	for _, e := range entries {
		if e.ActorID != "u_admin" {
			t.Errorf("entry %s: expected actor u_admin, got %q", e.Action, e.ActorID)
		}
		if e.ID.IsNil() {
			t.Errorf("entry %s: missing id", e.Action)
		}
	}
}

func TestActorDefaultsToSystem(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "r1", level.Member)

	entries, _ := eng.AuditLog(ctx, "g1", 1)
	if len(entries) != 1 || entries[0].ActorID != "system" {
		t.Fatalf("expected system actor, got %+v", entries)
	}
}

// failingAuditStore drops every audit write.
type failingAuditStore struct {
	*memory.Store
}

func (f *failingAuditStore) AppendAudit(_ context.Context, _ *audit.Entry) error {
	return fmt.Errorf("audit sink offline")
}

// auditFailurePlugin records AuditFailed notifications.
type auditFailurePlugin struct {
	failures int
}

func (p *auditFailurePlugin) Name() string { return "audit-failure-probe" }

func (p *auditFailurePlugin) OnAuditFailed(_ context.Context, _ *audit.Entry, _ error) error {
	p.failures++
	return nil
}

func TestAuditFailureDoesNotBlockMutation(t *testing.T) {
	ctx := context.Background()
	probe := &auditFailurePlugin{}
	s := &failingAuditStore{Store: memory.New()}
	eng, err := NewEngine(WithStore(s), WithPlugin(probe))
	if err != nil {
		t.Fatal(err)
	}

	// The binding must land even though its audit entry is lost.
	b, err := eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	if err != nil {
		t.Fatalf("mutation must survive audit failure: %v", err)
	}
	if b == nil {
		t.Fatal("expected binding")
	}
	if probe.failures != 1 {
		t.Fatalf("expected 1 AuditFailed notification, got %d", probe.failures)
	}

	res, err := eng.Resolve(ctx, kickRequest("u1", "role_mods"))
	if err != nil || !res.Allowed {
		t.Fatalf("binding must be effective, res=%+v err=%v", res, err)
	}
}

func guildRoles() []classify.Snapshot {
	return []classify.Snapshot{
		{ID: "r_owner", Name: "Owner", Position: 10, MemberCount: 1, GuildMembers: 500, OwnerHeld: true,
			Capabilities: classify.Capabilities{Administrator: true}},
		{ID: "r_admin", Name: "Admin", Position: 9, MemberCount: 4, GuildMembers: 500,
			Capabilities: classify.Capabilities{ManageGuild: true, BanMembers: true}},
		{ID: "r_mod", Name: "Moderator", Position: 8, MemberCount: 12, GuildMembers: 500,
			Capabilities: classify.Capabilities{KickMembers: true, ModerateMembers: true}},
		{ID: "r_bot", Name: "MusicBot", Position: 7, MemberCount: 1, GuildMembers: 500, Managed: true, BotOwned: true},
		{ID: "r_color", Name: "~~ Blue ~~", Position: 2, MemberCount: 60, GuildMembers: 500},
	}
}

func TestAutoConfigure(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	report, err := eng.AutoConfigure(ctx, "g1", guildRoles())
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Applied) == 0 {
		t.Fatalf("expected applied bindings, got %+v", report)
	}
	for _, skipped := range report.Skipped {
		if skipped.RoleID == "r_admin" || skipped.RoleID == "r_mod" {
			t.Errorf("authority role %s must not be skipped: %+v", skipped.RoleID, skipped)
		}
	}

	// The classified moderator role now gates moderation.kick.
	res, err := eng.Resolve(ctx, kickRequest("u1", "r_mod"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed {
		t.Fatalf("auto-configured moderator should kick: %+v", res)
	}

	// Bot and cosmetic roles are skipped with a reason.
	var sawBot bool
	for _, skipped := range report.Skipped {
		if skipped.RoleID == "r_bot" {
			sawBot = true
		}
	}
	if !sawBot {
		t.Errorf("bot role should be skipped: %+v", report.Skipped)
	}
}

func TestAutoConfigureIdempotent(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	first, err := eng.AutoConfigure(ctx, "g1", guildRoles())
	if err != nil {
		t.Fatal(err)
	}
	second, err := eng.AutoConfigure(ctx, "g1", guildRoles())
	if err != nil {
		t.Fatal(err)
	}

	if len(second.Applied) != 0 {
		t.Fatalf("second pass must apply nothing: %+v", second.Applied)
	}
	if len(second.AlreadyConfigured) != len(first.Applied) {
		t.Fatalf("expected %d already-configured, got %d", len(first.Applied), len(second.AlreadyConfigured))
	}
}

func TestAutoConfigureSkipsManual(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	// An operator pinned this role below what the classifier would pick.
	if _, err := eng.BindRole(ctx, "g1", "r_admin", level.Member); err != nil {
		t.Fatal(err)
	}

	report, err := eng.AutoConfigure(ctx, "g1", guildRoles())
	if err != nil {
		t.Fatal(err)
	}

	var manualSkip bool
	for _, skipped := range report.Skipped {
		if skipped.RoleID == "r_admin" && skipped.Reason == "manually configured" {
			manualSkip = true
		}
	}
	if !manualSkip {
		t.Fatalf("manual binding must be preserved: %+v", report.Skipped)
	}

	lvl, err := eng.EffectiveLevel(ctx, "g1", Principal{UserID: "u1", RoleIDs: []string{"r_admin"}})
	if err != nil {
		t.Fatal(err)
	}
	if lvl != level.Member {
		t.Fatalf("manual level must survive auto-configure, got %s", lvl)
	}
}

func TestResetGuildKeepsAudits(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	_, _ = eng.SetRequirement(ctx, "g1", "moderation.kick", level.Admin)
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})

	if err := eng.ResetGuild(ctx, "g1"); err != nil {
		t.Fatal(err)
	}

	// Configuration is gone: back to defaults.
	res, err := eng.Resolve(ctx, kickRequest("u_mod", "role_mods"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.EffectiveLevel != level.Everyone || res.RequiredLevel != level.Moderator {
		t.Fatalf("reset must wipe configuration: %+v", res)
	}

	// History survives, including the reset itself.
	entries, err := eng.AuditLog(ctx, "g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 audit entries after reset, got %d", len(entries))
	}
	if entries[0].Action != audit.ActionResetGuild {
		t.Fatalf("expected reset_guild first, got %s", entries[0].Action)
	}
}

func TestPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := testEpoch
	eng, _ := newTestEngine(t, WithClock(func() time.Time { return now }))

	expiry := now.Add(time.Hour)
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
		ExpiresAt:  &expiry,
	})
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.ban",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})

	now = now.Add(2 * time.Hour)
	overrides, _, err := eng.PurgeExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if overrides != 1 {
		t.Fatalf("expected 1 purged override, got %d", overrides)
	}

	// The permanent override is untouched.
	res, err := eng.Resolve(ctx, &ResolveRequest{
		Principal: Principal{UserID: "u1"},
		GuildID:   "g1",
		Node:      "moderation.ban",
	})
	if err != nil || !res.Allowed {
		t.Fatalf("permanent override must survive purge: %+v err=%v", res, err)
	}
}

// fakeCache records invalidation calls.
type fakeCache struct {
	resolutions map[string]*Resolution
	guildWipes  int
	userWipes   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{resolutions: make(map[string]*Resolution)}
}

func (c *fakeCache) Get(_ context.Context, req *ResolveRequest) (*Resolution, bool) {
	res, ok := c.resolutions[req.flightKey()]
	return res, ok
}

func (c *fakeCache) Set(_ context.Context, req *ResolveRequest, res *Resolution) {
	c.resolutions[req.flightKey()] = res
}

func (c *fakeCache) GetLevel(_ context.Context, _, _ string) (level.Level, bool) {
	return level.Everyone, false
}

func (c *fakeCache) SetLevel(_ context.Context, _, _ string, _ level.Level) {}

func (c *fakeCache) InvalidateGuild(_ context.Context, _ string) {
	c.guildWipes++
	c.resolutions = make(map[string]*Resolution)
}

func (c *fakeCache) InvalidatePrincipal(_ context.Context, _, _ string) {
	c.userWipes++
	c.resolutions = make(map[string]*Resolution)
}

func TestMutationsInvalidateCache(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	eng, _ := newTestEngine(t, WithCache(fc))

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	if fc.guildWipes != 1 {
		t.Fatalf("bind must invalidate the guild, wipes=%d", fc.guildWipes)
	}

	// Resolution lands in the cache and is served from it.
	req := kickRequest("u1", "role_mods")
	if _, err := eng.Resolve(ctx, req); err != nil {
		t.Fatal(err)
	}
	if len(fc.resolutions) != 1 {
		t.Fatalf("expected cached resolution, got %d", len(fc.resolutions))
	}

	// A user-targeted override invalidates just that principal.
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    false,
		Scope:      override.GuildScope("g1"),
	})
	if fc.userWipes != 1 {
		t.Fatalf("user override must invalidate the principal, wipes=%d", fc.userWipes)
	}

	res, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("stale grant must not survive invalidation: %+v", res)
	}
}

func TestValidateRequest(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	cases := []*ResolveRequest{
		nil,
		{GuildID: "g1", Node: "basic.ping"},
		{Principal: Principal{UserID: "u1"}, Node: "basic.ping"},
		{Principal: Principal{UserID: "u1"}, GuildID: "g1"},
	}
	for i, req := range cases {
		if _, err := eng.Resolve(ctx, req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestAddOverrideFillsDefaults(t *testing.T) {
	ctx := WithActor(context.Background(), "u_admin")
	eng, s := newTestEngine(t)

	o, err := eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if o.ID.IsNil() || o.CreatedAt.IsZero() || o.CreatedBy != "u_admin" {
		t.Fatalf("override defaults not filled: %+v", o)
	}

	stored, err := s.GetOverride(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.CreatedBy != "u_admin" {
		t.Fatalf("stored override lost creator: %+v", stored)
	}
}

func TestRemoveOverride(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetUser,
		TargetID:   "u1",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})

	removed, err := eng.RemoveOverride(ctx, "g1", override.TargetUser, "u1", "moderation.kick", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected 1 removed override, got %d", len(removed))
	}

	res, err := eng.Resolve(ctx, kickRequest("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("removed override must stop applying: %+v", res)
	}

	// Removing again is a no-op.
	removed, err = eng.RemoveOverride(ctx, "g1", override.TargetUser, "u1", "moderation.kick", nil)
	if err != nil || len(removed) != 0 {
		t.Fatalf("expected no-op, got %d removed err=%v", len(removed), err)
	}
}

func TestBannedIgnoresRoleOverrides(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	_, _ = eng.BindRole(ctx, "g1", "role_jail", level.Banned)
	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetRole,
		TargetID:   "role_jail",
		Node:       "moderation.kick",
		Granted:    true,
		Scope:      override.GuildScope("g1"),
	})

	// A role-targeted grant never reaches a banned principal.
	res, err := eng.Resolve(ctx, kickRequest("u1", "role_jail"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Factor != FactorBanned {
		t.Fatalf("role grant must not pierce a ban: %+v", res)
	}
}

func TestBotOwnerBeatsRoleDeny(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t, WithBotOwners("u_owner"))

	_, _ = eng.AddOverride(ctx, &override.Override{
		GuildID:    "g1",
		TargetKind: override.TargetRole,
		TargetID:   "role_x",
		Node:       "moderation.kick",
		Granted:    false,
		Scope:      override.GuildScope("g1"),
	})

	res, err := eng.Resolve(ctx, kickRequest("u_owner", "role_x"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Factor != FactorBotOwner {
		t.Fatalf("role deny must not reach a bot owner: %+v", res)
	}

	// The same deny still binds ordinary holders of the role.
	res, err = eng.Resolve(ctx, kickRequest("u_other", "role_x"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("role deny should bind non-owners: %+v", res)
	}
}

func TestResolveReturnsPerCallerCopy(t *testing.T) {
	ctx := context.Background()
	fc := newFakeCache()
	eng, _ := newTestEngine(t, WithCache(fc))

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	req := kickRequest("u1", "role_mods")

	first, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if cached := fc.resolutions[req.flightKey()]; cached == first {
		t.Fatal("caller must not share the cached resolution")
	}

	second, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("cache hit must not return the shared resolution")
	}

	// Mutating one caller's result must not leak into the next.
	first.Allowed = !first.Allowed
	third, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if third.Allowed == first.Allowed {
		t.Fatalf("caller mutation leaked into the cache: %+v", third)
	}
}

// outageStore fails every read once tripped.
type outageStore struct {
	*memory.Store
	down bool
}

func (s *outageStore) GetRequirement(ctx context.Context, guildID, node string) (*requirement.Requirement, error) {
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	return s.Store.GetRequirement(ctx, guildID, node)
}

func (s *outageStore) ListBindings(ctx context.Context, filter *binding.ListFilter) ([]*binding.Binding, error) {
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	return s.Store.ListBindings(ctx, filter)
}

func (s *outageStore) ListOverrides(ctx context.Context, filter *override.ListFilter) ([]*override.Override, error) {
	if s.down {
		return nil, fmt.Errorf("connection refused")
	}
	return s.Store.ListOverrides(ctx, filter)
}

func TestCachedResolutionSurvivesStoreOutage(t *testing.T) {
	ctx := context.Background()
	s := &outageStore{Store: memory.New()}
	eng, err := NewEngine(WithStore(s), WithCache(newFakeCache()))
	if err != nil {
		t.Fatal(err)
	}

	_, _ = eng.BindRole(ctx, "g1", "role_mods", level.Moderator)
	req := kickRequest("u1", "role_mods")

	warm, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !warm.Allowed {
		t.Fatalf("expected allow before outage: %+v", warm)
	}

	s.down = true

	// The warm entry keeps answering.
	res, err := eng.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("cached query must survive the outage: %v", err)
	}
	if res.Allowed != warm.Allowed {
		t.Fatalf("cached answer changed during outage: %+v", res)
	}

	// Cold queries surface the outage.
	_, err = eng.Resolve(ctx, kickRequest("u_cold", "role_mods"))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable for a cold query, got %v", err)
	}
}
