package level_test

import (
	"testing"

	"github.com/xraph/bastion/level"
)

func TestOrdering(t *testing.T) {
	known := level.Known()
	for i := 1; i < len(known); i++ {
		if level.Compare(known[i-1], known[i]) != -1 {
			t.Errorf("expected %s < %s", known[i-1], known[i])
		}
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		l, threshold level.Level
		want         bool
	}{
		{level.Moderator, level.Moderator, true},
		{level.LeadModerator, level.Moderator, true},
		{level.Member, level.Moderator, false},
		{level.Banned, level.Everyone, false},
		{level.BotOwner, level.Owner, true},
	}

	for _, tt := range tests {
		if got := tt.l.AtLeast(tt.threshold); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.l, tt.threshold, got, tt.want)
		}
	}
}

func TestMax(t *testing.T) {
	if got := level.Max(level.Member, level.Admin); got != level.Admin {
		t.Errorf("Max(member, admin) = %s", got)
	}
	if got := level.Max(level.Banned, level.Everyone); got != level.Everyone {
		t.Errorf("Max(banned, everyone) = %s", got)
	}
	if got := level.Max(level.Owner, level.Owner); got != level.Owner {
		t.Errorf("Max(owner, owner) = %s", got)
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	for _, l := range level.Known() {
		parsed, err := level.Parse(l.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", l.String(), err)
		}
		if parsed != l {
			t.Errorf("round-trip mismatch: %s != %s", parsed, l)
		}
	}
}

func TestStringUnknown(t *testing.T) {
	if got := level.Level(42).String(); got != "level(42)" {
		t.Errorf("expected level(42), got %q", got)
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := level.Parse("emperor"); err == nil {
		t.Error("expected error for unknown name")
	}
}
