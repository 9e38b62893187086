// Package classify infers role classifications and suggested permission
// levels from a guild's role set.
//
// Classification is a pure function of the role snapshots passed in:
// nothing is fetched, nothing is cached, and re-running on an unchanged
// snapshot yields identical output. Rules are evaluated in a fixed
// priority order so every decision is reproducible from the rationale.
package classify

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/xraph/bastion/level"
)

// Classification is the structural category assigned to a role.
type Classification string

// Role classifications, in rule priority order.
const (
	// Bot roles are managed for a single bot account.
	Bot Classification = "bot"

	// Integration roles are created by platform integrations
	// (boosts, premium subscriptions, linked services).
	Integration Classification = "integration"

	// Authority roles carry hierarchical power and receive level
	// suggestions.
	Authority Classification = "authority"

	// Temporary roles exist for events, contests, or trials.
	Temporary Classification = "temporary"

	// Cosmetic roles are display-only (colors, pronouns, demographics).
	Cosmetic Classification = "cosmetic"

	// Functional roles gate access to features or channels without
	// conveying rank.
	Functional Classification = "functional"

	// Unknown roles matched no rule.
	Unknown Classification = "unknown"
)

// Capabilities are the declared capability flags of a role, platform
// permission bits reduced to what classification cares about.
type Capabilities struct {
	Administrator   bool `json:"administrator,omitempty"`
	ManageGuild     bool `json:"manage_guild,omitempty"`
	ManageRoles     bool `json:"manage_roles,omitempty"`
	ManageChannels  bool `json:"manage_channels,omitempty"`
	BanMembers      bool `json:"ban_members,omitempty"`
	KickMembers     bool `json:"kick_members,omitempty"`
	ModerateMembers bool `json:"moderate_members,omitempty"`
	ManageMessages  bool `json:"manage_messages,omitempty"`
	ManageNicknames bool `json:"manage_nicknames,omitempty"`
	MuteMembers     bool `json:"mute_members,omitempty"`
	DeafenMembers   bool `json:"deafen_members,omitempty"`
	MoveMembers     bool `json:"move_members,omitempty"`
	CreateThreads   bool `json:"create_threads,omitempty"`
	ExternalEmojis  bool `json:"external_emojis,omitempty"`
	AttachFiles     bool `json:"attach_files,omitempty"`
	EmbedLinks      bool `json:"embed_links,omitempty"`
}

// Snapshot is the by-value view of one role at classification time.
// Position is the role's index in the guild ordering, higher means
// closer to the top. OwnerHeld reports whether the guild owner holds
// the role.
type Snapshot struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Position     int          `json:"position"`
	MemberCount  int          `json:"member_count"`
	GuildMembers int          `json:"guild_members"`
	Managed      bool         `json:"managed"`
	BotOwned     bool         `json:"bot_owned"`
	OwnerHeld    bool         `json:"owner_held"`
	Capabilities Capabilities `json:"capabilities"`
}

// Result is the classification outcome for one role. SuggestedLevel is
// level.Everyone for non-authority classifications.
type Result struct {
	RoleID         string         `json:"role_id"`
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	SuggestedLevel level.Level    `json:"suggested_level"`
	Confidence     float64        `json:"confidence"`
	Rationale      string         `json:"rationale"`
}

// Capability weights for the authority score. Administrative flags
// dominate, moderation flags follow, trusted-member flags trail.
var capWeights = []struct {
	weight int
	has    func(Capabilities) bool
}{
	{100, func(c Capabilities) bool { return c.Administrator }},
	{80, func(c Capabilities) bool { return c.ManageGuild }},
	{70, func(c Capabilities) bool { return c.ManageRoles }},
	{60, func(c Capabilities) bool { return c.ManageChannels }},
	{50, func(c Capabilities) bool { return c.BanMembers }},
	{45, func(c Capabilities) bool { return c.KickMembers }},
	{40, func(c Capabilities) bool { return c.ModerateMembers }},
	{35, func(c Capabilities) bool { return c.ManageMessages }},
	{30, func(c Capabilities) bool { return c.ManageNicknames }},
	{25, func(c Capabilities) bool { return c.MuteMembers }},
	{25, func(c Capabilities) bool { return c.DeafenMembers }},
	{20, func(c Capabilities) bool { return c.MoveMembers }},
	{10, func(c Capabilities) bool { return c.CreateThreads }},
	{8, func(c Capabilities) bool { return c.ExternalEmojis }},
	{5, func(c Capabilities) bool { return c.AttachFiles }},
	{5, func(c Capabilities) bool { return c.EmbedLinks }},
}

// Score returns the weighted authority score of a capability set.
func (c Capabilities) Score() int {
	total := 0
	for _, w := range capWeights {
		if w.has(c) {
			total += w.weight
		}
	}

	return total
}

func (c Capabilities) anyAuthority() bool {
	return c.Administrator || c.ManageGuild || c.ManageRoles || c.ManageChannels ||
		c.BanMembers || c.KickMembers || c.ModerateMembers || c.ManageMessages ||
		c.MuteMembers || c.DeafenMembers || c.MoveMembers
}

func (c Capabilities) any() bool {
	return c != Capabilities{}
}

// namePattern is one entry in the ordered authority-name rule list.
type namePattern struct {
	re         *regexp.Regexp
	tier       level.Level
	confidence float64
}

// Authority name patterns, evaluated in order: higher confidence first,
// higher tier breaking ties. First match wins.
var authorityPatterns = buildPatterns([]namePattern{
	{regexp.MustCompile(`\bowner\b`), level.Owner, 0.95},
	{regexp.MustCompile(`\bfounder\b`), level.Owner, 0.90},
	{regexp.MustCompile(`\bcreator\b`), level.Owner, 0.85},

	{regexp.MustCompile(`\bhead\s*admin\b`), level.LeadAdmin, 0.95},
	{regexp.MustCompile(`\bsenior\s*admin\b`), level.LeadAdmin, 0.95},
	{regexp.MustCompile(`\blead\s*admin\b`), level.LeadAdmin, 0.95},
	{regexp.MustCompile(`\bchief\s*admin\b`), level.LeadAdmin, 0.90},
	{regexp.MustCompile(`\bsuper\s*admin\b`), level.LeadAdmin, 0.90},
	{regexp.MustCompile(`\bco[\s-]*owner\b`), level.LeadAdmin, 0.85},

	{regexp.MustCompile(`\badministrator\b`), level.Admin, 0.95},
	{regexp.MustCompile(`\badmin\b`), level.Admin, 0.90},
	{regexp.MustCompile(`\bmanager\b`), level.Admin, 0.75},
	{regexp.MustCompile(`\bexecutive\b`), level.Admin, 0.70},
	{regexp.MustCompile(`\bdirector\b`), level.Admin, 0.70},
	{regexp.MustCompile(`\bleader\b`), level.Admin, 0.65},

	{regexp.MustCompile(`\bhead\s*mod(erator)?\b`), level.LeadModerator, 0.95},
	{regexp.MustCompile(`\bsenior\s*mod(erator)?\b`), level.LeadModerator, 0.95},
	{regexp.MustCompile(`\blead\s*mod(erator)?\b`), level.LeadModerator, 0.95},
	{regexp.MustCompile(`\bchief\s*mod(erator)?\b`), level.LeadModerator, 0.90},
	{regexp.MustCompile(`\bsuper\s*mod(erator)?\b`), level.LeadModerator, 0.90},

	{regexp.MustCompile(`\bmoderator\b`), level.Moderator, 0.90},
	{regexp.MustCompile(`\bmod\b`), level.Moderator, 0.85},
	{regexp.MustCompile(`\bhelper\b`), level.Moderator, 0.70},
	{regexp.MustCompile(`\bassistant\b`), level.Moderator, 0.65},
	{regexp.MustCompile(`\btrainee\s*mod\b`), level.Moderator, 0.60},
	{regexp.MustCompile(`\bjunior\s*mod\b`), level.Moderator, 0.60},
	{regexp.MustCompile(`\btrial\s*mod\b`), level.Moderator, 0.55},

	{regexp.MustCompile(`\bmember\b`), level.Member, 0.85},
	{regexp.MustCompile(`\bvip\b`), level.Member, 0.80},
	{regexp.MustCompile(`\bverified\b`), level.Member, 0.75},
	{regexp.MustCompile(`\btrusted\b`), level.Member, 0.75},
	{regexp.MustCompile(`\bsupporter\b`), level.Member, 0.70},
	{regexp.MustCompile(`\bdonator\b`), level.Member, 0.70},
	{regexp.MustCompile(`\bregular\b`), level.Member, 0.65},
	{regexp.MustCompile(`\bstaff\b`), level.Moderator, 0.60},
})

func buildPatterns(ps []namePattern) []namePattern {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].confidence != ps[j].confidence {
			return ps[i].confidence > ps[j].confidence
		}
		return level.Compare(ps[i].tier, ps[j].tier) > 0
	})

	return ps
}

var (
	integrationRe = regexp.MustCompile(`\b(booster|boost|nitro|premium)\b`)
	temporaryRe   = regexp.MustCompile(`\b(event|contest|giveaway|temp|trial|beta|test)\b`)
	cosmeticRe    = regexp.MustCompile(`\b(team|red|blue|green|yellow|purple|orange|squad|` +
		`teen|adult|student|retired|employed|unemployed|` +
		`male|female|single|married|taken|` +
		`est|pst|cst|mst|utc|gmt|cet|aest|jst|` +
		`usa|canada|europe|asia|` +
		`gamer|weeb|normie|newbie)\b|\d{2}[+-]`)
)

// matchAuthorityName returns the first matching authority pattern for a
// normalized name, or (Everyone, 0) when nothing matches.
func matchAuthorityName(normalized string) (level.Level, float64) {
	for _, p := range authorityPatterns {
		if p.re.MatchString(normalized) {
			return p.tier, p.confidence
		}
	}

	return level.Everyone, 0
}

// Options tunes the classifier's performance guard.
type Options struct {
	// DeepAnalysisLimit caps how many roles receive full name and
	// capability analysis, counted from the top of the ordering.
	DeepAnalysisLimit int

	// RoleCountThreshold is the guild role count beyond which the
	// classifier falls back to position-only analysis for every role.
	RoleCountThreshold int
}

// Defaults chosen to keep a worst-case guild (ticket-per-user role sets)
// bounded while covering any realistically staffed hierarchy.
const (
	DefaultDeepAnalysisLimit  = 50
	DefaultRoleCountThreshold = 250
)

// Classifier evaluates role snapshots into classifications and level
// suggestions. It is stateless apart from its options and safe for
// concurrent use.
type Classifier struct {
	opts Options
}

// New creates a classifier. Zero option fields take the package defaults.
func New(opts Options) *Classifier {
	if opts.DeepAnalysisLimit <= 0 {
		opts.DeepAnalysisLimit = DefaultDeepAnalysisLimit
	}
	if opts.RoleCountThreshold <= 0 {
		opts.RoleCountThreshold = DefaultRoleCountThreshold
	}

	return &Classifier{opts: opts}
}

// Analyze classifies every role in the snapshot. Results are returned in
// descending position order. Authority roles carry a suggested level; all
// other classifications suggest level.Everyone with the rationale naming
// the rule that fired.
func (c *Classifier) Analyze(roles []Snapshot) []Result {
	sorted := make([]Snapshot, len(roles))
	copy(sorted, roles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })

	positionOnly := len(sorted) > c.opts.RoleCountThreshold

	results := make([]Result, 0, len(sorted))
	var authorityIdx []int

	for i, r := range sorted {
		deep := !positionOnly && i < c.opts.DeepAnalysisLimit
		res := c.classifyOne(r, deep)
		if res.Classification == Authority {
			authorityIdx = append(authorityIdx, len(results))
		}
		results = append(results, res)
	}

	c.assignLevels(results, authorityIdx, sorted)

	return results
}

// classifyOne applies the rule list to a single role. When deep is false
// only flag checks run; name analysis is skipped and authority is decided
// by capabilities alone.
func (c *Classifier) classifyOne(r Snapshot, deep bool) Result {
	res := Result{RoleID: r.ID, Name: r.Name, SuggestedLevel: level.Everyone}

	switch {
	case r.BotOwned:
		res.Classification = Bot
		res.Confidence = 1.0
		res.Rationale = "bot-owned role"

		return res
	case r.Managed:
		res.Classification = Integration
		res.Confidence = 1.0
		res.Rationale = "integration-managed role"

		return res
	}

	if !deep {
		if r.Capabilities.anyAuthority() {
			res.Classification = Authority
			res.Confidence = 0.5
			res.Rationale = "authority capabilities (position-only pass)"
		} else {
			res.Classification = Unknown
			res.Confidence = 0.2
			res.Rationale = "skipped deep analysis"
		}

		return res
	}

	normalized := Normalize(r.Name)

	if integrationRe.MatchString(normalized) {
		res.Classification = Integration
		res.Confidence = 0.8
		res.Rationale = "integration name pattern"

		return res
	}

	if r.Capabilities.anyAuthority() {
		res.Classification = Authority
		res.Confidence = 0.7
		res.Rationale = fmt.Sprintf("authority capabilities (score %d)", r.Capabilities.Score())

		return res
	}

	if tier, conf := matchAuthorityName(normalized); conf > 0 {
		res.Classification = Authority
		res.Confidence = conf
		res.Rationale = fmt.Sprintf("authority name pattern (%s tier)", tier)

		return res
	}

	if temporaryRe.MatchString(normalized) {
		res.Classification = Temporary
		res.Confidence = 0.6
		res.Rationale = "temporary name pattern"

		return res
	}

	if !r.Capabilities.anyAuthority() {
		if cosmeticRe.MatchString(normalized) {
			res.Classification = Cosmetic
			res.Confidence = 0.6
			res.Rationale = "demographic or team name pattern"

			return res
		}

		if normalized == "" {
			res.Classification = Cosmetic
			res.Confidence = 0.7
			res.Rationale = "decorative-only name"

			return res
		}

		if !r.Capabilities.any() && r.MemberCount > 5 {
			res.Classification = Cosmetic
			res.Confidence = 0.5
			res.Rationale = "no capabilities, broad membership"

			return res
		}

		if r.Capabilities.any() {
			res.Classification = Functional
			res.Confidence = 0.4
			res.Rationale = "non-authority capabilities only"

			return res
		}
	}

	res.Classification = Unknown
	res.Confidence = 0.2
	res.Rationale = "no rule matched"

	return res
}

// assignLevels fills in suggested levels for authority roles: owner
// detection first, then high-confidence name tiers, then position
// percentile among authority roles only.
func (c *Classifier) assignLevels(results []Result, authorityIdx []int, sorted []Snapshot) {
	total := len(authorityIdx)

	for rank, idx := range authorityIdx {
		r := sorted[idx]
		res := &results[idx]

		if c.isOwnerRole(r, idx, len(sorted)) {
			res.SuggestedLevel = level.Owner
			res.Confidence = maxFloat(res.Confidence, 0.9)
			res.Rationale = "owner role (position, capabilities, membership)"

			continue
		}

		tier, conf := matchAuthorityName(Normalize(r.Name))
		if conf > 0.7 {
			res.SuggestedLevel = tier
			res.Confidence = maxFloat(res.Confidence, conf)
			res.Rationale = fmt.Sprintf("authority name pattern (%s tier)", tier)

			continue
		}

		res.SuggestedLevel = positionLevel(rank, total)
		res.Rationale = fmt.Sprintf("position percentile (%d of %d authority roles)", rank+1, total)

		// Capability floors apply regardless of position.
		if r.Capabilities.Administrator {
			res.SuggestedLevel = level.Max(res.SuggestedLevel, level.Admin)
		} else if r.Capabilities.KickMembers || r.Capabilities.BanMembers || r.Capabilities.ModerateMembers {
			res.SuggestedLevel = level.Max(res.SuggestedLevel, level.Moderator)
		}
	}
}

// isOwnerRole requires multiple factors: top-decile rank plus
// administrator plus either owner membership or an exclusive roster.
// rank is the role's index in the descending ordering of all roles.
func (c *Classifier) isOwnerRole(r Snapshot, rank, totalRoles int) bool {
	if totalRoles < 2 {
		return false
	}

	score := 0.0
	if r.OwnerHeld {
		score += 0.4
	}
	if float64(rank)/float64(totalRoles) < 0.1 {
		score += 0.3
	}
	if r.Capabilities.Administrator {
		score += 0.2
	}
	if r.MemberCount >= 1 && r.MemberCount <= 3 {
		score += 0.1
	}

	return score > 0.6
}

// positionLevel maps a rank among authority roles (0 = highest) to a
// level by percentile band.
func positionLevel(rank, total int) level.Level {
	if total <= 1 {
		return level.Admin
	}

	percentile := float64(rank) / float64(total)

	switch {
	case percentile <= 0.1:
		return level.LeadAdmin
	case percentile <= 0.3:
		return level.Admin
	case percentile <= 0.5:
		return level.LeadModerator
	case percentile <= 0.7:
		return level.Moderator
	default:
		return level.Member
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}
