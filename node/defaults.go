package node

import "github.com/xraph/bastion/level"

// Defaults registers the built-in command node set on r. Callers that
// manage their own command tables can skip it and register nodes directly.
func Defaults(r *Registry) error {
	defs := []struct {
		name  string
		lvl   level.Level
		descr string
	}{
		{"basic.ping", level.Everyone, "Use ping command"},
		{"basic.info", level.Everyone, "View bot information"},
		{"basic.help", level.Everyone, "View help system"},
		{"basic.avatar", level.Everyone, "View user avatars"},
		{"basic.uptime", level.Everyone, "View bot uptime"},

		{"utility.userinfo", level.Member, "View user information"},
		{"utility.serverinfo", level.Member, "View server information"},
		{"utility.roleinfo", level.Member, "View role information"},

		{"moderation.warn", level.Moderator, "Warn members"},
		{"moderation.mute", level.Moderator, "Mute members"},
		{"moderation.kick", level.Moderator, "Kick members"},
		{"moderation.ban", level.Moderator, "Ban members"},

		{"moderation.mass_ban", level.LeadModerator, "Mass ban members"},
		{"moderation.lockdown", level.LeadModerator, "Lock down channels"},
		{"moderation.purge", level.LeadModerator, "Purge messages"},

		{"admin.settings", level.Admin, "Modify bot settings"},
		{"admin.permissions", level.Admin, "View permissions"},
		{"admin.reload", level.Admin, "Reload bot components"},

		{"admin.server_config", level.LeadAdmin, "Configure server settings"},
		{"admin.audit_logs", level.LeadAdmin, "View audit logs"},
		{"admin.permission_management", level.LeadAdmin, "Manage permission system"},

		{"owner.shutdown", level.Owner, "Shutdown the bot"},
		{"owner.eval", level.BotOwner, "Execute code"},
	}

	for _, d := range defs {
		if err := r.Register(d.name, d.lvl, d.descr); err != nil {
			return err
		}
	}

	return nil
}
