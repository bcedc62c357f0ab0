package pointsdiscord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	commandLink     = "link"
	commandUpdate   = "update"
	commandPoints   = "points"
	commandRole     = "role"
	commandSettings = "settings"
)

// CommandRegistrar is the part of *discordgo.Session that registers commands.
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Commands returns the slash commands the bot serves.
func Commands() []*discordgo.ApplicationCommand {
	minOsuID := float64(1)
	minThreshold := float64(0)
	manageGuild := int64(discordgo.PermissionManageGuild)
	dm := false

	osuIDOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "osu_id",
		Description: "osu! user id",
		Required:    true,
		MinValue:    &minOsuID,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         commandLink,
			Description:  "Link your osu! account to this Discord account",
			DMPermission: &dm,
			Options:      []*discordgo.ApplicationCommandOption{osuIDOption},
		},
		{
			Name:         commandUpdate,
			Description:  "Recalculate your points and update your role",
			DMPermission: &dm,
		},
		{
			Name:         commandPoints,
			Description:  "Show a player's points without saving them",
			DMPermission: &dm,
			Options:      []*discordgo.ApplicationCommandOption{osuIDOption},
		},
		{
			Name:                     commandRole,
			Description:              "Configure point roles",
			DMPermission:             &dm,
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Grant a role from a points threshold",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Discord role", Required: true},
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "min_points", Description: "Lowest points holding the role", Required: true, MinValue: &minThreshold},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Stop granting a role",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Discord role", Required: true},
					},
				},
			},
		},
		{
			Name:                     commandSettings,
			Description:              "Configure this server",
			DMPermission:             &dm,
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "country", Description: "Two-letter country code players must have, or \"none\""},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "verified_role", Description: "Role granted on link"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "commands_channel", Description: "Only channel accepting member commands"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "leaderboard_channel", Description: "Channel for leaderboard posts"},
			},
		},
	}
}

// RegisterCommands replaces the application's commands. An empty guildID
// registers them globally.
func RegisterCommands(r CommandRegistrar, appID, guildID string) error {
	if _, err := r.ApplicationCommandBulkOverwrite(appID, guildID, Commands()); err != nil {
		return fmt.Errorf("pointsdiscord.RegisterCommands: %w", err)
	}
	return nil
}
