package pointsdiscord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
)

// MemberRoleEditor is the part of *discordgo.Session that edits member roles.
type MemberRoleEditor interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// RoleSync mirrors a role transition onto the Discord member.
type RoleSync struct {
	discord MemberRoleEditor
	logger  *slog.Logger
}

func NewRoleSync(discord MemberRoleEditor, logger *slog.Logger) *RoleSync {
	return &RoleSync{discord: discord, logger: logger}
}

// Apply removes the old role and grants the new one. Nothing is sent when
// both sides carry the same external id, including when neither has one.
// Discord errors are returned as-is; the caller decides whether to retry.
func (r *RoleSync) Apply(ctx context.Context, guildID, memberID string, t pointsdomain.RoleTransition) error {
	if !t.Changed() {
		return nil
	}

	if t.Old != nil && t.Old.DiscordID != nil {
		if err := r.discord.GuildMemberRoleRemove(guildID, memberID, *t.Old.DiscordID, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("RoleSync.Apply: remove role %s: %w", *t.Old.DiscordID, err)
		}
	}
	if t.New.DiscordID != nil {
		if err := r.discord.GuildMemberRoleAdd(guildID, memberID, *t.New.DiscordID, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("RoleSync.Apply: add role %s: %w", *t.New.DiscordID, err)
		}
	}

	r.logger.InfoContext(ctx, "Member role synced",
		slog.String("guild_id", guildID),
		slog.String("member_id", memberID),
		slog.String("role", t.New.Name),
	)
	return nil
}

// ApplyAssignment applies the transition of a reconciled assignment.
func (r *RoleSync) ApplyAssignment(ctx context.Context, res *pointsservice.AssignmentResult) error {
	return r.Apply(ctx, res.GuildID, res.DiscordUserID, res.Transition)
}
