package pointsdiscord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	pointsdomain "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/domain"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
)

// Session is the part of *discordgo.Session the bot talks to.
type Session interface {
	MemberRoleEditor
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Guilds is the guild service surface the commands use.
type Guilds interface {
	EnsureServer(ctx context.Context, guildID string) (*guilddb.Server, error)
	GetServer(ctx context.Context, guildID string) (*guilddb.Server, error)
	UpdateServer(ctx context.Context, guildID string, updates *guilddb.UpdateFields) (*guilddb.Server, error)
	SetRole(ctx context.Context, guildID, discordRoleID, name string, minPoints int) (*guildservice.RoleChange, error)
	RemoveRole(ctx context.Context, guildID, discordRoleID string) error
}

// Users is the user service surface the commands use.
type Users interface {
	LinkUser(ctx context.Context, guildID, discordID string, osuID int64) (*userservice.LinkResult, error)
}

// Points is the points service surface the commands use.
type Points interface {
	UpdateLinkedUser(ctx context.Context, guildID, discordID string) (pointsservice.ReconcileResult, error)
	PreviewPoints(ctx context.Context, osuID int64) (*pointsservice.Preview, error)
	RoleHolders(ctx context.Context, roleID int64) ([]string, error)
}

type commandFunc func(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error)

// Bot dispatches gateway events to the services.
type Bot struct {
	session  Session
	guilds   Guilds
	users    Users
	points   Points
	roles    *RoleSync
	logger   *slog.Logger
	commands map[string]commandFunc
	// restricted commands obey the server's commands channel.
	restricted map[string]bool
}

func NewBot(session Session, guilds Guilds, users Users, points Points, logger *slog.Logger) *Bot {
	b := &Bot{
		session: session,
		guilds:  guilds,
		users:   users,
		points:  points,
		roles:   NewRoleSync(session, logger),
		logger:  logger,
	}
	b.commands = map[string]commandFunc{
		commandLink:     b.link,
		commandUpdate:   b.update,
		commandPoints:   b.preview,
		commandRole:     b.role,
		commandSettings: b.settings,
	}
	b.restricted = map[string]bool{
		commandLink:   true,
		commandUpdate: true,
		commandPoints: true,
	}
	return b
}

// RoleSync returns the bot's role synchronizer.
func (b *Bot) RoleSync() *RoleSync {
	return b.roles
}

// OnGuildCreate registers the guild. Registered with Session.AddHandler.
func (b *Bot) OnGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	ctx := context.Background()
	if _, err := b.guilds.EnsureServer(ctx, g.ID); err != nil {
		b.logger.ErrorContext(ctx, "Failed to register guild",
			slog.String("guild_id", g.ID),
			slog.Any("error", err),
		)
	}
}

// OnInteractionCreate serves slash commands. Registered with Session.AddHandler.
func (b *Bot) OnInteractionCreate(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	b.HandleInteraction(context.Background(), i)
}

func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" || i.Member == nil {
		return
	}
	data := i.ApplicationCommandData()
	run, ok := b.commands[data.Name]
	if !ok {
		return
	}

	if b.restricted[data.Name] {
		if channelID, ok := b.commandsChannel(ctx, i.GuildID); ok && channelID != i.ChannelID {
			b.respondEphemeral(ctx, i, fmt.Sprintf("Use <#%s> for bot commands.", channelID))
			return
		}
	}

	// osu! and osu!stats round trips can exceed the three second window.
	if err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx)); err != nil {
		b.logger.ErrorContext(ctx, "Failed to defer interaction",
			slog.String("command", data.Name),
			slog.Any("error", err),
		)
		return
	}

	content, err := run(ctx, i, data)
	if err != nil {
		b.logger.WarnContext(ctx, "Command failed",
			slog.String("command", data.Name),
			slog.String("guild_id", i.GuildID),
			slog.String("member_id", i.Member.User.ID),
			slog.Any("error", err),
		)
		content = userMessage(err)
	}

	if _, err := b.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	}, discordgo.WithContext(ctx)); err != nil {
		b.logger.ErrorContext(ctx, "Failed to send command reply",
			slog.String("command", data.Name),
			slog.Any("error", err),
		)
	}
}

func (b *Bot) commandsChannel(ctx context.Context, guildID string) (string, bool) {
	server, err := b.guilds.GetServer(ctx, guildID)
	if err != nil {
		if !errors.Is(err, guildservice.ErrServerNotFound) {
			b.logger.WarnContext(ctx, "Failed to load server settings",
				slog.String("guild_id", guildID),
				slog.Any("error", err),
			)
		}
		return "", false
	}
	if server.CommandsChannelID == nil || *server.CommandsChannelID == "" {
		return "", false
	}
	return *server.CommandsChannelID, true
}

func (b *Bot) respondEphemeral(ctx context.Context, i *discordgo.InteractionCreate, content string) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to respond to interaction", slog.Any("error", err))
	}
}

func (b *Bot) link(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error) {
	memberID := i.Member.User.ID
	osuID, err := intOption(data.Options, "osu_id")
	if err != nil {
		return "", err
	}

	res, err := b.users.LinkUser(ctx, i.GuildID, memberID, osuID)
	if err != nil {
		return "", err
	}

	msg := fmt.Sprintf("Linked <@%s> to osu! user **%s**. Use /update to get your role.", memberID, res.User.Username)
	if res.VerifiedRoleID != nil && *res.VerifiedRoleID != "" {
		if err := b.session.GuildMemberRoleAdd(i.GuildID, memberID, *res.VerifiedRoleID, discordgo.WithContext(ctx)); err != nil {
			b.logger.WarnContext(ctx, "Failed to grant verified role",
				slog.String("guild_id", i.GuildID),
				slog.String("member_id", memberID),
				slog.Any("error", err),
			)
			msg += "\nThe verified role could not be granted; check the bot's permissions."
		}
	}
	return msg, nil
}

func (b *Bot) update(ctx context.Context, i *discordgo.InteractionCreate, _ discordgo.ApplicationCommandInteractionData) (string, error) {
	res, err := b.points.UpdateLinkedUser(ctx, i.GuildID, i.Member.User.ID)
	if err != nil {
		return "", err
	}
	if res.IsSkipped() {
		return formatSkip(res.Skipped), nil
	}

	msg := formatAssignment(res.Assigned)
	if err := b.roles.ApplyAssignment(ctx, res.Assigned); err != nil {
		b.logger.WarnContext(ctx, "Failed to sync member role",
			slog.String("guild_id", i.GuildID),
			slog.String("member_id", i.Member.User.ID),
			slog.Any("error", err),
		)
		msg += "\nYour role could not be updated; check the bot's permissions."
	}
	return msg, nil
}

func (b *Bot) preview(ctx context.Context, _ *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error) {
	osuID, err := intOption(data.Options, "osu_id")
	if err != nil {
		return "", err
	}
	p, err := b.points.PreviewPoints(ctx, osuID)
	if err != nil {
		return "", err
	}
	return formatPreview(p), nil
}

func (b *Bot) role(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error) {
	if len(data.Options) == 0 {
		return "", fmt.Errorf("role: missing subcommand")
	}
	sub := data.Options[0]
	roleID, err := roleOption(sub.Options, "role")
	if err != nil {
		return "", err
	}

	switch sub.Name {
	case "set":
		minPoints, err := intOption(sub.Options, "min_points")
		if err != nil {
			return "", err
		}
		change, err := b.guilds.SetRole(ctx, i.GuildID, roleID, resolvedRoleName(data, roleID), int(minPoints))
		if err != nil {
			return "", err
		}
		reply := fmt.Sprintf("<@&%s> is now granted from %d points.", roleID, change.Role.MinPoints)
		if !change.Rebound() {
			return reply, nil
		}
		moved, failed, err := b.moveHolders(ctx, i.GuildID, change)
		if err != nil {
			return "", err
		}
		reply += fmt.Sprintf(" Moved %d members to it.", moved)
		if failed > 0 {
			reply += fmt.Sprintf(" %d members could not be updated.", failed)
		}
		return reply, nil
	case "remove":
		if err := b.guilds.RemoveRole(ctx, i.GuildID, roleID); err != nil {
			return "", err
		}
		return fmt.Sprintf("<@&%s> is no longer a points role.", roleID), nil
	default:
		return "", fmt.Errorf("role: unknown subcommand %q", sub.Name)
	}
}

// moveHolders swaps the Discord role of every member assigned a threshold
// that now points at a different Discord role.
func (b *Bot) moveHolders(ctx context.Context, guildID string, change *guildservice.RoleChange) (moved, failed int, err error) {
	holders, err := b.points.RoleHolders(ctx, change.Role.ID)
	if err != nil {
		return 0, 0, err
	}

	previous := toDomainRole(*change.Previous)
	transition := pointsdomain.RoleTransition{Old: &previous, New: toDomainRole(*change.Role)}
	for _, memberID := range holders {
		if err := b.roles.Apply(ctx, guildID, memberID, transition); err != nil {
			failed++
			b.logger.WarnContext(ctx, "Failed to move member to rebound role",
				slog.String("guild_id", guildID),
				slog.String("member_id", memberID),
				slog.Any("error", err),
			)
			continue
		}
		moved++
	}
	return moved, failed, nil
}

func toDomainRole(r guilddb.Role) pointsdomain.Role {
	return pointsdomain.Role{ID: r.ID, DiscordID: r.DiscordID, Name: r.Name, MinPoints: r.MinPoints}
}

func (b *Bot) settings(ctx context.Context, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) (string, error) {
	updates := &guilddb.UpdateFields{}
	for _, opt := range data.Options {
		switch opt.Name {
		case "country":
			v := strings.ToUpper(strings.TrimSpace(opt.StringValue()))
			if v == "NONE" {
				v = ""
			}
			updates.Country = &v
		case "verified_role":
			v := opt.RoleValue(nil, "").ID
			updates.VerifiedRoleID = &v
		case "commands_channel":
			v := opt.ChannelValue(nil).ID
			updates.CommandsChannelID = &v
		case "leaderboard_channel":
			v := opt.ChannelValue(nil).ID
			updates.LeaderboardChannelID = &v
		}
	}

	var (
		server *guilddb.Server
		err    error
	)
	if updates.IsEmpty() {
		server, err = b.guilds.GetServer(ctx, i.GuildID)
	} else {
		server, err = b.guilds.UpdateServer(ctx, i.GuildID, updates)
	}
	if err != nil {
		return "", err
	}
	return formatSettings(server), nil
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string, typ discordgo.ApplicationCommandOptionType) (*discordgo.ApplicationCommandInteractionDataOption, error) {
	for _, o := range opts {
		if o.Name == name && o.Type == typ {
			return o, nil
		}
	}
	return nil, fmt.Errorf("missing %s option %q", typ, name)
}

func intOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, error) {
	o, err := findOption(opts, name, discordgo.ApplicationCommandOptionInteger)
	if err != nil {
		return 0, err
	}
	return o.IntValue(), nil
}

func roleOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, error) {
	o, err := findOption(opts, name, discordgo.ApplicationCommandOptionRole)
	if err != nil {
		return "", err
	}
	return o.RoleValue(nil, "").ID, nil
}

func resolvedRoleName(data discordgo.ApplicationCommandInteractionData, roleID string) string {
	if data.Resolved != nil {
		if r, ok := data.Resolved.Roles[roleID]; ok && r != nil {
			return r.Name
		}
	}
	return roleID
}
