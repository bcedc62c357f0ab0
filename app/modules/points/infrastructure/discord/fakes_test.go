package pointsdiscord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	guildservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/application"
	guilddb "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/guild/infrastructure/repositories"
	pointsservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/points/application"
	userservice "github.com/shigeru22/snipeid-calc-bot-sub001/app/modules/user/application"
)

func strPtr(s string) *string { return &s }

type roleCall struct {
	Op      string
	GuildID string
	UserID  string
	RoleID  string
}

type fakeSession struct {
	mu        sync.Mutex
	roleCalls []roleCall
	responses []*discordgo.InteractionResponse
	edits     []string
	roleErr   error
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls = append(f.roleCalls, roleCall{"add", guildID, userID, roleID})
	return f.roleErr
}

func (f *fakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls = append(f.roleCalls, roleCall{"remove", guildID, userID, roleID})
	return f.roleErr
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, *edit.Content)
	return &discordgo.Message{Content: *edit.Content}, nil
}

type fakeGuilds struct {
	server      *guilddb.Server
	ensured     []string
	setRoleFn   func(guildID, roleID, name string, minPoints int) (*guildservice.RoleChange, error)
	removedRole string
	updates     *guilddb.UpdateFields
}

func (f *fakeGuilds) EnsureServer(_ context.Context, guildID string) (*guilddb.Server, error) {
	f.ensured = append(f.ensured, guildID)
	return &guilddb.Server{DiscordID: guildID}, nil
}

func (f *fakeGuilds) GetServer(context.Context, string) (*guilddb.Server, error) {
	if f.server == nil {
		return nil, guildservice.ErrServerNotFound
	}
	return f.server, nil
}

func (f *fakeGuilds) UpdateServer(_ context.Context, _ string, updates *guilddb.UpdateFields) (*guilddb.Server, error) {
	f.updates = updates
	s := *f.server
	if updates.Country != nil {
		s.Country = updates.Country
	}
	if updates.CommandsChannelID != nil {
		s.CommandsChannelID = updates.CommandsChannelID
	}
	return &s, nil
}

func (f *fakeGuilds) SetRole(_ context.Context, guildID, roleID, name string, minPoints int) (*guildservice.RoleChange, error) {
	return f.setRoleFn(guildID, roleID, name, minPoints)
}

func (f *fakeGuilds) RemoveRole(_ context.Context, _ string, roleID string) error {
	f.removedRole = roleID
	return nil
}

type fakeUsers struct {
	res *userservice.LinkResult
	err error
}

func (f fakeUsers) LinkUser(context.Context, string, string, int64) (*userservice.LinkResult, error) {
	return f.res, f.err
}

type fakePoints struct {
	update  pointsservice.ReconcileResult
	err     error
	preview *pointsservice.Preview
	holders map[int64][]string
	calls   int
}

func (f *fakePoints) UpdateLinkedUser(context.Context, string, string) (pointsservice.ReconcileResult, error) {
	f.calls++
	return f.update, f.err
}

func (f *fakePoints) PreviewPoints(context.Context, int64) (*pointsservice.Preview, error) {
	f.calls++
	return f.preview, f.err
}

func (f *fakePoints) RoleHolders(_ context.Context, roleID int64) ([]string, error) {
	return f.holders[roleID], nil
}

func command(name, channelID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   "g1",
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: "m1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name:    name,
			Options: opts,
		},
	}}
}

func intOpt(name string, v int64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(v),
	}
}

func roleOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionRole,
		Value: id,
	}
}
