package bot

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"warscope-bot/internal/assistant"
	"warscope-bot/internal/audit"
	"warscope-bot/internal/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

type fakeDiscord struct {
	mu sync.Mutex

	channels map[string]*discordgo.Channel
	members  map[string]*discordgo.Member
	roles    []*discordgo.Role
	history  map[string][]*discordgo.Message

	responses   []*discordgo.InteractionResponse
	sent        []sentMessage
	roleAdds    int
	roleRemoves int
	bulkDeleted []string
	deleted     []string
	typing      int
	edits       []*discordgo.MessageEmbed
	roleFetches int
	// hold parks sends to a channel until the channel is closed.
	hold map[string]chan struct{}
	deleteErr   error

	commands []*discordgo.ApplicationCommand
	created  []string
	edited   []string
	removed  []string
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{
		channels: make(map[string]*discordgo.Channel),
		members:  make(map[string]*discordgo.Member),
		history:  make(map[string][]*discordgo.Message),
	}
}

func notFound() error {
	return &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (f *fakeDiscord) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	wait := f.hold[channelID]
	f.mu.Unlock()
	if wait != nil {
		<-wait
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: "sent", ChannelID: channelID}, nil
}

func (f *fakeDiscord) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, notFound()
	}
	return channel, nil
}

func (f *fakeDiscord) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeDiscord) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.history[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeDiscord) ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeleted = append(f.bulkDeleted, messages...)
	return nil
}

func (f *fakeDiscord) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeDiscord) ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, embed)
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeDiscord) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[userID]
	if !ok {
		return nil, notFound()
	}
	copied := *member
	copied.Roles = append([]string(nil), member.Roles...)
	return &copied, nil
}

func (f *fakeDiscord) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[userID]
	if !ok {
		return notFound()
	}
	f.roleAdds++
	for _, id := range member.Roles {
		if id == roleID {
			return nil
		}
	}
	member.Roles = append(member.Roles, roleID)
	return nil
}

func (f *fakeDiscord) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[userID]
	if !ok {
		return notFound()
	}
	f.roleRemoves++
	kept := member.Roles[:0]
	for _, id := range member.Roles {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	member.Roles = kept
	return nil
}

func (f *fakeDiscord) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleFetches++
	return f.roles, nil
}

func (f *fakeDiscord) ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commands == nil {
		return nil, errors.New("unavailable")
	}
	return f.commands, nil
}

func (f *fakeDiscord) ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, cmd.Name)
	return cmd, nil
}

func (f *fakeDiscord) ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, cmd.Name)
	return cmd, nil
}

func (f *fakeDiscord) ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.removed = append(f.removed, cmdID)
	return nil
}

func (f *fakeDiscord) lastResponse(t *testing.T) *discordgo.InteractionResponseData {
	t.Helper()
	if len(f.responses) == 0 {
		t.Fatalf("expected an interaction response")
	}
	return f.responses[len(f.responses)-1].Data
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  []string
	answer string
	err    error
}

func (p *fakeProvider) Generate(ctx context.Context, question string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, question)
	return p.answer, p.err
}

const (
	testGuild      = "guild-1"
	testChannel    = "chan-1"
	testStaff      = "staff-chan"
	testFactCheck  = "fact-chan"
	testBNRole     = "role-bn"
	testStaffRole  = "role-staff"
	testMutedRole  = "role-muted"
	testFactRole   = "role-fact"
	testAdminRole  = "role-admin"
	testMemberRole = "role-member"
	testBotID      = "bot-1"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.DiscordToken = "token"
	cfg.GuildID = testGuild
	cfg.Channels.Staff = testStaff
	cfg.Channels.FactCheck = testFactCheck
	cfg.Roles.BreakingNews = testBNRole
	cfg.Roles.Staff = testStaffRole
	cfg.Roles.Muted = testMutedRole
	cfg.Roles.FactCheck = testFactRole
	return cfg
}

func newTestBot(t *testing.T, provider *fakeProvider) (*Bot, *fakeDiscord) {
	t.Helper()
	api := newFakeDiscord()
	api.channels[testStaff] = &discordgo.Channel{ID: testStaff, GuildID: testGuild}
	api.channels[testFactCheck] = &discordgo.Channel{ID: testFactCheck, GuildID: testGuild}
	api.roles = []*discordgo.Role{
		{ID: testAdminRole, Name: "Admin"},
		{ID: testMemberRole, Name: "Member"},
	}

	var p assistant.Provider
	if provider != nil {
		p = provider
	}
	b := newBot(testConfig(), zap.NewNop(), api, audit.NewLogger(nil, zap.NewNop()), p)
	return b, api
}

func member(id, name string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: name, Discriminator: "0"},
		Roles: roles,
	}
}

func commandInteraction(name string, caller *discordgo.Member, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "interaction-1",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   testGuild,
		ChannelID: testChannel,
		Member:    caller,
		Data: discordgo.ApplicationCommandInteractionData{
			Name:     name,
			Options:  options,
			Resolved: &discordgo.ApplicationCommandInteractionDataResolved{Users: map[string]*discordgo.User{}},
		},
	}
}

func withResolvedUser(interaction *discordgo.Interaction, user *discordgo.User) *discordgo.Interaction {
	data := interaction.Data.(discordgo.ApplicationCommandInteractionData)
	data.Resolved.Users[user.ID] = user
	interaction.Data = data
	return interaction
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func userOpt(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}
