package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"warscope-bot/internal/access"
	"warscope-bot/internal/analytics"
	"warscope-bot/internal/assistant"
	"warscope-bot/internal/audit"
	"warscope-bot/internal/config"
	"warscope-bot/internal/cooldown"
	"warscope-bot/internal/storage"
	"warscope-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Discord is the slice of the REST API the bot uses. *discordgo.Session
// satisfies it.
type Discord interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessagesBulkDelete(channelID string, messages []string, options ...discordgo.RequestOption) error
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandEdit(appID, guildID, cmdID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	session   *discordgo.Session
	api       Discord
	store     *storage.Store
	audit     *audit.Logger
	analytics *analytics.Service
	provider  assistant.Provider
	gate      *cooldown.Gate
	policy    *access.Policy
	commands  map[string]command
	now       func() time.Time

	// lookupDomain returns a registration date for a source host; nil skips
	// the lookup.
	lookupDomain func(host string) (string, error)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New connects nothing yet; Start opens the gateway. provider may be nil, in
// which case every mention gets the unavailability notice.
func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, analyticsService *analytics.Service, provider assistant.Provider) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	b := newBot(cfg, logger, session, auditLogger, provider)
	b.session = session
	b.store = store
	b.analytics = analyticsService
	if cfg.Whois.Enabled {
		b.lookupDomain = utils.NewDomainLookup(time.Duration(cfg.Whois.TimeoutSeconds) * time.Second).Registered
	}
	return b, nil
}

func newBot(cfg config.Config, logger *zap.Logger, api Discord, auditLogger *audit.Logger, provider assistant.Provider) *Bot {
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		audit:    auditLogger,
		provider: provider,
		gate:     cooldown.New(time.Duration(cfg.Cooldown.WindowSeconds) * time.Second),
		policy:   access.NewPolicy(cfg.Access),
		now:      time.Now,
	}
	b.commands = b.commandTable()

	if b.audit != nil && cfg.Channels.ModLog != "" {
		b.audit.SetNotifier(b.notifyModLog)
	}
	return b
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}

	appID := b.cfg.ClientID
	if appID == "" && b.session.State != nil && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}
	if err := b.registerCommands(appID, b.cfg.GuildID); err != nil {
		b.logger.Error("command registration failed", zap.String("guild_id", b.cfg.GuildID), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.startBackground(ctx)
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("background loops did not stop in time")
	}
	if b.audit != nil {
		if err := b.audit.Wait(ctx); err != nil {
			b.logger.Warn("audit deliveries did not finish in time", zap.Error(err))
		}
	}

	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if session.State == nil || session.State.User == nil {
		return
	}
	b.handleMessage(context.Background(), session.State.User.ID, msg.Message)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	b.dispatch(context.Background(), interaction.Interaction)
}

// guildRoles reads the gateway state cache first and falls back to REST.
func (b *Bot) guildRoles(guildID string) ([]*discordgo.Role, error) {
	if b.session != nil && b.session.State != nil {
		if guild, err := b.session.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
			return guild.Roles, nil
		}
	}
	return b.api.GuildRoles(guildID)
}

func (b *Bot) respond(interaction *discordgo.Interaction, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := b.api.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		b.logger.Warn("interaction respond failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}

func (b *Bot) notifyModLog(ctx context.Context, entry storage.AuditLog) {
	userValue := "system"
	if entry.UserID != "" {
		userValue = "<@" + entry.UserID + ">"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Event", Value: entry.Event, Inline: true},
		{Name: "Level", Value: entry.Level, Inline: true},
		{Name: "User", Value: userValue, Inline: true},
	}
	if entry.Details != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Details", Value: clip(entry.Details, 1024), Inline: false})
	}
	_, err := b.api.ChannelMessageSendComplex(b.cfg.Channels.ModLog, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:     "📋 Moderation log",
			Color:     b.cfg.Notifications.EmbedColors.Summary,
			Timestamp: entry.CreatedAt.Format(time.RFC3339),
			Fields:    fields,
		}},
		AllowedMentions: noMentions(),
	})
	if err != nil {
		b.logger.Warn("mod log post failed", zap.String("event", entry.Event), zap.Error(err))
	}
}

func noMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}

func clip(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
