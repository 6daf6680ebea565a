package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"warscope-bot/internal/audit"
	"warscope-bot/internal/config"
	"warscope-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	msgDenied    = "❌ You are not allowed to use this command."
	msgGuildOnly = "❌ This command can only be used in a server."
	msgFailed    = "❌ Something went wrong while running this command."

	// Discord refuses bulk deletes of messages older than two weeks.
	bulkDeleteMaxAge = 14 * 24 * time.Hour

	maxFactCheckSources = 5
)

type command struct {
	// access is the key looked up in the role policy; empty means open.
	access    string
	guildOnly bool
	public    bool
	run       func(ctx context.Context, inv *invocation) (string, error)
}

type invocation struct {
	interaction *discordgo.Interaction
	data        discordgo.ApplicationCommandInteractionData
	user        *discordgo.User
}

type notFoundError struct {
	what string
}

func (e *notFoundError) Error() string {
	return e.what + " not found"
}

func (b *Bot) commandTable() map[string]command {
	return map[string]command{
		"ping":              {public: true, run: b.runPing},
		"bn":                {access: config.CommandBreakingNews, guildOnly: true, run: b.runBreakingNews},
		"report":            {access: config.CommandReport, guildOnly: true, run: b.runReport},
		reportMessageAction: {access: config.CommandReportMessage, guildOnly: true, run: b.runReportMessage},
		"mute":              {access: config.CommandMute, guildOnly: true, run: b.runMute},
		"unmute":            {access: config.CommandUnmute, guildOnly: true, run: b.runUnmute},
		"purge":             {access: config.CommandPurge, guildOnly: true, run: b.runPurge},
		"factcheck":         {access: config.CommandFactCheck, guildOnly: true, run: b.runFactCheck},
	}
}

func (b *Bot) dispatch(ctx context.Context, interaction *discordgo.Interaction) {
	if interaction == nil || interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := interaction.ApplicationCommandData()
	cmd, ok := b.commands[data.Name]
	if !ok {
		b.logger.Debug("unknown command ignored", zap.String("command", data.Name))
		return
	}

	inv := &invocation{interaction: interaction, data: data, user: invoker(interaction)}

	if cmd.guildOnly && interaction.GuildID == "" {
		b.respond(interaction, msgGuildOnly, true)
		return
	}

	if cmd.access != "" && b.policy.Gated(cmd.access) && !b.permitted(cmd.access, interaction) {
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, userID(inv.user), "denied", "command="+data.Name)
		b.respond(interaction, msgDenied, true)
		return
	}

	content, err := cmd.run(ctx, inv)
	if err != nil {
		var nf *notFoundError
		if errors.As(err, &nf) {
			b.respond(interaction, fmt.Sprintf("❌ %s not found.", nf.what), true)
			return
		}
		b.logger.Error("command failed",
			zap.String("command", data.Name),
			zap.String("guild_id", interaction.GuildID),
			zap.String("user_id", userID(inv.user)),
			zap.Error(err),
		)
		b.respond(interaction, msgFailed, true)
		return
	}

	b.respond(interaction, content, !cmd.public)
}

func (b *Bot) permitted(key string, interaction *discordgo.Interaction) bool {
	if interaction.Member == nil {
		return false
	}
	roles, err := b.guildRoles(interaction.GuildID)
	if err != nil {
		// Role ids in the gate still match without names.
		b.logger.Warn("guild roles lookup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		roles = nil
	}
	return b.policy.Allowed(key, interaction.Member, roles)
}

func (b *Bot) runPing(ctx context.Context, inv *invocation) (string, error) {
	return "🏓 Pong!", nil
}

func (b *Bot) runBreakingNews(ctx context.Context, inv *invocation) (string, error) {
	message := stringOption(inv.data, "message")
	roleID := b.cfg.Roles.BreakingNews

	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🚨 BREAKING NEWS 🚨",
			Description: message,
			Color:       b.cfg.Notifications.EmbedColors.BreakingNews,
			Timestamp:   b.now().Format(time.RFC3339),
		}},
		AllowedMentions: noMentions(),
	}
	if roleID != "" {
		send.Content = "<@&" + roleID + ">"
		send.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{roleID}}
	}

	if _, err := b.api.ChannelMessageSendComplex(inv.interaction.ChannelID, send); err != nil {
		return "", fmt.Errorf("send breaking news: %w", asNotFound(err, "Channel"))
	}
	b.audit.Log(ctx, audit.LevelInfo, inv.interaction.GuildID, userID(inv.user), config.CommandBreakingNews, "channel="+inv.interaction.ChannelID)
	return "✅ Breaking news sent.", nil
}

func (b *Bot) runReport(ctx context.Context, inv *invocation) (string, error) {
	target := userOption(inv.data, "user")
	if target == nil {
		return "", &notFoundError{what: "User"}
	}
	reason := stringOption(inv.data, "message")

	fields := []*discordgo.MessageEmbedField{
		{Name: "Reported User", Value: userLabel(target)},
		{Name: "Reporter", Value: userLabel(inv.user)},
		{Name: "Message", Value: clip(reason, 1024)},
	}
	if err := b.sendStaffReport(fields); err != nil {
		return "", err
	}
	b.audit.Log(ctx, audit.LevelInfo, inv.interaction.GuildID, userID(inv.user), config.CommandReport, "target="+target.ID)
	return "✅ Report sent to staff.", nil
}

func (b *Bot) runReportMessage(ctx context.Context, inv *invocation) (string, error) {
	var target *discordgo.Message
	if inv.data.Resolved != nil {
		target = inv.data.Resolved.Messages[inv.data.TargetID]
	}
	if target == nil || target.Author == nil {
		return "", &notFoundError{what: "Message"}
	}

	content := target.Content
	if strings.TrimSpace(content) == "" {
		content = "(no text content)"
	}
	link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", inv.interaction.GuildID, target.ChannelID, target.ID)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Reported User", Value: userLabel(target.Author)},
		{Name: "Reporter", Value: userLabel(inv.user)},
		{Name: "Message", Value: clip(content, 1024)},
		{Name: "Link", Value: link},
	}
	if err := b.sendStaffReport(fields); err != nil {
		return "", err
	}
	b.audit.Log(ctx, audit.LevelInfo, inv.interaction.GuildID, userID(inv.user), config.CommandReportMessage, "target="+target.Author.ID+" message="+target.ID)
	return "✅ Report sent to staff.", nil
}

func (b *Bot) sendStaffReport(fields []*discordgo.MessageEmbedField) error {
	channel, err := b.resolveChannel(b.cfg.Channels.Staff, "Staff channel")
	if err != nil {
		return err
	}

	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:     "🚩 User Report",
			Color:     b.cfg.Notifications.EmbedColors.Report,
			Timestamp: b.now().Format(time.RFC3339),
			Fields:    fields,
		}},
		AllowedMentions: noMentions(),
	}
	if roleID := b.cfg.Roles.Staff; roleID != "" {
		send.Content = "<@&" + roleID + ">"
		send.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{roleID}}
	}
	if _, err := b.api.ChannelMessageSendComplex(channel.ID, send); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

func (b *Bot) runMute(ctx context.Context, inv *invocation) (string, error) {
	return b.setMuted(ctx, inv, true)
}

func (b *Bot) runUnmute(ctx context.Context, inv *invocation) (string, error) {
	return b.setMuted(ctx, inv, false)
}

// setMuted adds or removes the muted role. No REST call is made when the
// member already has the requested state.
func (b *Bot) setMuted(ctx context.Context, inv *invocation, muted bool) (string, error) {
	roleID := b.cfg.Roles.Muted
	if roleID == "" {
		return "", &notFoundError{what: "Muted role"}
	}
	target := userOption(inv.data, "user")
	if target == nil {
		return "", &notFoundError{what: "User"}
	}
	guildID := inv.interaction.GuildID

	member, err := b.api.GuildMember(guildID, target.ID)
	if err != nil {
		return "", fmt.Errorf("fetch member: %w", asNotFound(err, "Member"))
	}
	if member.User != nil {
		target = member.User
	}
	tag := userTag(target)

	has := hasRole(member, roleID)
	switch {
	case muted && has:
		return fmt.Sprintf("✅ %s is already muted.", tag), nil
	case !muted && !has:
		return fmt.Sprintf("✅ %s is not muted.", tag), nil
	case muted:
		if err := b.api.GuildMemberRoleAdd(guildID, target.ID, roleID); err != nil {
			return "", fmt.Errorf("add muted role: %w", asNotFound(err, "Muted role"))
		}
		b.audit.Log(ctx, audit.LevelWarn, guildID, userID(inv.user), config.CommandMute, "target="+target.ID)
		return fmt.Sprintf("✅ %s has been muted.", tag), nil
	default:
		if err := b.api.GuildMemberRoleRemove(guildID, target.ID, roleID); err != nil {
			return "", fmt.Errorf("remove muted role: %w", asNotFound(err, "Muted role"))
		}
		b.audit.Log(ctx, audit.LevelInfo, guildID, userID(inv.user), config.CommandUnmute, "target="+target.ID)
		return fmt.Sprintf("✅ %s has been unmuted.", tag), nil
	}
}

func (b *Bot) runPurge(ctx context.Context, inv *invocation) (string, error) {
	amount := int(intOption(inv.data, "amount"))
	minAmount, maxAmount := b.cfg.Purge.Min, b.cfg.Purge.Max
	if amount < minAmount || amount > maxAmount {
		return fmt.Sprintf("❌ Amount must be between %d and %d.", minAmount, maxAmount), nil
	}

	channelID := inv.interaction.ChannelID
	messages, err := b.api.ChannelMessages(channelID, amount, "", "", "")
	if err != nil {
		return "", fmt.Errorf("list messages: %w", asNotFound(err, "Channel"))
	}

	cutoff := b.now().Add(-bulkDeleteMaxAge)
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, msg.ID)
	}

	switch len(ids) {
	case 0:
	case 1:
		if err := b.api.ChannelMessageDelete(channelID, ids[0]); err != nil {
			return "", fmt.Errorf("delete message: %w", err)
		}
	default:
		if err := b.api.ChannelMessagesBulkDelete(channelID, ids); err != nil {
			return "", fmt.Errorf("bulk delete: %w", err)
		}
	}

	b.audit.Log(ctx, audit.LevelWarn, inv.interaction.GuildID, userID(inv.user), config.CommandPurge,
		fmt.Sprintf("channel=%s requested=%d deleted=%d", channelID, amount, len(ids)))
	return fmt.Sprintf("✅ Deleted %d messages.", len(ids)), nil
}

func (b *Bot) runFactCheck(ctx context.Context, inv *invocation) (string, error) {
	channel, err := b.resolveChannel(b.cfg.Channels.FactCheck, "Fact check channel")
	if err != nil {
		return "", err
	}

	content := fmt.Sprintf("Verification requested by %s in <#%s>", userTag(inv.user), inv.interaction.ChannelID)
	send := &discordgo.MessageSend{AllowedMentions: noMentions()}
	if roleID := b.cfg.Roles.FactCheck; roleID != "" {
		content = "<@&" + roleID + "> " + content
		send.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{roleID}}
	}
	send.Content = content

	var links []string
	claim := strings.TrimSpace(stringOption(inv.data, "claim"))
	if claim != "" {
		embed := &discordgo.MessageEmbed{
			Title:       "🔎 Claim to verify",
			Description: clip(claim, 4096),
			Color:       b.cfg.Notifications.EmbedColors.FactCheck,
			Timestamp:   b.now().Format(time.RFC3339),
		}
		links = utils.SourceLinks(claim, maxFactCheckSources)
		if len(links) > 0 {
			embed.Fields = []*discordgo.MessageEmbedField{{Name: "Sources", Value: clip(strings.Join(links, "\n"), 1024)}}
		}
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}

	posted, err := b.api.ChannelMessageSendComplex(channel.ID, send)
	if err != nil {
		return "", fmt.Errorf("send fact check: %w", err)
	}
	if len(links) > 0 && b.lookupDomain != nil && posted != nil {
		// WHOIS can outlast the interaction deadline, so dates are added by edit.
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			b.annotateSources(channel.ID, posted.ID, send.Embeds[0], links)
		}()
	}
	b.audit.Log(ctx, audit.LevelInfo, inv.interaction.GuildID, userID(inv.user), config.CommandFactCheck, "channel="+inv.interaction.ChannelID)
	return "✅ Fact check request sent.", nil
}

func (b *Bot) resolveChannel(channelID, what string) (*discordgo.Channel, error) {
	if channelID == "" {
		return nil, &notFoundError{what: what}
	}
	channel, err := b.api.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("fetch channel: %w", asNotFound(err, what))
	}
	if channel == nil {
		return nil, &notFoundError{what: what}
	}
	return channel, nil
}

// asNotFound turns a REST 404 (or unknown entity) into a notFoundError.
func asNotFound(err error, what string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return &notFoundError{what: what}
	}
	return err
}

func invoker(interaction *discordgo.Interaction) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	if interaction.User != nil {
		return interaction.User
	}
	return &discordgo.User{}
}

func userID(user *discordgo.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}

func userTag(user *discordgo.User) string {
	switch {
	case user.Username == "":
		return "<@" + user.ID + ">"
	case user.Discriminator == "" || user.Discriminator == "0":
		return user.Username
	default:
		return user.Username + "#" + user.Discriminator
	}
}

func userLabel(user *discordgo.User) string {
	return fmt.Sprintf("%s (%s)", userTag(user), user.ID)
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func findOption(data discordgo.ApplicationCommandInteractionData, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range data.Options {
		if opt != nil && opt.Name == name {
			return opt
		}
	}
	return nil
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) string {
	opt := findOption(data, name)
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

func intOption(data discordgo.ApplicationCommandInteractionData, name string) int64 {
	opt := findOption(data, name)
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0
	}
	return opt.IntValue()
}

// userOption prefers the resolved user payload so tags are available
// without another REST call.
func userOption(data discordgo.ApplicationCommandInteractionData, name string) *discordgo.User {
	opt := findOption(data, name)
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionUser {
		return nil
	}
	id, _ := opt.Value.(string)
	if id == "" {
		return nil
	}
	if data.Resolved != nil {
		if user := data.Resolved.Users[id]; user != nil {
			return user
		}
	}
	return &discordgo.User{ID: id}
}
