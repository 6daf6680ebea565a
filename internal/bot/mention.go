package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"warscope-bot/internal/assistant"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	msgEmptyQuestion = "Please include a question when pinging me."
	msgUnavailable   = "⚠️ Unable to retrieve verified information at this time."
)

// handleMessage answers direct mentions of the bot through the assistant
// provider. The cooldown is checked first and a trigger is recorded, in the
// same step, only for a non-empty question.
func (b *Bot) handleMessage(ctx context.Context, botID string, msg *discordgo.Message) {
	if msg == nil || msg.Author == nil || msg.Author.Bot {
		return
	}
	if !mentionsUser(msg, botID) {
		return
	}

	userID := msg.Author.ID
	question := assistant.StripMention(msg.Content, botID)
	if ok, remaining := b.gate.Take(userID, question != ""); !ok {
		wait := int(math.Ceil(remaining.Seconds()))
		b.replyTo(msg, &discordgo.MessageSend{Content: fmt.Sprintf("⏳ Please wait %ds before asking again.", wait)})
		return
	}
	if question == "" {
		b.replyTo(msg, &discordgo.MessageSend{Content: msgEmptyQuestion})
		return
	}

	if err := b.api.ChannelTyping(msg.ChannelID); err != nil {
		b.logger.Debug("typing indicator failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}

	answer, err := b.ask(ctx, question)
	if err != nil {
		level := b.logger.Warn
		if errors.Is(err, assistant.ErrThrottled) {
			level = b.logger.Info
		}
		level("assistant request failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		b.replyTo(msg, &discordgo.MessageSend{Content: msgUnavailable})
		return
	}

	b.replyTo(msg, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Description: answer,
			Color:       b.cfg.Notifications.EmbedColors.Assistant,
			Footer:      &discordgo.MessageEmbedFooter{Text: b.cfg.Assistant.Footer},
			Timestamp:   b.now().Format(time.RFC3339),
		}},
	})
}

func (b *Bot) ask(ctx context.Context, question string) (string, error) {
	if b.provider == nil {
		return "", errors.New("assistant provider not configured")
	}
	timeout := time.Duration(b.cfg.Assistant.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.provider.Generate(ctx, question)
}

// replyTo answers msg in place without pinging anyone, the author included.
func (b *Bot) replyTo(msg *discordgo.Message, send *discordgo.MessageSend) {
	send.Reference = msg.Reference()
	send.AllowedMentions = &discordgo.MessageAllowedMentions{
		Parse:       []discordgo.AllowedMentionType{},
		RepliedUser: false,
	}
	if _, err := b.api.ChannelMessageSendComplex(msg.ChannelID, send); err != nil {
		b.logger.Warn("mention reply failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func mentionsUser(msg *discordgo.Message, userID string) bool {
	if userID == "" {
		return false
	}
	for _, user := range msg.Mentions {
		if user != nil && user.ID == userID {
			return true
		}
	}
	return false
}
