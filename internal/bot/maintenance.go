package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"warscope-bot/internal/analytics"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maintenanceInterval = 24 * time.Hour

func (b *Bot) startBackground(ctx context.Context) {
	sweep := time.Duration(b.cfg.Cooldown.SweepSeconds) * time.Second
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.gate.Run(ctx, sweep)
	}()

	if !b.summaryEnabled() && b.store == nil {
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		timer := time.NewTimer(30 * time.Second)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.runMaintenance(ctx)
				timer.Reset(maintenanceInterval)
			}
		}
	}()
}

func (b *Bot) summaryEnabled() bool {
	return b.cfg.Notifications.DailySummary && b.analytics.Enabled() && b.cfg.GuildID != "" && b.cfg.Channels.Staff != ""
}

func (b *Bot) runMaintenance(ctx context.Context) {
	if b.summaryEnabled() {
		b.sendDailySummary(ctx)
	}
	if b.store != nil {
		removed, err := b.store.CleanupAuditLogs(ctx, b.cfg.Storage.RetentionDays)
		if err != nil {
			b.logger.Warn("audit cleanup failed", zap.Error(err))
		} else if removed > 0 {
			b.logger.Info("audit cleanup", zap.Int64("removed", removed))
		}
	}
}

func (b *Bot) sendDailySummary(ctx context.Context) {
	since := b.now().Add(-maintenanceInterval)
	report, err := b.analytics.Report(ctx, b.cfg.GuildID, since)
	if err != nil {
		b.logger.Warn("daily summary failed", zap.String("guild_id", b.cfg.GuildID), zap.Error(err))
		return
	}
	send := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{b.summaryEmbed(report)},
		AllowedMentions: noMentions(),
	}
	chart, err := report.Chart()
	if err != nil {
		b.logger.Debug("summary chart skipped", zap.Error(err))
	} else if chart != nil {
		send.Files = []*discordgo.File{{Name: "summary.png", ContentType: "image/png", Reader: bytes.NewReader(chart)}}
		send.Embeds[0].Image = &discordgo.MessageEmbedImage{URL: "attachment://summary.png"}
	}
	_, err = b.api.ChannelMessageSendComplex(b.cfg.Channels.Staff, send)
	if err != nil {
		b.logger.Warn("daily summary post failed", zap.String("guild_id", b.cfg.GuildID), zap.Error(err))
	}
}

func (b *Bot) summaryEmbed(report analytics.Report) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(report.ByEvent))
	for _, entry := range report.Sorted() {
		lines = append(lines, fmt.Sprintf("%s: %d", entry.Event, entry.Count))
	}
	breakdown := "No moderation activity."
	if len(lines) > 0 {
		breakdown = clip(strings.Join(lines, "\n"), 1024)
	}
	return &discordgo.MessageEmbed{
		Title:       "📊 Daily moderation summary",
		Description: "Activity over the last 24 hours.",
		Color:       b.cfg.Notifications.EmbedColors.Summary,
		Timestamp:   b.now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total", Value: fmt.Sprintf("%d", report.Total), Inline: true},
			{Name: "By event", Value: breakdown, Inline: false},
		},
	}
}
