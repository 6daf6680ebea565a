package bot

import (
	"context"
	"testing"

	"warscope-bot/internal/analytics"
	"warscope-bot/internal/audit"
	"warscope-bot/internal/storage"

	"go.uber.org/zap"
)

func TestSummaryEmbed(t *testing.T) {
	b, _ := newTestBot(t, nil)
	report := analytics.Summarize([]storage.AuditLog{
		{Event: "mute"}, {Event: "mute"}, {Event: "purge"},
	})

	embed := b.summaryEmbed(report)
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "3" {
		t.Fatalf("unexpected fields: %+v", embed.Fields)
	}
	if embed.Fields[1].Value != "mute: 2\npurge: 1" {
		t.Fatalf("unexpected breakdown: %q", embed.Fields[1].Value)
	}

	empty := b.summaryEmbed(analytics.Summarize(nil))
	if empty.Fields[1].Value != "No moderation activity." {
		t.Fatalf("unexpected empty breakdown: %q", empty.Fields[1].Value)
	}
}

func TestSummaryDisabledWithoutStorage(t *testing.T) {
	b, _ := newTestBot(t, nil)
	b.cfg.Notifications.DailySummary = true
	if b.summaryEnabled() {
		t.Fatalf("summary needs audit storage")
	}
}

func TestAuditPostsToModLog(t *testing.T) {
	api := newFakeDiscord()
	cfg := testConfig()
	cfg.Channels.ModLog = "modlog"
	auditLogger := audit.NewLogger(nil, zap.NewNop())
	newBot(cfg, zap.NewNop(), api, auditLogger, nil)

	auditLogger.Log(context.Background(), audit.LevelWarn, testGuild, "u1", "mute", "target=u2")
	if err := auditLogger.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if len(api.sent) != 1 || api.sent[0].channelID != "modlog" {
		t.Fatalf("expected one mod log post, got %+v", api.sent)
	}
	embed := api.sent[0].data.Embeds[0]
	if embed.Fields[0].Value != "mute" || embed.Fields[2].Value != "<@u1>" {
		t.Fatalf("unexpected mod log fields: %+v", embed.Fields)
	}
}
