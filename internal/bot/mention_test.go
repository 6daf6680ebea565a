package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func mention(userID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "msg-" + userID,
		ChannelID: testChannel,
		GuildID:   testGuild,
		Author:    &discordgo.User{ID: userID, Username: userID},
		Content:   content,
		Mentions:  []*discordgo.User{{ID: testBotID}},
	}
}

func TestMentionAnswers(t *testing.T) {
	provider := &fakeProvider{answer: "No confirmed reports."}
	b, api := newTestBot(t, provider)

	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> what happened at the border?"))

	if len(provider.calls) != 1 || provider.calls[0] != "what happened at the border?" {
		t.Fatalf("unexpected provider calls: %v", provider.calls)
	}
	if api.typing != 1 {
		t.Fatalf("expected typing indicator")
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one reply, got %d", len(api.sent))
	}
	reply := api.sent[0].data
	if reply.Reference == nil || reply.Reference.MessageID != "msg-u1" {
		t.Fatalf("expected reply to reference the mention")
	}
	if reply.AllowedMentions == nil || reply.AllowedMentions.RepliedUser || len(reply.AllowedMentions.Parse) != 0 {
		t.Fatalf("reply must not ping anyone")
	}
	if len(reply.Embeds) != 1 {
		t.Fatalf("expected an embed reply")
	}
	embed := reply.Embeds[0]
	if embed.Description != "No confirmed reports." || embed.Color != 0x2B2D31 {
		t.Fatalf("unexpected embed: %+v", embed)
	}
	if embed.Footer == nil || embed.Footer.Text == "" {
		t.Fatalf("expected footer disclaimer")
	}
}

func TestMentionEmptyQuestion(t *testing.T) {
	provider := &fakeProvider{answer: "unused"}
	b, api := newTestBot(t, provider)

	b.handleMessage(context.Background(), testBotID, mention("u1", "<@!"+testBotID+">   "))

	if len(provider.calls) != 0 {
		t.Fatalf("empty question reached the provider")
	}
	if len(api.sent) != 1 || api.sent[0].data.Content != msgEmptyQuestion {
		t.Fatalf("expected prompt for a question")
	}
	if b.gate.Len() != 0 {
		t.Fatalf("empty question must not record a cooldown")
	}
}

func TestMentionCooldown(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	b, api := newTestBot(t, provider)
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b.gate.WithClock(clock)

	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> first"))
	clock.now = clock.now.Add(5 * time.Second)
	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> second"))

	if len(provider.calls) != 1 {
		t.Fatalf("expected second mention to be throttled, calls=%v", provider.calls)
	}
	if got := api.sent[len(api.sent)-1].data.Content; got != "⏳ Please wait 15s before asking again." {
		t.Fatalf("unexpected wait notice: %q", got)
	}

	b.handleMessage(context.Background(), testBotID, mention("u2", "<@"+testBotID+"> other user"))
	if len(provider.calls) != 2 {
		t.Fatalf("other users must not share the cooldown")
	}

	clock.now = clock.now.Add(15 * time.Second)
	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> third"))
	if len(provider.calls) != 3 {
		t.Fatalf("expected mention allowed after the window")
	}
}

func TestMentionProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream 500")}
	b, api := newTestBot(t, provider)

	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> status?"))

	if len(api.sent) != 1 || api.sent[0].data.Content != msgUnavailable {
		t.Fatalf("expected unavailability notice")
	}
}

func TestMentionWithoutProvider(t *testing.T) {
	b, api := newTestBot(t, nil)
	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> status?"))

	if len(api.sent) != 1 || api.sent[0].data.Content != msgUnavailable {
		t.Fatalf("expected unavailability notice")
	}
}

func TestMentionIgnoresBotsAndIndirectMentions(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	b, api := newTestBot(t, provider)

	fromBot := mention("b2", "<@"+testBotID+"> hi")
	fromBot.Author.Bot = true
	b.handleMessage(context.Background(), testBotID, fromBot)

	everyone := mention("u1", "@everyone hi")
	everyone.Mentions = nil
	everyone.MentionEveryone = true
	b.handleMessage(context.Background(), testBotID, everyone)

	if len(provider.calls) != 0 || len(api.sent) != 0 {
		t.Fatalf("expected no reaction, calls=%d sent=%d", len(provider.calls), len(api.sent))
	}
}

func TestMentionConcurrentSameUser(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	b, _ := newTestBot(t, provider)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> any news?"))
		}()
	}
	wg.Wait()

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.calls) != 1 {
		t.Fatalf("expected one provider call inside the window, got %d", len(provider.calls))
	}
}

func TestMentionDeniedBeforeEmptyPrompt(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	b, api := newTestBot(t, provider)

	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+"> first"))
	b.handleMessage(context.Background(), testBotID, mention("u1", "<@"+testBotID+">"))

	got := api.sent[len(api.sent)-1].data.Content
	if !strings.HasPrefix(got, "⏳ Please wait") {
		t.Fatalf("expected wait notice for a throttled user, got %q", got)
	}
}
