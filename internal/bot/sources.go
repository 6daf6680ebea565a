package bot

import (
	"fmt"
	"strings"

	"warscope-bot/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// annotateSources looks up when each source domain was registered and edits
// the posted fact-check embed with the dates found. Freshly registered
// domains are a common sign of fabricated outlets.
func (b *Bot) annotateSources(channelID, messageID string, embed *discordgo.MessageEmbed, links []string) {
	registered := make([]string, len(links))

	var g errgroup.Group
	g.SetLimit(maxFactCheckSources)
	for i, link := range links {
		_, host, err := utils.NormalizeURL(link)
		if err != nil || host == "" {
			continue
		}
		i := i
		g.Go(func() error {
			created, err := b.lookupDomain(host)
			if err != nil {
				b.logger.Debug("source lookup failed", zap.String("host", host), zap.Error(err))
				return nil
			}
			registered[i] = created
			return nil
		})
	}
	_ = g.Wait()

	found := false
	lines := make([]string, 0, len(links))
	for i, link := range links {
		if registered[i] == "" {
			lines = append(lines, link)
			continue
		}
		found = true
		lines = append(lines, fmt.Sprintf("%s (registered %s)", link, registered[i]))
	}
	if !found {
		return
	}

	edited := *embed
	edited.Fields = []*discordgo.MessageEmbedField{{Name: "Sources", Value: clip(strings.Join(lines, "\n"), 1024)}}
	if _, err := b.api.ChannelMessageEditEmbed(channelID, messageID, &edited); err != nil {
		b.logger.Warn("fact check edit failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}
