package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const reportMessageAction = "Report message"

func (b *Bot) commandDefinitions() []*discordgo.ApplicationCommand {
	minAmount := float64(b.cfg.Purge.Min)
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Test if the bot is online",
		},
		{
			Name:        "bn",
			Description: "Send a breaking news announcement",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Breaking news content",
					Required:    true,
				},
			},
		},
		{
			Name:        "report",
			Description: "Report a user with message",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to report",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Reason or message",
					Required:    true,
				},
			},
		},
		{
			Name:        "mute",
			Description: "Mute a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to mute",
					Required:    true,
				},
			},
		},
		{
			Name:        "unmute",
			Description: "Unmute a user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to unmute",
					Required:    true,
				},
			},
		},
		{
			Name:        "purge",
			Description: "Delete messages in the channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of messages to delete",
					Required:    true,
					MinValue:    &minAmount,
					MaxValue:    float64(b.cfg.Purge.Max),
				},
			},
		},
		{
			Name:        "factcheck",
			Description: "Send verification request to Fact Checkers",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "claim",
					Description: "Claim or link to verify",
					Required:    false,
				},
			},
		},
		{
			Name: reportMessageAction,
			Type: discordgo.MessageApplicationCommand,
		},
	}
}

// registerCommands brings the registered set in line with commandDefinitions:
// existing names are edited, missing ones created, stale ones deleted. An
// empty guildID registers globally.
func (b *Bot) registerCommands(appID, guildID string) error {
	if appID == "" {
		return errors.New("application id unknown")
	}
	commands := b.commandDefinitions()

	existing, err := b.api.ApplicationCommands(appID, guildID)
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.api.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.api.ApplicationCommandEdit(appID, guildID, current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.api.ApplicationCommandCreate(appID, guildID, cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.api.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			b.logger.Warn("stale command delete failed", zap.String("command", cmd.Name), zap.String("guild_id", guildID), zap.Error(err))
		}
	}
	return nil
}
