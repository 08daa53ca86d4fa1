package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var (
	minCards  = 1.0
	minWindow = 1.0
)

// applicationCommands returns every slash command the bot serves
func applicationCommands() []*discordgo.ApplicationCommand {
	adminPermission := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "generate",
			Description: "Generate lottery cards from the latest draw statistics",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "cards",
					Description: "Number of cards to generate",
					Required:    true,
					MinValue:    &minCards,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "window",
					Description: "Number of recent draws weighted as recent (defaults to the server setting)",
					Required:    false,
					MinValue:    &minWindow,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "seed",
					Description: "Seed for reproducible cards",
					Required:    false,
				},
			},
		},
		{
			Name:        "credits",
			Description: "Check your credit balance and recent activity",
		},
		{
			Name:                     "addcredits",
			Description:              "Adjust a player's credits (admins only)",
			DefaultMemberPermissions: &adminPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Player whose credits change",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Credits to add, negative to remove",
					Required:    true,
				},
			},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	for _, cmd := range applicationCommands() {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
		b.commands = append(b.commands, created)
	}

	return nil
}
