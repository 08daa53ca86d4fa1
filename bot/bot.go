package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"megafacil/bot/features/credits"
	"megafacil/bot/features/generate"
	"megafacil/service"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string // Commands register globally when empty
	IsAdmin func(discordID int64) bool
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	commands []*discordgo.ApplicationCommand

	generateFeature *generate.Feature
	creditsFeature  *credits.Feature
}

func New(config Config, accountService service.AccountService, generationService service.GenerationService, ledger service.CreditLedger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	isAdmin := config.IsAdmin
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}

	bot := &Bot{
		config:          config,
		session:         dg,
		generateFeature: generate.New(accountService, generationService),
		creditsFeature:  credits.New(accountService, ledger, isAdmin),
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	log.WithFields(log.Fields{
		"user":     dg.State.User.Username,
		"guild_id": config.GuildID,
		"commands": len(bot.commands),
	}).Info("Discord bot connected")

	return bot, nil
}

// Close removes guild commands and closes the session
func (b *Bot) Close() error {
	if b.config.GuildID != "" {
		for _, cmd := range b.commands {
			if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.config.GuildID, cmd.ID); err != nil {
				log.Warnf("Failed to delete command %s: %v", cmd.Name, err)
			}
		}
	}
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "generate":
		b.generateFeature.HandleCommand(s, i)
	case "credits":
		b.creditsFeature.HandleBalance(s, i)
	case "addcredits":
		b.creditsFeature.HandleAdjust(s, i)
	}
}
