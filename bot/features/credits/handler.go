package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"megafacil/bot/common"
	"megafacil/models"
)

func (f *Feature) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	user := common.InteractionUser(i)
	if user == nil {
		common.RespondWithError(s, i, "Unable to identify you. Please try again.")
		return
	}

	discordID, err := common.ParseDiscordID(user.ID)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", user.ID, err)
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	account, err := f.accountService.GetOrCreateByDiscordID(ctx, discordID, user.Username)
	if err != nil {
		log.Errorf("Error getting account for %d: %v", discordID, err)
		common.RespondWithError(s, i, "Unable to retrieve balance. Please try again.")
		return
	}

	entries, err := f.accountService.History(ctx, account.ID, historyLimit)
	if err != nil {
		log.Errorf("Error getting ledger for account %s: %v", account.ID, err)
		entries = nil
	}

	if err := common.RespondWithEmbed(s, i, BuildBalanceEmbed(account, entries), true); err != nil {
		log.Errorf("Error responding to credits command: %v", err)
	}
}

// adjustOptions holds the parsed /addcredits arguments
type adjustOptions struct {
	userID string
	amount int64
}

func parseAdjustOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) adjustOptions {
	var parsed adjustOptions
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			if id, ok := opt.Value.(string); ok {
				parsed.userID = id
			}
		case "amount":
			parsed.amount = opt.IntValue()
		}
	}
	return parsed
}

func (f *Feature) handleAdjust(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	admin := common.InteractionUser(i)
	if admin == nil {
		common.RespondWithError(s, i, "Unable to identify you. Please try again.")
		return
	}

	adminID, err := common.ParseDiscordID(admin.ID)
	if err != nil || !f.isAdmin(adminID) {
		common.RespondWithError(s, i, "You are not allowed to adjust credits.")
		return
	}

	opts := parseAdjustOptions(i.ApplicationCommandData().Options)
	if opts.amount == 0 || opts.userID == "" {
		common.RespondWithError(s, i, "Provide a user and a non-zero amount.")
		return
	}

	targetID, err := common.ParseDiscordID(opts.userID)
	if err != nil {
		common.RespondWithError(s, i, "Invalid user.")
		return
	}

	targetName := opts.userID
	if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
		if target, ok := resolved.Users[opts.userID]; ok {
			targetName = target.Username
		}
	}

	account, err := f.accountService.GetOrCreateByDiscordID(ctx, targetID, targetName)
	if err != nil {
		log.Errorf("Error getting account for %d: %v", targetID, err)
		common.RespondWithError(s, i, "Unable to load the account. Please try again.")
		return
	}

	newBalance, err := f.ledger.Adjust(ctx, account.ID, opts.amount, models.ReasonAdminAdjustment, common.ClientKey(admin.ID))
	if err != nil {
		if errors.Is(err, models.ErrInsufficientCredits) {
			common.RespondWithError(s, i, fmt.Sprintf("That would leave <@%s> with a negative balance.", opts.userID))
			return
		}
		log.Errorf("Error adjusting credits of %s: %v", account.ID, err)
		common.RespondWithError(s, i, "Adjustment failed. Please try again.")
		return
	}

	log.WithFields(log.Fields{
		"admin":      admin.ID,
		"account_id": account.ID,
		"delta":      opts.amount,
		"balance":    newBalance,
	}).Info("Admin adjusted credits")

	message := fmt.Sprintf("Adjusted <@%s> by **%s** credits. New balance: **%s** credits.",
		opts.userID, common.FormatSignedCredits(opts.amount), common.FormatCredits(newBalance))
	if err := common.RespondWithSuccess(s, i, message, true); err != nil {
		log.Errorf("Error responding to addcredits command: %v", err)
	}
}

// BuildBalanceEmbed shows the balance and the newest ledger entries
func BuildBalanceEmbed(account *models.Account, entries []*models.LedgerEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "💳 Credits",
		Color:       common.ColorPrimary,
		Description: fmt.Sprintf("Balance: **%s** credits", common.FormatCredits(account.Credits)),
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	if !account.IsActive {
		embed.Color = common.ColorDanger
		embed.Description += "\nThis account is disabled."
	}

	if len(entries) > 0 {
		var spent int64
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.ReasonCode.IsDebitReason() {
				spent -= entry.Delta
			}
			lines = append(lines, fmt.Sprintf("%s **%s** · %s → %s",
				common.FormatDiscordTimestamp(entry.CreatedAt, "R"),
				common.FormatSignedCredits(entry.Delta),
				entry.ReasonCode,
				common.FormatCredits(entry.BalanceAfter)))
		}
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:  "Recent activity",
			Value: strings.Join(lines, "\n"),
		}}
		if spent > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   "Spent on cards",
				Value:  common.FormatCredits(spent) + " credits",
				Inline: true,
			})
		}
	}

	return embed
}
