package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"megafacil/bot/common"
	"megafacil/models"
	"megafacil/service"
)

// Discord message limits
const (
	maxFieldsPerEmbed   = 25
	maxEmbedsPerMessage = 10
	maxFieldValueLen    = 1024
)

// BuildCardEmbeds renders one field per card, splitting across embeds as needed
func BuildCardEmbeds(result *service.GenerationResult) []*discordgo.MessageEmbed {
	timestamp := time.Now().Format(time.RFC3339)

	var embeds []*discordgo.MessageEmbed
	for start := 0; start < len(result.Cards) && len(embeds) < maxEmbedsPerMessage; start += maxFieldsPerEmbed {
		end := min(start+maxFieldsPerEmbed, len(result.Cards))

		embed := &discordgo.MessageEmbed{
			Color:     common.ColorPrimary,
			Timestamp: timestamp,
		}
		for _, card := range result.Cards[start:end] {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  card.ID,
				Value: cardValue(card),
			})
		}
		embeds = append(embeds, embed)
	}

	if len(embeds) == 0 {
		embeds = append(embeds, &discordgo.MessageEmbed{Color: common.ColorWarning})
	}

	embeds[0].Title = fmt.Sprintf("🎟️ %d card(s) generated", len(result.Cards))
	embeds[0].Description = fmt.Sprintf("%s\n\nBased on draws up to **#%d**, window **%d**.",
		models.CombinationExplanation, result.LastSequenceID, result.WindowSize)

	embeds[len(embeds)-1].Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Cost: %s credits · Remaining: %s credits",
			common.FormatCredits(result.Cost), common.FormatCredits(result.CreditsRemaining)),
	}

	return embeds
}

func cardValue(card models.Card) string {
	lines := make([]string, 0, len(card.Combinations))
	length := 0
	for _, combo := range card.Combinations {
		line := common.FormatCombination(combo)
		if length+len(line)+1 > maxFieldValueLen {
			lines = append(lines, "…")
			break
		}
		lines = append(lines, line)
		length += len(line) + 1
	}
	return strings.Join(lines, "\n")
}
