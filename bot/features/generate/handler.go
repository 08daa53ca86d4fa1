package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"megafacil/bot/common"
	"megafacil/models"
	"megafacil/service"
)

// options holds the parsed /generate arguments
type options struct {
	cards  int
	window int
	seed   string
}

func parseOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	parsed := options{cards: 1}
	for _, opt := range opts {
		switch opt.Name {
		case "cards":
			parsed.cards = int(opt.IntValue())
		case "window":
			parsed.window = int(opt.IntValue())
		case "seed":
			parsed.seed = opt.StringValue()
		}
	}
	return parsed
}

func (f *Feature) handleGenerate(s *discordgo.Session, i *discordgo.InteractionCreate) {
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

	opts := parseOptions(i.ApplicationCommandData().Options)
	if opts.cards < 1 {
		common.RespondWithError(s, i, "Cards must be at least 1.")
		return
	}

	// Scoring can take a moment on a long history
	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring generate response: %v", err)
		return
	}

	result, err := f.generationService.Generate(ctx, service.GenerationRequest{
		ResolveAccount: func(ctx context.Context) (*models.Account, error) {
			return f.accountService.GetOrCreateByDiscordID(ctx, discordID, user.Username)
		},
		ClientKey:  common.ClientKey(user.ID),
		CardCount:  opts.cards,
		WindowSize: opts.window,
		Seed:       opts.seed,
	})
	if err != nil {
		common.FollowUpWithError(s, i, errorMessage(err))
		return
	}

	if _, err := common.FollowUpWithEmbeds(s, i, BuildCardEmbeds(result), true); err != nil {
		log.Errorf("Error sending generated cards: %v", err)
	}
}

// errorMessage turns a pipeline error into a message for the user
func errorMessage(err error) string {
	var rateLimitErr *models.RateLimitError
	switch {
	case errors.As(err, &rateLimitErr):
		return fmt.Sprintf("Too many requests. Try again in %d seconds.", rateLimitErr.RetryAfterSeconds)
	case errors.Is(err, models.ErrInsufficientCredits):
		return "You do not have enough credits for that many cards. Check your balance with /credits."
	case errors.Is(err, models.ErrAccountInactive):
		return "Your account is disabled."
	case errors.Is(err, models.ErrInvalidInput):
		return "Invalid card count or window size."
	case errors.Is(err, models.ErrHistoryUnavailable):
		return "Draw history is not available right now. Please try again later."
	case errors.Is(err, models.ErrGenerationExhausted), errors.Is(err, models.ErrInsufficientGroupSize):
		return "Could not build enough unique combinations. Try fewer cards or another window."
	default:
		log.Errorf("Generation failed: %v", err)
		return "Generation failed. Please try again."
	}
}
