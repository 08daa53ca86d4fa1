package generate

import (
	"github.com/bwmarrin/discordgo"

	"megafacil/service"
)

type Feature struct {
	accountService    service.AccountService
	generationService service.GenerationService
}

func New(accountService service.AccountService, generationService service.GenerationService) *Feature {
	return &Feature{
		accountService:    accountService,
		generationService: generationService,
	}
}

func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleGenerate(s, i)
}
