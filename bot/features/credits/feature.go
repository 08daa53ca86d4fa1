package credits

import (
	"github.com/bwmarrin/discordgo"

	"megafacil/service"
)

// historyLimit is how many ledger entries /credits shows
const historyLimit = 5

type Feature struct {
	accountService service.AccountService
	ledger         service.CreditLedger
	isAdmin        func(discordID int64) bool
}

func New(accountService service.AccountService, ledger service.CreditLedger, isAdmin func(discordID int64) bool) *Feature {
	return &Feature{
		accountService: accountService,
		ledger:         ledger,
		isAdmin:        isAdmin,
	}
}

// HandleBalance handles /credits
func (f *Feature) HandleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleBalance(s, i)
}

// HandleAdjust handles /addcredits
func (f *Feature) HandleAdjust(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleAdjust(s, i)
}
