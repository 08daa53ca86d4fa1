package testutil

import (
	"fmt"
	"time"

	"megafacil/models"
)

// CreateTestAccount creates an active test account with default values
func CreateTestAccount(username string) *models.Account {
	now := time.Now()
	return &models.Account{
		Username:  username,
		Credits:   100,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestAccountWithCredits creates a test account with a specific balance
func CreateTestAccountWithCredits(username string, credits int64) *models.Account {
	account := CreateTestAccount(username)
	account.Credits = credits
	return account
}

// CreateTestDiscordAccount creates a test account linked to a Discord user
func CreateTestDiscordAccount(discordID int64) *models.Account {
	account := CreateTestAccount(fmt.Sprintf("discord-%d", discordID))
	account.DiscordID = &discordID
	return account
}

// CreateTestLedgerEntry creates a ledger entry moving an account from before by delta
func CreateTestLedgerEntry(accountID string, before, delta int64, reason models.ReasonCode) *models.LedgerEntry {
	return &models.LedgerEntry{
		AccountID:     accountID,
		Delta:         delta,
		BalanceBefore: before,
		BalanceAfter:  before + delta,
		ReasonCode:    reason,
		ActorID:       "test",
		Metadata: map[string]any{
			"test": true,
		},
	}
}
