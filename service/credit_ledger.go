package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"megafacil/models"
)

// creditLedger implements the CreditLedger interface
type creditLedger struct {
	uowFactory UnitOfWorkFactory
}

// NewCreditLedger creates a new credit ledger
func NewCreditLedger(uowFactory UnitOfWorkFactory) CreditLedger {
	return &creditLedger{
		uowFactory: uowFactory,
	}
}

// Adjust locks the account, applies delta and appends one ledger entry in a single
// unit of work. Nothing is written when any step fails.
func (l *creditLedger) Adjust(ctx context.Context, accountID string, delta int64, reason models.ReasonCode, actorID string) (int64, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: delta must not be zero", models.ErrInvalidInput)
	}

	uow := l.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetForUpdate(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return 0, fmt.Errorf("account %s: %w", accountID, models.ErrAccountNotFound)
	}

	newBalance := account.CalculateNewBalance(delta)
	if newBalance < 0 {
		return 0, fmt.Errorf("%w: have %d, change %d", models.ErrInsufficientCredits, account.Credits, delta)
	}

	if err := uow.AccountRepository().UpdateCredits(ctx, accountID, newBalance); err != nil {
		return 0, fmt.Errorf("failed to update credits: %w", err)
	}

	entry := &models.LedgerEntry{
		AccountID:     accountID,
		Delta:         delta,
		BalanceBefore: account.Credits,
		BalanceAfter:  newBalance,
		ReasonCode:    reason,
		ActorID:       actorID,
	}
	if err := RecordCreditChange(ctx, uow, entry); err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"account_id":  accountID,
		"delta":       delta,
		"new_balance": newBalance,
		"reason":      reason,
		"actor_id":    actorID,
	}).Debug("Adjusted credits")

	return newBalance, nil
}
