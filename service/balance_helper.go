package service

import (
	"context"
	"fmt"

	"megafacil/events"
	"megafacil/models"
)

// RecordCreditChange appends a ledger entry and publishes the matching event.
// This is the single entry point for all credit changes in the system; the
// caller must already hold the account lock inside uow.
func RecordCreditChange(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if entry.Delta == 0 {
		return fmt.Errorf("%w: delta must not be zero", models.ErrInvalidInput)
	}
	if entry.BalanceAfter != entry.BalanceBefore+entry.Delta {
		return fmt.Errorf("%w: balance %d%+d != %d", models.ErrInvalidInput, entry.BalanceBefore, entry.Delta, entry.BalanceAfter)
	}

	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	// Flushed after the transaction commits
	uow.EventBus().Publish(events.CreditsAdjustedEvent{
		AccountID:  entry.AccountID,
		OldBalance: entry.BalanceBefore,
		NewBalance: entry.BalanceAfter,
		Delta:      entry.Delta,
		Reason:     entry.ReasonCode,
		ActorID:    entry.ActorID,
	})

	return nil
}
