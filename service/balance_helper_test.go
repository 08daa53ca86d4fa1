package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"megafacil/events"
	"megafacil/models"
)

func TestRecordCreditChange_AppendsAndPublishes(t *testing.T) {
	ctx := context.Background()
	m := newLedgerMocks(ctx)

	entry := &models.LedgerEntry{
		AccountID:     "acc-1",
		Delta:         4,
		BalanceBefore: 1,
		BalanceAfter:  5,
		ReasonCode:    models.ReasonManualAdjustment,
		ActorID:       "ops",
	}
	m.ledger.On("Append", ctx, entry).Return(nil)
	m.publisher.On("Publish", events.CreditsAdjustedEvent{
		AccountID:  "acc-1",
		OldBalance: 1,
		NewBalance: 5,
		Delta:      4,
		Reason:     models.ReasonManualAdjustment,
		ActorID:    "ops",
	}).Return()

	require.NoError(t, RecordCreditChange(ctx, m.uow, entry))
	m.ledger.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func TestRecordCreditChange_RejectsInconsistentEntries(t *testing.T) {
	ctx := context.Background()
	m := newLedgerMocks(ctx)

	for _, entry := range []*models.LedgerEntry{
		{AccountID: "acc-1", Delta: 0, BalanceBefore: 3, BalanceAfter: 3},
		{AccountID: "acc-1", Delta: 2, BalanceBefore: 3, BalanceAfter: 4},
	} {
		err := RecordCreditChange(ctx, m.uow, entry)
		assert.True(t, errors.Is(err, models.ErrInvalidInput))
	}

	m.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestRecordCreditChange_AppendFailureSkipsEvent(t *testing.T) {
	ctx := context.Background()
	m := newLedgerMocks(ctx)

	m.ledger.On("Append", ctx, mock.Anything).Return(errors.New("constraint violation"))

	err := RecordCreditChange(ctx, m.uow, &models.LedgerEntry{AccountID: "acc-1", Delta: 1, BalanceAfter: 1})
	require.Error(t, err)
	m.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}
