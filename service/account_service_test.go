package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/events"
	"megafacil/models"
	"megafacil/repository/memstore"
	"megafacil/service"
)

func TestAccountService_CreateRecordsInitialCredits(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	created := make(chan events.AccountCreatedEvent, 1)
	bus.Subscribe(events.EventTypeAccountCreated, func(ctx context.Context, e events.Event) {
		created <- e.(events.AccountCreatedEvent)
	})

	accounts := service.NewAccountService(memstore.New(bus))

	account, err := accounts.Create(ctx, "  alice  ", 25, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, int64(25), account.Credits)
	assert.True(t, account.IsActive)
	assert.NotEmpty(t, account.ID)

	entries, err := accounts.History(ctx, account.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ReasonInitial, entries[0].ReasonCode)
	assert.Equal(t, int64(25), entries[0].BalanceAfter)

	ev := <-created
	assert.Equal(t, account.ID, ev.AccountID)
}

func TestAccountService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	accounts := service.NewAccountService(memstore.New(nil))

	_, err := accounts.Create(ctx, " ", 0, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = accounts.Create(ctx, "neg", -1, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	_, err = accounts.Create(ctx, "dup", 0, nil)
	require.NoError(t, err)
	_, err = accounts.Create(ctx, "dup", 0, nil)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestAccountService_CreateWithoutCreditsWritesNoLedgerEntry(t *testing.T) {
	ctx := context.Background()
	accounts := service.NewAccountService(memstore.New(nil))

	account, err := accounts.Create(ctx, "empty", 0, nil)
	require.NoError(t, err)

	entries, err := accounts.History(ctx, account.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAccountService_GetOrCreateByDiscordID(t *testing.T) {
	ctx := context.Background()
	accounts := service.NewAccountService(memstore.New(nil))

	first, err := accounts.GetOrCreateByDiscordID(ctx, 4242, "discorduser")
	require.NoError(t, err)
	require.NotNil(t, first.DiscordID)
	assert.Equal(t, int64(4242), *first.DiscordID)
	assert.Equal(t, "discorduser#4242", first.Username)
	assert.Equal(t, int64(0), first.Credits)

	second, err := accounts.GetOrCreateByDiscordID(ctx, 4242, "renamed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAccountService_Resolve(t *testing.T) {
	ctx := context.Background()
	accounts := service.NewAccountService(memstore.New(nil))

	account, err := accounts.Create(ctx, "bob", 0, nil)
	require.NoError(t, err)

	byID, err := accounts.Resolve(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", byID.Username)

	byName, err := accounts.Resolve(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byName.ID)

	_, err = accounts.Resolve(ctx, "carol")
	assert.True(t, errors.Is(err, models.ErrAccountNotFound))

	_, err = accounts.Get(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrAccountNotFound))
}

func TestAccountService_GetOrCreateByDiscordIDConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()
	accounts := service.NewAccountService(memstore.New(nil))

	const workers = 10
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			account, err := accounts.GetOrCreateByDiscordID(ctx, 777, "racer")
			errs[n] = err
			if err == nil {
				ids[n] = account.ID
			}
		}(n)
	}
	wg.Wait()

	for n := 0; n < workers; n++ {
		require.NoError(t, errs[n])
		assert.Equal(t, ids[0], ids[n])
	}
}
