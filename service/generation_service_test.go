package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"megafacil/events"
	"megafacil/history/testutil"
	"megafacil/models"
	"megafacil/ratelimit"
	"megafacil/repository/memstore"
	"megafacil/service"
)

type staticHistory struct {
	draws []models.Draw
	err   error
}

func (h *staticHistory) Load(_ context.Context) ([]models.Draw, error) {
	return h.draws, h.err
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func testGenerationConfig() service.GenerationConfig {
	return service.GenerationConfig{
		DefaultWindowSize:   50,
		MaxWindowSize:       500,
		CombinationsPerCard: 3,
		CreditsPerCard:      1,
		MaxCardsPerRequest:  50,
	}
}

type pipeline struct {
	generation service.GenerationService
	accounts   service.AccountService
	emitter    *recordingEmitter
	history    *staticHistory
}

func newPipeline(t *testing.T, maxRequests int) *pipeline {
	t.Helper()
	store := memstore.New(nil)
	limiter, err := ratelimit.NewSlidingWindow(maxRequests, time.Minute)
	require.NoError(t, err)

	p := &pipeline{
		accounts: service.NewAccountService(store),
		emitter:  &recordingEmitter{},
		history:  &staticHistory{draws: testutil.GenerateDraws(500, 11)},
	}
	p.generation = service.NewGenerationService(
		testGenerationConfig(),
		store,
		service.NewCreditLedger(store),
		p.history,
		limiter,
		p.emitter,
	)
	return p
}

func TestGenerate_DebitsAfterSuccess(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)

	account, err := p.accounts.Create(ctx, "player", 5, nil)
	require.NoError(t, err)

	result, err := p.generation.Generate(ctx, service.GenerationRequest{
		AccountID: account.ID,
		ClientKey: "10.0.0.1",
		CardCount: 2,
		Seed:      "test",
	})
	require.NoError(t, err)

	require.Len(t, result.Cards, 2)
	for _, card := range result.Cards {
		assert.Len(t, card.Combinations, 3)
	}
	assert.Equal(t, int64(2), result.Cost)
	assert.Equal(t, int64(3), result.CreditsRemaining)
	assert.Equal(t, int64(500), result.LastSequenceID)
	assert.Equal(t, 50, result.WindowSize)

	entries, err := p.accounts.History(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(-2), entries[0].Delta)
	assert.Equal(t, models.ReasonCardGeneration, entries[0].ReasonCode)
	assert.Equal(t, account.ID, entries[0].ActorID)

	generated := p.emitter.ofType(events.EventTypeCardsGenerated)
	require.Len(t, generated, 1)
	assert.Equal(t, 2, generated[0].(events.CardsGeneratedEvent).CardCount)
}

func TestGenerate_SeededRequestsAreReproducible(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)

	account, err := p.accounts.Create(ctx, "seeded", 10, nil)
	require.NoError(t, err)

	req := service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 2, WindowSize: 30, Seed: "abc"}
	first, err := p.generation.Generate(ctx, req)
	require.NoError(t, err)
	second, err := p.generation.Generate(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.Cards, second.Cards)
	assert.Equal(t, 30, first.WindowSize)
}

func TestGenerate_RateLimitedDoesNotCharge(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 1)

	account, err := p.accounts.Create(ctx, "limited", 10, nil)
	require.NoError(t, err)

	req := service.GenerationRequest{AccountID: account.ID, ClientKey: "same-ip", CardCount: 1}
	_, err = p.generation.Generate(ctx, req)
	require.NoError(t, err)

	_, err = p.generation.Generate(ctx, req)
	require.Error(t, err)

	var rateErr *models.RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.GreaterOrEqual(t, rateErr.RetryAfterSeconds, 1)
	assert.True(t, errors.Is(err, models.ErrRateLimited))

	after, err := p.accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), after.Credits)

	assert.Len(t, p.emitter.ofType(events.EventTypeRequestRateLimited), 1)
	failed := p.emitter.ofType(events.EventTypeGenerationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "rate_limited", failed[0].(events.GenerationFailedEvent).Reason)
}

func TestGenerate_InsufficientCreditsRefusedEarly(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)

	account, err := p.accounts.Create(ctx, "broke", 1, nil)
	require.NoError(t, err)

	_, err = p.generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 3})
	assert.True(t, errors.Is(err, models.ErrInsufficientCredits))

	after, err := p.accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.Credits)
}

func TestGenerate_InactiveAndMissingAccounts(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)

	account, err := p.accounts.Create(ctx, "inactive", 10, nil)
	require.NoError(t, err)
	require.NoError(t, p.accounts.SetActive(ctx, account.ID, false))

	_, err = p.generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "a", CardCount: 1})
	assert.True(t, errors.Is(err, models.ErrAccountInactive))

	_, err = p.generation.Generate(ctx, service.GenerationRequest{AccountID: "nobody", ClientKey: "b", CardCount: 1})
	assert.True(t, errors.Is(err, models.ErrAccountNotFound))
}

func TestGenerate_InvalidInput(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)

	account, err := p.accounts.Create(ctx, "validator", 100, nil)
	require.NoError(t, err)

	for _, req := range []service.GenerationRequest{
		{AccountID: account.ID, ClientKey: "k", CardCount: 0},
		{AccountID: account.ID, ClientKey: "k", CardCount: 51},
		{AccountID: account.ID, ClientKey: "k", CardCount: 1, WindowSize: -1},
		{AccountID: account.ID, ClientKey: "k", CardCount: 1, WindowSize: 501},
	} {
		_, err := p.generation.Generate(ctx, req)
		assert.True(t, errors.Is(err, models.ErrInvalidInput), "request %+v", req)
	}

	_, err = p.generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 1, WindowSize: 501})
	assert.ErrorContains(t, err, "or 0 for the default")

	_, err = p.generation.Generate(ctx, service.GenerationRequest{ClientKey: "k", CardCount: 1})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	after, err := p.accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), after.Credits)
}

func TestGenerate_EmptyHistoryDoesNotCharge(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 10)
	p.history.draws = nil

	account, err := p.accounts.Create(ctx, "early", 10, nil)
	require.NoError(t, err)

	_, err = p.generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 1})
	assert.True(t, errors.Is(err, models.ErrHistoryUnavailable))

	after, err := p.accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), after.Credits)
}

func TestGenerate_LedgerNeverCalledWhenGenerationFails(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	accounts := service.NewAccountService(store)
	account, err := accounts.Create(ctx, "mocked", 10, nil)
	require.NoError(t, err)

	ledger := new(service.MockCreditLedger)
	limiter := new(service.MockLimiter)
	historyProvider := new(service.MockHistoryProvider)
	emitter := new(service.MockEventEmitter)

	limiter.On("Allow", ctx, "k").Return(ratelimit.Decision{Allowed: true}, nil)
	historyProvider.On("Load", ctx).Return(nil, models.ErrHistoryUnavailable)
	emitter.On("Emit", ctx, mock.AnythingOfType("events.GenerationFailedEvent")).Return()

	generation := service.NewGenerationService(testGenerationConfig(), store, ledger, historyProvider, limiter, emitter)
	_, err = generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 1})

	require.Error(t, err)
	ledger.AssertNotCalled(t, "Adjust", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	emitter.AssertExpectations(t)
}

func TestGenerate_FailedDebitIsReported(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(nil)
	accounts := service.NewAccountService(store)
	account, err := accounts.Create(ctx, "racing", 10, nil)
	require.NoError(t, err)

	ledger := new(service.MockCreditLedger)
	ledger.On("Adjust", ctx, account.ID, int64(-1), models.ReasonCardGeneration, account.ID).
		Return(int64(0), models.ErrInsufficientCredits).Once()

	limiter, err := ratelimit.NewSlidingWindow(10, time.Minute)
	require.NoError(t, err)

	generation := service.NewGenerationService(testGenerationConfig(), store, ledger,
		&staticHistory{draws: testutil.GenerateDraws(100, 5)}, limiter, &recordingEmitter{})

	_, err = generation.Generate(ctx, service.GenerationRequest{AccountID: account.ID, ClientKey: "k", CardCount: 1})
	assert.True(t, errors.Is(err, models.ErrInsufficientCredits))
	ledger.AssertNumberOfCalls(t, "Adjust", 1)
}

func TestFailureReason(t *testing.T) {
	assert.Equal(t, "rate_limited", service.FailureReason(&models.RateLimitError{RetryAfterSeconds: 2}))
	assert.Equal(t, "generation_exhausted", service.FailureReason(models.ErrGenerationExhausted))
	assert.Equal(t, "internal", service.FailureReason(errors.New("boom")))
}

func TestGenerate_ResolvesAccountAfterRateLimit(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t, 1)

	account, err := p.accounts.Create(ctx, "lazy", 10, nil)
	require.NoError(t, err)

	var resolved int
	req := service.GenerationRequest{
		ResolveAccount: func(context.Context) (*models.Account, error) {
			resolved++
			return account, nil
		},
		ClientKey: "discord:1",
		CardCount: 1,
	}

	result, err := p.generation.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.CreditsRemaining)
	assert.Equal(t, 1, resolved)

	_, err = p.generation.Generate(ctx, req)
	assert.True(t, errors.Is(err, models.ErrRateLimited))
	assert.Equal(t, 1, resolved, "throttled requests must not touch accounts")

	generated := p.emitter.ofType(events.EventTypeCardsGenerated)
	require.Len(t, generated, 1)
	assert.Equal(t, account.ID, generated[0].(events.CardsGeneratedEvent).AccountID)
}
