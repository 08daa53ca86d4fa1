package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"megafacil/events"
	"megafacil/generator"
	"megafacil/history"
	"megafacil/models"
	"megafacil/ratelimit"
	"megafacil/scoring"
)

// GenerationConfig holds the limits and prices of the generation pipeline
type GenerationConfig struct {
	DefaultWindowSize   int
	MaxWindowSize       int
	CombinationsPerCard int
	CreditsPerCard      int64
	MaxCardsPerRequest  int
	DefaultSeed         string // used when a request carries no seed; empty means entropy
}

// GenerationRequest is one caller's request for cards
type GenerationRequest struct {
	AccountID string
	// ResolveAccount looks up AccountID after the rate limit admits the request.
	// Used when AccountID is empty.
	ResolveAccount func(ctx context.Context) (*models.Account, error)
	ClientKey      string // rate limit key, e.g. "discord:<user id>" or a network address
	CardCount      int
	WindowSize     int    // 0 selects the configured default
	Seed           string // optional; a seeded request is reproducible
}

// GenerationResult is returned once cards are generated and paid for
type GenerationResult struct {
	Cards               []models.Card `json:"cards"`
	CreditsRemaining    int64         `json:"credits_remaining"`
	Cost                int64         `json:"cost"`
	LastSequenceID      int64         `json:"last_sequence_id"`
	WindowSize          int           `json:"window_size"`
	CombinationsPerCard int           `json:"combinations_per_card"`
}

// generationService implements the GenerationService interface
type generationService struct {
	config     GenerationConfig
	uowFactory UnitOfWorkFactory
	ledger     CreditLedger
	history    history.Provider
	limiter    ratelimit.Limiter
	emitter    EventEmitter
	now        func() time.Time
}

// NewGenerationService creates a new generation service
func NewGenerationService(
	config GenerationConfig,
	uowFactory UnitOfWorkFactory,
	ledger CreditLedger,
	historyProvider history.Provider,
	limiter ratelimit.Limiter,
	emitter EventEmitter,
) GenerationService {
	return &generationService{
		config:     config,
		uowFactory: uowFactory,
		ledger:     ledger,
		history:    historyProvider,
		limiter:    limiter,
		emitter:    emitter,
		now:        time.Now,
	}
}

// Generate runs rate limit, scoring, generation and debit in that order.
// Any failure before the debit leaves the account untouched.
func (s *generationService) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	start := s.now()

	result, err := s.generate(ctx, &req)
	if err != nil {
		s.emitter.Emit(ctx, events.GenerationFailedEvent{
			AccountID: req.AccountID,
			ClientKey: req.ClientKey,
			Reason:    FailureReason(err),
			Duration:  s.now().Sub(start),
		})
		return nil, err
	}

	s.emitter.Emit(ctx, events.CardsGeneratedEvent{
		AccountID:           req.AccountID,
		ClientKey:           req.ClientKey,
		CardCount:           len(result.Cards),
		CombinationsPerCard: result.CombinationsPerCard,
		WindowSize:          result.WindowSize,
		Cost:                result.Cost,
		LastSequenceID:      result.LastSequenceID,
		Duration:            s.now().Sub(start),
	})

	log.WithFields(log.Fields{
		"client_key":            req.ClientKey,
		"account_id":            req.AccountID,
		"cards":                 len(result.Cards),
		"combinations_per_card": result.CombinationsPerCard,
		"window_size":           result.WindowSize,
		"last_sequence_id":      result.LastSequenceID,
		"credits_remaining":     result.CreditsRemaining,
	}).Info("Generated cards")

	return result, nil
}

func (s *generationService) generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	windowSize, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	decision, err := s.limiter.Allow(ctx, req.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !decision.Allowed {
		s.emitter.Emit(ctx, events.RequestRateLimitedEvent{
			ClientKey:         req.ClientKey,
			RetryAfterSeconds: decision.RetryAfterSeconds,
		})
		return nil, &models.RateLimitError{RetryAfterSeconds: decision.RetryAfterSeconds}
	}

	if req.AccountID == "" {
		account, err := req.ResolveAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve account: %w", err)
		}
		req.AccountID = account.ID
	}

	cost := int64(req.CardCount) * s.config.CreditsPerCard
	if err := s.checkAccount(ctx, req.AccountID, cost); err != nil {
		return nil, err
	}

	draws, err := s.history.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(draws) == 0 {
		return nil, fmt.Errorf("%w: history is empty", models.ErrHistoryUnavailable)
	}

	scored, err := scoring.ComputeScores(draws, windowSize)
	if err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == "" {
		seed = s.config.DefaultSeed
	}

	cards, err := generator.GenerateCards(scored.Scores, scored.Groups, generator.NewRNG(seed), req.CardCount, s.config.CombinationsPerCard)
	if err != nil {
		return nil, err
	}

	remaining, err := s.ledger.Adjust(ctx, req.AccountID, -cost, models.ReasonCardGeneration, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	return &GenerationResult{
		Cards:               cards,
		CreditsRemaining:    remaining,
		Cost:                cost,
		LastSequenceID:      history.LastSequenceID(draws),
		WindowSize:          windowSize,
		CombinationsPerCard: s.config.CombinationsPerCard,
	}, nil
}

// validate checks counts and resolves the window size to use
func (s *generationService) validate(req *GenerationRequest) (int, error) {
	if req.CardCount < 1 || req.CardCount > s.config.MaxCardsPerRequest {
		return 0, fmt.Errorf("%w: card count must be between 1 and %d", models.ErrInvalidInput, s.config.MaxCardsPerRequest)
	}
	if req.WindowSize < 0 || req.WindowSize > s.config.MaxWindowSize {
		return 0, fmt.Errorf("%w: window size must be between 1 and %d, or 0 for the default", models.ErrInvalidInput, s.config.MaxWindowSize)
	}
	if req.AccountID == "" && req.ResolveAccount == nil {
		return 0, fmt.Errorf("%w: account is required", models.ErrInvalidInput)
	}

	if req.WindowSize == 0 {
		return s.config.DefaultWindowSize, nil
	}
	return req.WindowSize, nil
}

// checkAccount refuses early when the account cannot pay; the ledger re-checks under lock
func (s *generationService) checkAccount(ctx context.Context, accountID string, cost int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("account %s: %w", accountID, models.ErrAccountNotFound)
	}
	if !account.IsActive {
		return fmt.Errorf("account %s: %w", accountID, models.ErrAccountInactive)
	}
	if !account.CanAfford(cost) {
		return fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientCredits, account.Credits, cost)
	}
	return nil
}

// FailureReason classifies a pipeline error into a short label
func FailureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, models.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, models.ErrAccountInactive):
		return "account_inactive"
	case errors.Is(err, models.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, models.ErrHistoryUnavailable):
		return "history_unavailable"
	case errors.Is(err, models.ErrInsufficientGroupSize):
		return "insufficient_group_size"
	case errors.Is(err, models.ErrGenerationExhausted):
		return "generation_exhausted"
	default:
		return "internal"
	}
}
