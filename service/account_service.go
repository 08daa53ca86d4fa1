package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"megafacil/events"
	"megafacil/models"
)

// DefaultHistoryLimit caps ledger listings when the caller passes no limit
const DefaultHistoryLimit = 20

// accountService implements the AccountService interface
type accountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory) AccountService {
	return &accountService{
		uowFactory: uowFactory,
	}
}

// Create creates an active account. Initial credits go through the ledger as an
// initial entry in the same transaction.
func (s *accountService) Create(ctx context.Context, username string, initialCredits int64, discordID *int64) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", models.ErrInvalidInput)
	}
	if initialCredits < 0 {
		return nil, fmt.Errorf("%w: initial credits cannot be negative", models.ErrInvalidInput)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := s.createInUnit(ctx, uow, username, initialCredits, discordID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

func (s *accountService) createInUnit(ctx context.Context, uow UnitOfWork, username string, initialCredits int64, discordID *int64) (*models.Account, error) {
	existing, err := uow.AccountRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username %q: %w", models.ErrInvalidInput, username, models.ErrAccountExists)
	}

	account := &models.Account{
		Username:  username,
		DiscordID: discordID,
		Credits:   initialCredits,
		IsActive:  true,
	}
	if err := uow.AccountRepository().Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if initialCredits > 0 {
		entry := &models.LedgerEntry{
			AccountID:     account.ID,
			Delta:         initialCredits,
			BalanceBefore: 0,
			BalanceAfter:  initialCredits,
			ReasonCode:    models.ReasonInitial,
			ActorID:       "system",
			Metadata: map[string]any{
				"username": username,
			},
		}
		if err := RecordCreditChange(ctx, uow, entry); err != nil {
			return nil, fmt.Errorf("failed to record initial credits: %w", err)
		}
	}

	uow.EventBus().Publish(events.AccountCreatedEvent{
		AccountID:      account.ID,
		Username:       username,
		DiscordID:      discordID,
		InitialCredits: initialCredits,
	})

	return account, nil
}

// GetOrCreateByDiscordID retrieves the account of a Discord user or creates an empty one.
// When a concurrent request creates the account first, the winner's account is returned.
func (s *accountService) GetOrCreateByDiscordID(ctx context.Context, discordID int64, username string) (*models.Account, error) {
	account, err := s.getOrCreateByDiscordID(ctx, discordID, username)
	if !errors.Is(err, models.ErrAccountExists) {
		return account, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err = uow.AccountRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		// The conflict was on the username, not the Discord ID
		return nil, fmt.Errorf("failed to create account for %d: %w", discordID, models.ErrAccountExists)
	}
	return account, nil
}

func (s *accountService) getOrCreateByDiscordID(ctx context.Context, discordID int64, username string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	// username#discordID keeps account names unique
	name := fmt.Sprintf("%s#%d", username, discordID)
	account, err = s.createInUnit(ctx, uow, name, 0, &discordID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

// Get returns an account by id
func (s *accountService) Get(ctx context.Context, id string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", id, models.ErrAccountNotFound)
	}
	return account, nil
}

// Resolve finds an account by id first, then by username
func (s *accountService) Resolve(ctx context.Context, idOrUsername string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, idOrUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		account, err = uow.AccountRepository().GetByUsername(ctx, idOrUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
	}
	if account == nil {
		return nil, fmt.Errorf("account %q: %w", idOrUsername, models.ErrAccountNotFound)
	}
	return account, nil
}

// SetActive enables or disables an account
func (s *accountService) SetActive(ctx context.Context, id string, active bool) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	if err := uow.AccountRepository().SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// History returns the newest ledger entries of an account
func (s *accountService) History(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.LedgerRepository().ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
