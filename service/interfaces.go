package service

import (
	"context"

	"megafacil/events"
	"megafacil/models"
)

// AccountRepository defines the interface for account data access.
// Lookups return (nil, nil) when no account matches.
type AccountRepository interface {
	// GetByID retrieves an account by id
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// GetByUsername retrieves an account by its unique username
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// GetByDiscordID retrieves the account linked to a Discord user
	GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error)

	// GetForUpdate retrieves an account and holds an exclusive lock on it until the unit of work ends
	GetForUpdate(ctx context.Context, id string) (*models.Account, error)

	// Create inserts a new account, filling its id and timestamps
	Create(ctx context.Context, account *models.Account) error

	// UpdateCredits overwrites the stored balance
	UpdateCredits(ctx context.Context, id string, credits int64) error

	// SetActive enables or disables an account
	SetActive(ctx context.Context, id string, active bool) error
}

// LedgerRepository defines the interface for the append-only credit ledger
type LedgerRepository interface {
	// Append records a new entry, filling its id and creation time
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// ListByAccount returns the newest entries of an account first
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error)
}

// EventPublisher defines the interface for publishing events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// EventEmitter delivers events immediately, outside any unit of work
type EventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction; a no-op after Commit
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository

	// EventBus returns the transactional event bus for this unit of work
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// CreditLedger adjusts balances and records every change
type CreditLedger interface {
	// Adjust applies a signed delta and returns the new balance
	Adjust(ctx context.Context, accountID string, delta int64, reason models.ReasonCode, actorID string) (int64, error)
}

// AccountService defines account lifecycle operations
type AccountService interface {
	// Create creates an account, recording any initial credits in the ledger
	Create(ctx context.Context, username string, initialCredits int64, discordID *int64) (*models.Account, error)

	// GetOrCreateByDiscordID returns the account of a Discord user, creating an empty one on first use
	GetOrCreateByDiscordID(ctx context.Context, discordID int64, username string) (*models.Account, error)

	// Get returns an account by id
	Get(ctx context.Context, id string) (*models.Account, error)

	// Resolve finds an account by id or, failing that, by username
	Resolve(ctx context.Context, idOrUsername string) (*models.Account, error)

	// SetActive enables or disables an account
	SetActive(ctx context.Context, id string, active bool) error

	// History returns the newest ledger entries of an account
	History(ctx context.Context, accountID string, limit int) ([]*models.LedgerEntry, error)
}

// GenerationService runs the full card generation pipeline
type GenerationService interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
