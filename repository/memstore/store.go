// Package memstore is an in-process implementation of the unit-of-work
// contract. Account locks taken by GetForUpdate are held until Commit or
// Rollback, and writes become visible to other units only on Commit.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"megafacil/events"
	"megafacil/models"
	"megafacil/service"
)

// Store holds committed state and acts as the UnitOfWorkFactory
type Store struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	ledger       []*models.LedgerEntry
	nextLedgerID int64
	rowLocks     map[string]chan struct{}

	eventBus *events.Bus
	now      func() time.Time
}

// New creates an empty store publishing committed events on eventBus
func New(eventBus *events.Bus) *Store {
	if eventBus == nil {
		eventBus = events.NewBus()
	}
	return &Store{
		accounts: make(map[string]*models.Account),
		rowLocks: make(map[string]chan struct{}),
		eventBus: eventBus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create returns a new unit of work
func (s *Store) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            s,
		transactionalBus: events.NewTransactionalBus(s.eventBus),
	}
}

// rowLock returns the exclusive lock of an account, creating it on first use
func (s *Store) rowLock(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.rowLocks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		s.rowLocks[id] = lock
	}
	return lock
}

// committedAccount returns a copy of the committed account, or nil
func (s *Store) committedAccount(match func(*models.Account) bool) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if match(a) {
			copied := *a
			return &copied
		}
	}
	return nil
}

type unitOfWork struct {
	store            *Store
	transactionalBus *events.TransactionalBus

	started  bool
	held     map[string]chan struct{}
	staged   map[string]*models.Account // this unit's view of created or modified accounts
	created  map[string]bool
	patches  map[string][]func(*models.Account) // field writes replayed onto the committed row
	appended []*models.LedgerEntry
}

// Begin starts the unit of work
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.started {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.started = true
	u.held = make(map[string]chan struct{})
	u.staged = make(map[string]*models.Account)
	u.created = make(map[string]bool)
	u.patches = make(map[string][]func(*models.Account))
	u.appended = nil
	return nil
}

// Commit applies the staged writes atomically, releases locks and flushes events
func (u *unitOfWork) Commit() error {
	if !u.started {
		return fmt.Errorf("no transaction to commit")
	}

	s := u.store
	s.mu.Lock()
	for id, account := range u.staged {
		if u.created[id] {
			if err := s.checkUniqueLocked(account); err != nil {
				s.mu.Unlock()
				u.finish()
				u.transactionalBus.Discard()
				return fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}
	now := s.now()
	for id, account := range u.staged {
		var copied models.Account
		if u.created[id] {
			copied = *account
			copied.CreatedAt = now
		} else {
			committed, ok := s.accounts[id]
			if !ok {
				continue
			}
			copied = *committed
			for _, patch := range u.patches[id] {
				patch(&copied)
			}
		}
		copied.UpdatedAt = now
		s.accounts[id] = &copied
	}
	for _, entry := range u.appended {
		s.nextLedgerID++
		entry.ID = s.nextLedgerID
		entry.CreatedAt = now
		copied := *entry
		s.ledger = append(s.ledger, &copied)
	}
	s.mu.Unlock()

	u.finish()
	u.transactionalBus.Flush(context.Background())
	return nil
}

// Rollback discards staged writes and pending events; a no-op after Commit
func (u *unitOfWork) Rollback() error {
	if !u.started {
		return nil
	}
	u.finish()
	u.transactionalBus.Discard()
	return nil
}

// finish releases every held account lock and ends the unit
func (u *unitOfWork) finish() {
	for _, lock := range u.held {
		<-lock
	}
	u.held = nil
	u.staged = nil
	u.created = nil
	u.patches = nil
	u.appended = nil
	u.started = false
}

func (s *Store) checkUniqueLocked(account *models.Account) error {
	for _, existing := range s.accounts {
		if existing.Username == account.Username {
			return fmt.Errorf("username %q: %w", account.Username, models.ErrAccountExists)
		}
		if account.DiscordID != nil && existing.DiscordID != nil && *existing.DiscordID == *account.DiscordID {
			return fmt.Errorf("discord id %d: %w", *account.DiscordID, models.ErrAccountExists)
		}
	}
	return nil
}

func (u *unitOfWork) mustBeStarted() {
	if !u.started {
		panic("unit of work not started - call Begin() first")
	}
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	u.mustBeStarted()
	return &accountRepository{uow: u}
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	u.mustBeStarted()
	return &ledgerRepository{uow: u}
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}

// lookup returns this unit's view of the first matching account
func (u *unitOfWork) lookup(match func(*models.Account) bool) *models.Account {
	for _, a := range u.staged {
		if match(a) {
			copied := *a
			return &copied
		}
	}
	account := u.store.committedAccount(match)
	if account != nil {
		if _, overridden := u.staged[account.ID]; overridden {
			return nil
		}
	}
	return account
}

type accountRepository struct {
	uow *unitOfWork
}

func (r *accountRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	return r.uow.lookup(func(a *models.Account) bool { return a.ID == id }), nil
}

func (r *accountRepository) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.uow.lookup(func(a *models.Account) bool { return a.Username == username }), nil
}

func (r *accountRepository) GetByDiscordID(_ context.Context, discordID int64) (*models.Account, error) {
	return r.uow.lookup(func(a *models.Account) bool {
		return a.DiscordID != nil && *a.DiscordID == discordID
	}), nil
}

// GetForUpdate blocks until the account lock is free or ctx is done
func (r *accountRepository) GetForUpdate(ctx context.Context, id string) (*models.Account, error) {
	u := r.uow
	if _, held := u.held[id]; !held {
		if u.store.committedAccount(func(a *models.Account) bool { return a.ID == id }) == nil && u.staged[id] == nil {
			return nil, nil
		}

		lock := u.store.rowLock(id)
		select {
		case lock <- struct{}{}:
			u.held[id] = lock
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to lock account %s: %w", id, ctx.Err())
		}
	}

	return u.lookup(func(a *models.Account) bool { return a.ID == id }), nil
}

func (r *accountRepository) Create(_ context.Context, account *models.Account) error {
	u := r.uow
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Credits < 0 {
		return fmt.Errorf("failed to create account %q: negative credits", account.Username)
	}
	if existing := u.lookup(func(a *models.Account) bool {
		return a.Username == account.Username ||
			(account.DiscordID != nil && a.DiscordID != nil && *a.DiscordID == *account.DiscordID)
	}); existing != nil {
		return fmt.Errorf("failed to create account %q: %w", account.Username, models.ErrAccountExists)
	}

	now := u.store.now()
	account.CreatedAt = now
	account.UpdatedAt = now

	copied := *account
	u.staged[account.ID] = &copied
	u.created[account.ID] = true
	return nil
}

// update applies patch to this unit's view and records it for Commit, which
// replays it onto the row committed at that time. Only the patched columns change.
func (r *accountRepository) update(id string, patch func(*models.Account)) error {
	u := r.uow
	account := u.lookup(func(a *models.Account) bool { return a.ID == id })
	if account == nil {
		return fmt.Errorf("account %s: %w", id, models.ErrAccountNotFound)
	}
	patch(account)
	u.staged[id] = account
	if !u.created[id] {
		u.patches[id] = append(u.patches[id], patch)
	}
	return nil
}

func (r *accountRepository) UpdateCredits(_ context.Context, id string, credits int64) error {
	if credits < 0 {
		return fmt.Errorf("failed to update credits for account %s: balance cannot be negative", id)
	}
	return r.update(id, func(a *models.Account) { a.Credits = credits })
}

func (r *accountRepository) SetActive(_ context.Context, id string, active bool) error {
	return r.update(id, func(a *models.Account) { a.IsActive = active })
}

type ledgerRepository struct {
	uow *unitOfWork
}

func (r *ledgerRepository) Append(_ context.Context, entry *models.LedgerEntry) error {
	if entry.Delta == 0 {
		return fmt.Errorf("failed to append ledger entry for account %s: zero delta", entry.AccountID)
	}
	if entry.BalanceAfter != entry.BalanceBefore+entry.Delta {
		return fmt.Errorf("failed to append ledger entry for account %s: inconsistent balances", entry.AccountID)
	}
	r.uow.appended = append(r.uow.appended, entry)
	return nil
}

// ListByAccount returns committed entries, newest first
func (r *ledgerRepository) ListByAccount(_ context.Context, accountID string, limit int) ([]*models.LedgerEntry, error) {
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.LedgerEntry
	for _, entry := range slices.Backward(s.ledger) {
		if entry.AccountID != accountID {
			continue
		}
		copied := *entry
		entries = append(entries, &copied)
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}
