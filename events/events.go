package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"megafacil/models"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeCreditsAdjusted    EventType = "credits_adjusted"
	EventTypeAccountCreated     EventType = "account_created"
	EventTypeCardsGenerated     EventType = "cards_generated"
	EventTypeGenerationFailed   EventType = "generation_failed"
	EventTypeRequestRateLimited EventType = "request_rate_limited"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// CreditsAdjustedEvent is published once a ledger adjustment commits
type CreditsAdjustedEvent struct {
	AccountID  string
	OldBalance int64
	NewBalance int64
	Delta      int64
	Reason     models.ReasonCode
	ActorID    string
}

func (e CreditsAdjustedEvent) Type() EventType {
	return EventTypeCreditsAdjusted
}

// AccountCreatedEvent represents a new account
type AccountCreatedEvent struct {
	AccountID      string
	Username       string
	DiscordID      *int64
	InitialCredits int64
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// CardsGeneratedEvent represents a generation request that produced and paid for its cards
type CardsGeneratedEvent struct {
	AccountID           string
	ClientKey           string
	CardCount           int
	CombinationsPerCard int
	WindowSize          int
	Cost                int64
	LastSequenceID      int64
	Duration            time.Duration
}

func (e CardsGeneratedEvent) Type() EventType {
	return EventTypeCardsGenerated
}

// GenerationFailedEvent represents a generation request aborted before any debit
type GenerationFailedEvent struct {
	AccountID string
	ClientKey string
	Reason    string
	Duration  time.Duration
}

func (e GenerationFailedEvent) Type() EventType {
	return EventTypeGenerationFailed
}

// RequestRateLimitedEvent represents a request rejected by the rate limiter
type RequestRateLimitedEvent struct {
	ClientKey         string
	RetryAfterSeconds int
}

func (e RequestRateLimitedEvent) Type() EventType {
	return EventTypeRequestRateLimited
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers.
// Handlers run on their own goroutines and a panicking handler is logged, not propagated.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits the pending events; called after a successful commit
func (b *TransactionalBus) Flush(_ context.Context) error {
	// Handlers outlive the request, so they never get its context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	log.WithField("count", len(b.pending)).Debug("Flushed pending events")
	b.pending = nil
	return nil
}

// Discard drops the pending events; called on rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns how many events wait for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
