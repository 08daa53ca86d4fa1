package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/models"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan CreditsAdjustedEvent, 1)
	mainBus.Subscribe(EventTypeCreditsAdjusted, func(ctx context.Context, event Event) {
		if e, ok := event.(CreditsAdjustedEvent); ok {
			received <- e
		} else {
			t.Errorf("Expected CreditsAdjustedEvent, got %T", event)
		}
	})

	testEvent := CreditsAdjustedEvent{
		AccountID:  "acc-1",
		OldBalance: 10,
		NewBalance: 7,
		Delta:      -3,
		Reason:     models.ReasonCardGeneration,
		ActorID:    "acc-1",
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	require.NoError(t, transactionalBus.Flush(context.Background()))
	assert.Equal(t, 0, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, testEvent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering several events of different types
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[EventType]int)
	record := func(ctx context.Context, event Event) {
		defer wg.Done()
		mu.Lock()
		seen[event.Type()]++
		mu.Unlock()
	}
	mainBus.Subscribe(EventTypeCreditsAdjusted, record)
	mainBus.Subscribe(EventTypeCardsGenerated, record)

	wg.Add(3)
	transactionalBus.Publish(CreditsAdjustedEvent{AccountID: "a", Delta: -1})
	transactionalBus.Publish(CreditsAdjustedEvent{AccountID: "b", Delta: 5})
	transactionalBus.Publish(CardsGeneratedEvent{AccountID: "a", CardCount: 1})
	require.NoError(t, transactionalBus.Flush(context.Background()))

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Events were not delivered within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, seen[EventTypeCreditsAdjusted])
	assert.Equal(t, 1, seen[EventTypeCardsGenerated])
}

// TestDiscardDropsPendingEvents tests that rolled back work never reaches subscribers
func TestDiscardDropsPendingEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	delivered := make(chan Event, 1)
	mainBus.Subscribe(EventTypeCreditsAdjusted, func(ctx context.Context, event Event) {
		delivered <- event
	})

	transactionalBus.Publish(CreditsAdjustedEvent{AccountID: "a", Delta: -1})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	select {
	case ev := <-delivered:
		t.Fatalf("Unexpected event delivered: %v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestHandlerPanicIsContained tests that one panicking handler does not stop others
func TestHandlerPanicIsContained(t *testing.T) {
	mainBus := NewBus()

	delivered := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeRequestRateLimited, func(ctx context.Context, event Event) {
		panic("boom")
	})
	mainBus.Subscribe(EventTypeRequestRateLimited, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	mainBus.Emit(context.Background(), RequestRateLimitedEvent{ClientKey: "k", RetryAfterSeconds: 3})

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("Second handler was not called")
	}
}
