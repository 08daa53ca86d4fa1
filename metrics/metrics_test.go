package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/events"
	"megafacil/models"
)

func TestRecord_CreditsAdjusted(t *testing.T) {
	counter := ledgerAdjustments.WithLabelValues(models.ReasonCardGeneration.String())
	before := testutil.ToFloat64(counter)

	record(context.Background(), events.CreditsAdjustedEvent{Delta: -2, Reason: models.ReasonCardGeneration})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecord_Generation(t *testing.T) {
	cardsBefore := testutil.ToFloat64(cardsGenerated)
	successBefore := testutil.ToFloat64(generationRequests.WithLabelValues(OutcomeSuccess))
	failedBefore := testutil.ToFloat64(generationRequests.WithLabelValues("insufficient_credits"))

	record(context.Background(), events.CardsGeneratedEvent{CardCount: 3, Duration: 20 * time.Millisecond})
	record(context.Background(), events.GenerationFailedEvent{Reason: "insufficient_credits"})

	assert.Equal(t, cardsBefore+3, testutil.ToFloat64(cardsGenerated))
	assert.Equal(t, successBefore+1, testutil.ToFloat64(generationRequests.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(generationRequests.WithLabelValues("insufficient_credits")))
}

func TestSubscribe_RateLimited(t *testing.T) {
	bus := events.NewBus()
	Subscribe(bus)

	before := testutil.ToFloat64(rateLimited)
	bus.Emit(context.Background(), events.RequestRateLimitedEvent{ClientKey: "discord:1", RetryAfterSeconds: 4})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(rateLimited) == before+1
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	record(context.Background(), events.RequestRateLimitedEvent{})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "megafacil_rate_limited_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
