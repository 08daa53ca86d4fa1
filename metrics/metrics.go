package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"megafacil/events"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	ledgerAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "megafacil",
			Name:      "ledger_adjustments_total",
			Help:      "Total number of committed credit adjustments.",
		},
		[]string{"reason"},
	)

	cardsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "megafacil",
			Name:      "cards_generated_total",
			Help:      "Total number of cards delivered and paid for.",
		},
	)

	generationRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "megafacil",
			Name:      "generation_requests_total",
			Help:      "Total number of generation requests by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "megafacil",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "megafacil",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"outcome"},
	)
)

// OutcomeSuccess labels requests that delivered cards
const OutcomeSuccess = "success"

func init() {
	Registry.MustRegister(
		ledgerAdjustments,
		cardsGenerated,
		generationRequests,
		rateLimited,
		generationDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Subscribe feeds the collectors from bus events
func Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeCreditsAdjusted, record)
	bus.Subscribe(events.EventTypeCardsGenerated, record)
	bus.Subscribe(events.EventTypeGenerationFailed, record)
	bus.Subscribe(events.EventTypeRequestRateLimited, record)
}

func record(_ context.Context, event events.Event) {
	switch e := event.(type) {
	case events.CreditsAdjustedEvent:
		ledgerAdjustments.WithLabelValues(e.Reason.String()).Inc()
	case events.CardsGeneratedEvent:
		cardsGenerated.Add(float64(e.CardCount))
		observeRequest(OutcomeSuccess, e.Duration)
	case events.GenerationFailedEvent:
		observeRequest(e.Reason, e.Duration)
	case events.RequestRateLimitedEvent:
		rateLimited.Inc()
	}
}

func observeRequest(outcome string, duration time.Duration) {
	generationRequests.WithLabelValues(outcome).Inc()
	generationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}()

	log.WithField("addr", addr).Info("Serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
