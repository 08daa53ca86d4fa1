package cmd

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"megafacil/bot"
	"megafacil/config"
	"megafacil/database"
	"megafacil/events"
	"megafacil/history"
	"megafacil/metrics"
	"megafacil/ratelimit"
	"megafacil/repository"
	"megafacil/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord front end and the generation pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting megafacil...")

	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event bus and metrics
	eventBus := events.NewBus()
	metrics.Subscribe(eventBus)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	historyProvider, closeHistory, err := newHistoryProvider(cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	limiter, err := newLimiter(ctx, cfg)
	if err != nil {
		return err
	}

	// Initialize services
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	ledger := service.NewCreditLedger(uowFactory)
	accountService := service.NewAccountService(uowFactory)
	generationService := service.NewGenerationService(
		generationConfig(cfg),
		uowFactory,
		ledger,
		historyProvider,
		limiter,
		eventBus,
	)
	log.Info("Services initialized successfully")

	var discordBot *bot.Bot
	if cfg.DiscordToken != "" {
		discordBot, err = bot.New(bot.Config{
			Token:   cfg.DiscordToken,
			GuildID: cfg.GuildID,
			IsAdmin: cfg.IsAdmin,
		}, accountService, generationService, ledger)
		if err != nil {
			return fmt.Errorf("failed to initialize Discord bot: %w", err)
		}
	} else {
		log.Warn("DISCORD_TOKEN not set, Discord bot disabled")
	}

	log.Infof("Running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down...")
	if discordBot != nil {
		if err := discordBot.Close(); err != nil {
			log.Errorf("Error closing Discord bot: %v", err)
		}
	}

	return nil
}

func generationConfig(cfg *config.Config) service.GenerationConfig {
	return service.GenerationConfig{
		DefaultWindowSize:   cfg.WindowSize,
		MaxWindowSize:       cfg.MaxWindowSize,
		CombinationsPerCard: cfg.CombinationsPerCard,
		CreditsPerCard:      cfg.CreditsPerCard,
		MaxCardsPerRequest:  cfg.MaxCardsPerRequest,
		DefaultSeed:         cfg.GeneratorSeed,
	}
}

// newHistoryProvider caches the CSV, reloading on mtime changes or file notifications
func newHistoryProvider(cfg *config.Config) (history.Provider, func(), error) {
	source := history.NewCSVProvider(cfg.HistoryCSVPath)

	if !cfg.HistoryWatch {
		return history.NewCache(source, history.NewModTimeCheck(cfg.HistoryCSVPath)), func() {}, nil
	}

	watch, err := history.NewWatchCheck(cfg.HistoryCSVPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to watch history file: %w", err)
	}
	closeWatch := func() {
		if err := watch.Close(); err != nil {
			log.Warnf("Error closing history watcher: %v", err)
		}
	}
	return history.NewCache(source, watch), closeWatch, nil
}

// newLimiter builds the per-client sliding window, in Redis when configured,
// behind the optional global throttle
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, error) {
	window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		go func() {
			<-ctx.Done()
			client.Close()
		}()

		limiter, err = ratelimit.NewRedisSlidingWindow(client, cfg.RateLimitMax, window)
		if err != nil {
			return nil, err
		}
		log.Info("Rate limit state stored in Redis")
	} else {
		local, err := ratelimit.NewSlidingWindow(cfg.RateLimitMax, window)
		if err != nil {
			return nil, err
		}
		local.StartCleanup(ctx, window)
		limiter = local
	}

	return ratelimit.NewGlobalThrottle(cfg.RateLimitGlobalRPS, limiter), nil
}
