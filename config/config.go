package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"megafacil/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Discord configuration (bot is disabled when the token is empty)
	DiscordToken    string
	GuildID         string
	AdminDiscordIDs []int64 // Discord IDs allowed to adjust credits

	// History configuration
	HistoryCSVPath string
	HistoryWatch   bool // Use file system notifications instead of mtime checks

	// Generation configuration
	WindowSize          int
	MaxWindowSize       int
	CombinationsPerCard int
	CreditsPerCard      int64
	MaxCardsPerRequest  int
	GeneratorSeed       string // Default seed when a request carries none

	// Rate limit configuration
	RateLimitMax           int
	RateLimitWindowSeconds int
	RateLimitGlobalRPS     float64 // 0 disables the process-wide throttle
	RedisURL               string  // When set, rate limit state lives in Redis

	// Observability
	MetricsAddr string
	LogLevel    string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin checks if a Discord user may adjust credits
func (c *Config) IsAdmin(discordID int64) bool {
	for _, id := range c.AdminDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// load loads configuration from the environment, reading a .env file first when present
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),

		HistoryCSVPath: getEnvWithDefault("HISTORY_CSV_PATH", "data/mega_sena.csv"),
		HistoryWatch:   getEnvBool("HISTORY_WATCH", false),

		WindowSize:          getEnvInt("WINDOW_SIZE", 50),
		MaxWindowSize:       getEnvInt("MAX_WINDOW_SIZE", 500),
		CombinationsPerCard: getEnvInt("COMBINATIONS_PER_CARD", 3),
		CreditsPerCard:      int64(getEnvInt("CREDITS_PER_CARD", 1)),
		MaxCardsPerRequest:  getEnvInt("MAX_CARDS_PER_REQUEST", 50),
		GeneratorSeed:       os.Getenv("GENERATOR_SEED"),

		RateLimitMax:           getEnvInt("RATE_LIMIT_MAX", 20),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RedisURL:               os.Getenv("REDIS_URL"),

		MetricsAddr: getEnvWithDefault("METRICS_ADDR", ":9090"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if rps := os.Getenv("RATE_LIMIT_GLOBAL_RPS"); rps != "" {
		if parsed, err := strconv.ParseFloat(rps, 64); err == nil && parsed >= 0 {
			config.RateLimitGlobalRPS = parsed
		}
	}

	// Parse admin Discord IDs
	if adminIDs := os.Getenv("ADMIN_DISCORD_IDS"); adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				config.AdminDiscordIDs = append(config.AdminDiscordIDs, id)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the numeric settings
func (c *Config) Validate() error {
	if c.WindowSize < 1 || c.WindowSize > c.MaxWindowSize {
		return fmt.Errorf("WINDOW_SIZE must be between 1 and %d", c.MaxWindowSize)
	}
	if c.CombinationsPerCard < 1 {
		return fmt.Errorf("COMBINATIONS_PER_CARD must be positive")
	}
	if c.CreditsPerCard < 1 {
		return fmt.Errorf("CREDITS_PER_CARD must be positive")
	}
	if c.MaxCardsPerRequest < 1 {
		return fmt.Errorf("MAX_CARDS_PER_REQUEST must be positive")
	}
	if c.RateLimitMax < 1 || c.RateLimitWindowSeconds < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_SECONDS must be positive")
	}

	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}

	return nil
}

// RequireDatabase checks the database settings needed by commands that touch the ledger
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		HistoryCSVPath:         "testdata/mega_sena.csv",
		WindowSize:             50,
		MaxWindowSize:          500,
		CombinationsPerCard:    3,
		CreditsPerCard:         1,
		MaxCardsPerRequest:     50,
		RateLimitMax:           20,
		RateLimitWindowSeconds: 60,
		LogLevel:               "info",
	}
}
