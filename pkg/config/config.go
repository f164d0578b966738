package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

// Config holds the application configuration.
type Config struct {
	LogLevel string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListingBaseURL  string
	ProfilePathHint string
	UserAgent       string

	RequestTimeout  time.Duration
	HTTPMaxAttempts int
	HTTPRetryDelay  time.Duration

	CollectDelay  time.Duration
	ScrapeDelay   time.Duration
	ValidateDelay time.Duration
	ArchiveDelay  time.Duration

	SubmitMaxRetries int
	SubmitRetryDelay time.Duration

	AvailabilityEndpoint string
	SaveEndpoint         string

	RenderedFetch   bool
	PageLoadTimeout time.Duration

	DiscoveryExpiry time.Duration
	OutputDir       string
}

// Load loads configuration from the environment, reading a .env file first
// when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "linkcheck"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),

		ListingBaseURL:  getEnv("LISTING_BASE_URL", "https://hrdmemorial.org/hrdrecord"),
		ProfilePathHint: getEnv("PROFILE_PATH_HINT", "/hrdrecord/"),
		UserAgent:       getEnv("HTTP_USER_AGENT", defaultUserAgent),

		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT_SECONDS", 10) * time.Second,
		HTTPMaxAttempts: getEnvAsInt("HTTP_MAX_ATTEMPTS", 3),
		HTTPRetryDelay:  getEnvAsDuration("HTTP_RETRY_DELAY_MS", 500) * time.Millisecond,

		CollectDelay:  getEnvAsDuration("COLLECT_DELAY_MS", 2000) * time.Millisecond,
		ScrapeDelay:   getEnvAsDuration("SCRAPE_DELAY_MS", 1000) * time.Millisecond,
		ValidateDelay: getEnvAsDuration("VALIDATE_DELAY_MS", 1000) * time.Millisecond,
		ArchiveDelay:  getEnvAsDuration("ARCHIVE_DELAY_MS", 1000) * time.Millisecond,

		SubmitMaxRetries: getEnvAsInt("SUBMIT_MAX_RETRIES", 3),
		SubmitRetryDelay: getEnvAsDuration("SUBMIT_RETRY_DELAY_MS", 5000) * time.Millisecond,

		AvailabilityEndpoint: getEnv("ARCHIVE_AVAILABILITY_ENDPOINT", "https://archive.org/wayback/available"),
		SaveEndpoint:         getEnv("ARCHIVE_SAVE_ENDPOINT", "https://web.archive.org/save"),

		RenderedFetch:   getEnvAsBool("RENDERED_FETCH", false),
		PageLoadTimeout: getEnvAsDuration("PAGE_LOAD_TIMEOUT_SECONDS", 60) * time.Second,

		DiscoveryExpiry: getEnvAsDuration("DISCOVERY_EXPIRY_HOURS", 48) * time.Hour,
		OutputDir:       getEnv("OUTPUT_DIR", "./output"),
	}
}

// PostgresDSN assembles the pgx connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
