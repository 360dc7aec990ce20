package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port          int
	JWTSecret     string
	DatabaseURL   string
	CORSOrigins   []string
	AdminEmail    string
	AdminPassword string

	Ledger LedgerConfig

	RateLimitRPS   float64
	RateLimitBurst int

	// Login gets its own, tighter bucket.
	LoginRateLimitRPS   float64
	LoginRateLimitBurst int
}

// LedgerConfig selects the ledger backend. An empty URL means the in-process
// ledger, which is only useful for development.
type LedgerConfig struct {
	URL     string
	APIKey  string
	Network string
	Owner   bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first, without overriding
// variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] Could not read .env: %v", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "5000"))
	if err != nil {
		return nil, fmt.Errorf("PORT must be a number: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a number: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be a number: %w", err)
	}

	loginRPS, err := strconv.ParseFloat(getEnv("LOGIN_RATE_LIMIT_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT_RPS must be a number: %w", err)
	}
	loginBurst, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT_BURST must be a number: %w", err)
	}

	owner, err := strconv.ParseBool(getEnv("LEDGER_OWNER", "true"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_OWNER must be a boolean: %w", err)
	}

	origins := strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		Port:          port,
		JWTSecret:     jwtSecret,
		DatabaseURL:   dbURL,
		CORSOrigins:   origins,
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		Ledger: LedgerConfig{
			URL:     strings.TrimRight(getEnv("LEDGER_URL", ""), "/"),
			APIKey:  getEnv("LEDGER_API_KEY", ""),
			Network: getEnv("LEDGER_NETWORK", ""),
			Owner:   owner,
		},
		RateLimitRPS:        rps,
		RateLimitBurst:      burst,
		LoginRateLimitRPS:   loginRPS,
		LoginRateLimitBurst: loginBurst,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
