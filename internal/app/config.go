// Package app loads configuration and assembles the application.
package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nmehta6/dishcovery/identity"
	"github.com/nmehta6/dishcovery/password"
)

// Config is everything the process reads from the environment.
type Config struct {
	Port string

	// DatabaseURL selects Postgres; empty falls back to the in-memory
	// store, which only makes sense in development.
	DatabaseURL string

	// RedisAddr moves sessions and rate-limit counters to Redis when
	// set. Empty keeps them in the primary store / in process.
	RedisAddr     string
	RedisPassword string

	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	SpoonacularAPIKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// PasswordHasher selects the hashing algorithm for local
	// credentials: "bcrypt" (default) or "argon2". Existing hashes
	// keep verifying either way and are upgraded on login.
	PasswordHasher string

	BcryptCost int

	EmailCollisionPolicy identity.CollisionPolicy

	CleanupInterval time.Duration
}

// LoadDotenv loads the nearest .env file if one exists. Missing files
// are fine; production configures through real environment variables.
func LoadDotenv() {
	for _, p := range []string{".env", filepath.Join("..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			log.Println("[env] loaded", p)
			return
		}
	}
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:               envOr("PORT", "3000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		SpoonacularAPIKey:  os.Getenv("SPOONACULAR_API_KEY"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		SecureCookies:      os.Getenv("SECURE_COOKIES") == "true",
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("missing required env SESSION_SECRET")
	}
	if cfg.SpoonacularAPIKey == "" {
		return nil, fmt.Errorf("missing required env SPOONACULAR_API_KEY")
	}

	var err error
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = durationEnv("CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", password.DefaultBcryptCost); err != nil {
		return nil, err
	}

	switch hasher := os.Getenv("PASSWORD_HASHER"); hasher {
	case "", "bcrypt":
		cfg.PasswordHasher = "bcrypt"
	case "argon2":
		cfg.PasswordHasher = "argon2"
	default:
		return nil, fmt.Errorf("invalid PASSWORD_HASHER %q", hasher)
	}

	switch policy := os.Getenv("EMAIL_COLLISION_POLICY"); policy {
	case "", string(identity.CollisionReject):
		cfg.EmailCollisionPolicy = identity.CollisionReject
	case string(identity.CollisionLink):
		cfg.EmailCollisionPolicy = identity.CollisionLink
	default:
		return nil, fmt.Errorf("invalid EMAIL_COLLISION_POLICY %q", policy)
	}

	return cfg, nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func intEnv(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func durationEnv(k string, d time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return parsed, nil
}
