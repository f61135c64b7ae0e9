package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nmehta6/dishcovery/cleanup"
	"github.com/nmehta6/dishcovery/identity"
	"github.com/nmehta6/dishcovery/internal/web"
	"github.com/nmehta6/dishcovery/oauth"
	"github.com/nmehta6/dishcovery/password"
	"github.com/nmehta6/dishcovery/ratelimit"
	"github.com/nmehta6/dishcovery/recipes"
	"github.com/nmehta6/dishcovery/session"
	"github.com/nmehta6/dishcovery/store"
	"github.com/nmehta6/dishcovery/store/memory"
	redisstore "github.com/nmehta6/dishcovery/store/redis"
	sqlstore "github.com/nmehta6/dishcovery/store/sql"
)

// App is the assembled application.
type App struct {
	Handler http.Handler

	primary store.Store
	redis   *goredis.Client
	sweeper *cleanup.Worker
	limiter ratelimit.Limiter
}

// New wires the application together from configuration. The primary
// store is migrated before the handler is returned.
func New(ctx context.Context, cfg *Config) (*App, error) {
	a := &App{}

	// Primary store: Postgres in production, memory for local runs.
	if cfg.DatabaseURL != "" {
		s, err := sqlstore.New(&sqlstore.Config{
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.primary = s
		log.Println("[app] using postgres store")
	} else {
		a.primary = memory.New()
		log.Println("[app] DATABASE_URL not set, using in-memory store")
	}

	if err := a.primary.Ping(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("pinging store: %w", err)
	}
	if err := a.primary.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	// Sessions and rate-limit counters move to Redis when configured,
	// so they survive restarts and are shared across instances.
	sessions := store.Sessions(a.primary)
	if cfg.RedisAddr != "" {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("pinging redis: %w", err)
		}

		rs, err := redisstore.New(&redisstore.Config{Client: a.redis})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		sessions = rs

		a.limiter = ratelimit.NewRedisLimiter(&ratelimit.RedisConfig{
			Client: a.redis,
			Rate:   10,
			Window: time.Minute,
		})
		log.Println("[app] using redis for sessions and rate limiting")
	} else {
		a.limiter = ratelimit.NewMemoryLimiter(10, time.Minute)
	}

	// Hashes from the non-preferred algorithm keep verifying and are
	// upgraded on login, so the knob can be flipped on a live install.
	bcryptHasher := password.NewBcryptHasher(&password.BcryptConfig{Cost: cfg.BcryptCost})
	argonHasher := password.NewArgon2Hasher(nil)
	var hasher password.Hasher
	if cfg.PasswordHasher == "argon2" {
		hasher = password.NewMultiHasher(argonHasher, bcryptHasher)
	} else {
		hasher = password.NewMultiHasher(bcryptHasher, argonHasher)
	}
	resolver := identity.NewResolver(a.primary, hasher, &identity.Config{
		EmailCollisionPolicy: cfg.EmailCollisionPolicy,
	})
	sessionMgr := session.NewManager(sessions, a.primary, &session.Config{
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	})

	var google *oauth.Google
	if cfg.GoogleEnabled() {
		g, err := oauth.NewGoogle(&oauth.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleCallbackURL,
			StateSecret:  []byte(cfg.SessionSecret),
			Secure:       cfg.SecureCookies,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("configuring google sign-in: %w", err)
		}
		google = g
	} else {
		log.Println("[app] google sign-in not configured, disabled")
	}

	provider := recipes.NewSpoonacular(&recipes.SpoonacularConfig{
		APIKey: cfg.SpoonacularAPIKey,
	})

	srv, err := web.NewServer(&web.Config{
		Resolver:  resolver,
		Sessions:  sessionMgr,
		Provider:  provider,
		Favorites: a.primary,
		Google:    google,
		Limiter:   a.limiter,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = srv.Router()

	a.sweeper = cleanup.NewWorker(&cleanup.Config{
		Sessions: sessions,
		Interval: cfg.CleanupInterval,
	})
	a.sweeper.Start()

	return a, nil
}

// Close releases everything New acquired. Safe to call on a partially
// constructed App.
func (a *App) Close() error {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("[app] closing redis: %v", err)
		}
	}
	if a.primary != nil {
		return a.primary.Close()
	}
	return nil
}
