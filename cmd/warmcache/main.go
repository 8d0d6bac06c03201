package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/internal/coords"
	"github.com/yourorg/browse-api/internal/env"
	"github.com/yourorg/browse-api/internal/redisx"
	"github.com/yourorg/browse-api/market"
)

// warmcache walks the marketplace inventory and pre-resolves every
// distinct listing location into the redis geocode cache. Run it on a
// schedule so session opens rarely wait on Nominatim.
func main() {
	_ = godotenv.Load()

	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	marketURL := env.Must("MARKET_API_URL")
	redisAddr := env.Must("REDIS_ADDR")

	interval := env.GetDuration("WARM_INTERVAL", 0) // 0 runs once
	pause := env.GetDuration("WARM_PAUSE", 1100*time.Millisecond)
	requestTimeout := env.GetDuration("WARM_REQUEST_TIMEOUT", 10*time.Second)

	cache := redisx.New(redisAddr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
	defer cache.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(pingCtx); err != nil {
		cancel()
		log.Error("redis ping failed", "addr", redisAddr, "err", err)
		os.Exit(1)
	}
	cancel()

	job := &coords.WarmJob{
		Market: market.NewClient(marketURL),
		Resolver: &coords.Resolver{
			Geo: geocode.NewClient(
				env.Get("NOMINATIM_URL", ""),
				env.Get("GEOCODE_USER_AGENT", "browse-api-warmcache/1.0"),
			),
			Cache:       cache,
			Log:         log,
			CacheTTL:    env.GetDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
			NegativeTTL: env.GetDuration("GEOCODE_NEGATIVE_TTL", 15*time.Minute),
		},
		Log: log,
		Config: coords.WarmConfig{
			Interval:             interval,
			PauseBetweenRequests: pause,
			RequestTimeout:       requestTimeout,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("warm job stopped with error", "err", err)
		os.Exit(1)
	}
}
