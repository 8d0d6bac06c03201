package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/yourorg/browse-api/geocode"
	httpv1 "github.com/yourorg/browse-api/http/v1"
	"github.com/yourorg/browse-api/internal/authn"
	"github.com/yourorg/browse-api/internal/coords"
	"github.com/yourorg/browse-api/internal/env"
	"github.com/yourorg/browse-api/internal/events"
	"github.com/yourorg/browse-api/internal/redisx"
	"github.com/yourorg/browse-api/internal/session"
	"github.com/yourorg/browse-api/market"
)

func main() {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if env.GetBool("LOG_DEBUG", false) {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(log)

	port := env.GetInt("PORT", 4003)
	marketURL := env.Must("MARKET_API_URL")

	marketClient := market.NewClient(marketURL)
	geoClient := geocode.NewClient(
		env.Get("NOMINATIM_URL", ""),
		env.Get("GEOCODE_USER_AGENT", "browse-api/1.0"),
	)

	var cache *redisx.Client
	if addr := env.Get("REDIS_ADDR", ""); addr != "" {
		cache = redisx.New(addr, env.Get("REDIS_PASSWORD", ""), env.GetInt("REDIS_DB", 0))
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(ctx); err != nil {
			log.Warn("redis unreachable, geocode caching disabled", "addr", addr, "err", err)
			cache = nil
		}
		cancel()
	}

	resolver := &coords.Resolver{
		Geo:         geoClient,
		Cache:       cache,
		Log:         log,
		Workers:     env.GetInt("GEOCODE_WORKERS", 4),
		CacheTTL:    env.GetDuration("GEOCODE_CACHE_TTL", 24*time.Hour),
		NegativeTTL: env.GetDuration("GEOCODE_NEGATIVE_TTL", 15*time.Minute),
	}

	broker := events.NewBroker()
	sessions := session.NewManager(marketClient, resolver, broker, log,
		env.GetDuration("SESSION_TTL", 30*time.Minute))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go sessions.Sweep(ctx, time.Minute)

	router := BuildRouter(httpv1.Deps{
		Sessions: sessions,
		Market:   marketClient,
		Resolver: resolver,
		Broker:   broker,
		Auth:     authn.NewVerifier(env.Get("AUTH_JWT_SECRET", "")),
		Log:      log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.Info("browse-api listening", "port", port, "market", marketURL, "cache", cache != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
