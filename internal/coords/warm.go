package coords

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/market"
)

type WarmConfig struct {
	Interval             time.Duration // <= 0 means run once
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
}

// WarmJob walks the full market inventory and pre-resolves every distinct
// location into the geocode cache, so session opens mostly hit redis.
type WarmJob struct {
	Market   *market.Client
	Resolver *Resolver
	Log      *slog.Logger
	Config   WarmConfig
}

func (j *WarmJob) validate() error {
	if j == nil {
		return errors.New("nil warm job")
	}
	if j.Market == nil {
		return errors.New("warm job missing market client")
	}
	if j.Resolver == nil || j.Resolver.Cache == nil {
		return errors.New("warm job requires a resolver with a cache")
	}
	if j.Log == nil {
		j.Log = slog.Default()
	}
	return nil
}

func (j *WarmJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.Log.Info("geocode warm job starting", "interval", interval)
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.Log.Warn("geocode warm job initial run error", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.Log.Warn("geocode warm job iteration error", "err", err)
			}
		}
	}
}

func (j *WarmJob) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	raw, err := j.Market.FetchListings(reqCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("warm fetch listings: %w", err)
	}
	cards, err := market.MapListings(raw)
	if err != nil {
		return fmt.Errorf("warm map listings: %w", err)
	}

	seen := make(map[string]struct{})
	resolved, missed := 0, 0
	for _, card := range cards {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		loc := strings.TrimSpace(card.Location)
		if loc == "" {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := j.Resolver.Lookup(reqCtx, loc)
		cancel()
		switch {
		case errors.Is(err, geocode.ErrNoResult):
			missed++
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			j.Log.Warn("warm lookup error", "location", loc, "err", err)
		default:
			resolved++
		}

		if j.Config.PauseBetweenRequests > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.Config.PauseBetweenRequests):
			}
		}
	}
	j.Log.Info("geocode warm pass done", "locations", len(seen), "resolved", resolved, "missed", missed)
	return nil
}
