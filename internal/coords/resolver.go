package coords

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/internal/canon"
	"github.com/yourorg/browse-api/internal/redisx"
	"github.com/yourorg/browse-api/market"
)

// Geocoder is satisfied by *geocode.Client.
type Geocoder interface {
	Resolve(ctx context.Context, location string) (geocode.Point, error)
}

// Resolver fans per-listing geocode lookups out over a bounded worker
// pool. Results for one fetch of the listing store only live for that
// visit; the redis cache in front of Nominatim exists to spare the
// upstream, not to extend that lifetime.
type Resolver struct {
	Geo   Geocoder
	Cache *redisx.Client // nil disables caching
	Log   *slog.Logger

	Workers     int
	CacheTTL    time.Duration
	NegativeTTL time.Duration
}

func (r *Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func (r *Resolver) workerCount() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return 4
}

// ResolveAll resolves coordinates for every card that lacks them and calls
// apply once per resolved listing. Lookups for distinct locations run
// concurrently and independently: one miss or failure never blocks or
// fails the rest. Cancelling ctx abandons the remaining lookups, which is
// how a closed session tears its fan-out down.
func (r *Resolver) ResolveAll(ctx context.Context, cards []market.ListingCard, apply func(listingID string, pt geocode.Point)) {
	groups := make(map[string][]string) // canonical key -> listing ids
	lookup := make(map[string]string)   // canonical key -> raw location
	var order []string
	for _, c := range cards {
		if c.Coords != nil || strings.TrimSpace(c.Location) == "" {
			continue
		}
		key := canon.Key(c.Location)
		if key == "" {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
			lookup[key] = c.Location
		}
		groups[key] = append(groups[key], c.ID)
	}
	if len(order) == 0 {
		return
	}

	sem := make(chan struct{}, r.workerCount())
	var wg sync.WaitGroup
	for _, key := range order {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(key string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			pt, err := r.Lookup(ctx, lookup[key])
			if err != nil {
				if !errors.Is(err, geocode.ErrNoResult) && ctx.Err() == nil {
					r.logger().Warn("geocode failed", "location", lookup[key], "err", err)
				}
				return
			}
			for _, id := range groups[key] {
				apply(id, pt)
			}
		}(key)
	}
	wg.Wait()
}

type cachedPoint struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Lookup resolves one location, cache first. Misses are negative-cached
// with a shorter TTL so fresh locations surface without hammering the
// geocoder.
func (r *Resolver) Lookup(ctx context.Context, location string) (geocode.Point, error) {
	key := canon.Key(location)
	if key == "" {
		return geocode.Point{}, geocode.ErrNoResult
	}

	if r.Cache != nil {
		if miss, err := r.Cache.Exists(ctx, "geo:miss:"+key); err == nil && miss {
			return geocode.Point{}, geocode.ErrNoResult
		}
		if val, err := r.Cache.Get(ctx, "geo:pt:"+key); err == nil && val != "" {
			var cached cachedPoint
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return geocode.Point{Lat: cached.Lat, Lon: cached.Lon}, nil
			}
		}
	}

	pt, err := r.Geo.Resolve(ctx, location)
	if errors.Is(err, geocode.ErrNoResult) {
		if r.Cache != nil {
			_ = r.Cache.Set(ctx, "geo:miss:"+key, "1", r.negativeTTL())
		}
		return geocode.Point{}, err
	}
	if err != nil {
		return geocode.Point{}, err
	}

	if r.Cache != nil {
		b, _ := json.Marshal(cachedPoint{Lat: pt.Lat, Lon: pt.Lon, ResolvedAt: time.Now()})
		_ = r.Cache.Set(ctx, "geo:pt:"+key, string(b), r.cacheTTL())
	}
	return pt, nil
}

func (r *Resolver) cacheTTL() time.Duration {
	if r.CacheTTL > 0 {
		return r.CacheTTL
	}
	return 24 * time.Hour
}

func (r *Resolver) negativeTTL() time.Duration {
	if r.NegativeTTL > 0 {
		return r.NegativeTTL
	}
	return 15 * time.Minute
}
