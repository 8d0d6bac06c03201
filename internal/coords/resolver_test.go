package coords

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/market"
)

type fakeGeocoder struct {
	mu    sync.Mutex
	calls map[string]int
	pts   map[string]geocode.Point
	errs  map[string]error
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		calls: make(map[string]int),
		pts:   make(map[string]geocode.Point),
		errs:  make(map[string]error),
	}
}

func (f *fakeGeocoder) Resolve(_ context.Context, location string) (geocode.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[location]++
	if err, ok := f.errs[location]; ok {
		return geocode.Point{}, err
	}
	if pt, ok := f.pts[location]; ok {
		return pt, nil
	}
	return geocode.Point{}, geocode.ErrNoResult
}

func TestResolveAllIndependentFailures(t *testing.T) {
	geo := newFakeGeocoder()
	geo.pts["Harbord & Spadina"] = geocode.Point{Lat: 43.66, Lon: -79.40}
	geo.errs["Mars"] = errors.New("upstream down")

	cards := []market.ListingCard{
		{ID: "1", Location: "Harbord & Spadina"},
		{ID: "2", Location: "Mars"},
		{ID: "3", Location: "Atlantis"}, // no result
		{ID: "4", Location: ""},
	}

	r := &Resolver{Geo: geo}
	var mu sync.Mutex
	got := make(map[string]geocode.Point)
	r.ResolveAll(context.Background(), cards, func(id string, pt geocode.Point) {
		mu.Lock()
		got[id] = pt
		mu.Unlock()
	})

	require.Len(t, got, 1, "only the resolvable listing is applied")
	assert.InDelta(t, 43.66, got["1"].Lat, 1e-9)
}

func TestResolveAllGroupsDuplicateLocations(t *testing.T) {
	geo := newFakeGeocoder()
	geo.pts["Chestnut Residence"] = geocode.Point{Lat: 43.6555, Lon: -79.3862}

	cards := []market.ListingCard{
		{ID: "1", Location: "Chestnut Residence"},
		{ID: "2", Location: "Chestnut Residence"},
		{ID: "3", Location: "chestnut residence!"},
	}

	r := &Resolver{Geo: geo}
	var mu sync.Mutex
	var applied []string
	r.ResolveAll(context.Background(), cards, func(id string, _ geocode.Point) {
		mu.Lock()
		applied = append(applied, id)
		mu.Unlock()
	})

	assert.ElementsMatch(t, []string{"1", "2", "3"}, applied)
	assert.Equal(t, 1, geo.calls["Chestnut Residence"], "one lookup per canonical location")
	assert.Zero(t, geo.calls["chestnut residence!"])
}

func TestResolveAllSkipsAlreadyResolved(t *testing.T) {
	geo := newFakeGeocoder()
	cards := []market.ListingCard{
		{ID: "1", Location: "Annex", Coords: &[2]float64{43.67, -79.40}},
	}
	r := &Resolver{Geo: geo}
	r.ResolveAll(context.Background(), cards, func(string, geocode.Point) {
		t.Fatal("apply must not run for pre-resolved cards")
	})
	assert.Empty(t, geo.calls)
}

func TestResolveAllHonorsCancellation(t *testing.T) {
	geo := newFakeGeocoder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cards := []market.ListingCard{{ID: "1", Location: "Harbord & Spadina"}}
	r := &Resolver{Geo: geo}
	r.ResolveAll(ctx, cards, func(string, geocode.Point) {
		t.Fatal("apply must not run after cancellation")
	})
}

func TestLookupBlankLocation(t *testing.T) {
	r := &Resolver{Geo: newFakeGeocoder()}
	_, err := r.Lookup(context.Background(), "  ??  ")
	assert.ErrorIs(t, err, geocode.ErrNoResult)
}
