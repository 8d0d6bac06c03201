package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/internal/coords"
	"github.com/yourorg/browse-api/internal/events"
)

type fakeMarket struct {
	mu        sync.Mutex
	listings  []byte
	listErr   error
	favorites []byte
	favErr    error
	addErr    error
	removeErr error
	added     []string
	removed   []string
}

func (f *fakeMarket) FetchListings(context.Context) ([]byte, error) {
	return f.listings, f.listErr
}

func (f *fakeMarket) FetchFavorites(context.Context, string) ([]byte, error) {
	return f.favorites, f.favErr
}

func (f *fakeMarket) AddFavorite(_ context.Context, _, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, listingID)
	return nil
}

func (f *fakeMarket) RemoveFavorite(_ context.Context, _, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, listingID)
	return nil
}

const listingsJSON = `[
	{"id": 1, "title": "Shared Room in Annex", "type": "Roommates", "price": 950, "location": "Harbord & Spadina"},
	{"id": 2, "title": "Bright 1BR near St. George", "type": "Sublet", "price": 675, "location": "St. George & College"},
	{"id": 3, "title": "Desk & Chair Set", "type": "Furniture Market", "price": 80, "location": "Harbord & Spadina"}
]`

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOwner() User {
	return User{Name: "Dana", Email: "dana@mail.utoronto.ca"}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestOpenLoadsStoreAndFavorites(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favorites: []byte(`[2, "3"]`)}
	m := NewManager(mkt, nil, nil, quietLog(), time.Hour)

	s, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err)

	cards, _, _ := s.View()
	assert.Len(t, cards, 3)

	waitFor(t, s.FavoritesReady, "favorites never loaded")
	assert.True(t, s.IsFavorite("2"))
	assert.True(t, s.IsFavorite("3"))
	assert.False(t, s.IsFavorite("1"))
}

func TestOpenSurvivesFavoritesFailure(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favErr: errors.New("favorites down")}
	m := NewManager(mkt, nil, nil, quietLog(), time.Hour)

	s, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err, "a favorites outage must not fail the session")

	cards, _, _ := s.View()
	assert.Len(t, cards, 3)
}

func TestOpenFailsWhenListingsUnavailable(t *testing.T) {
	mkt := &fakeMarket{listErr: errors.New("market down")}
	m := NewManager(mkt, nil, nil, quietLog(), time.Hour)

	_, err := m.Open(context.Background(), testOwner(), "")
	require.Error(t, err)
	assert.Zero(t, m.Len())
}

func TestOpenResolvesCoordsAndPublishes(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favorites: []byte(`[]`)}
	geo := newFakeSessionGeocoder()
	geo.pts["Harbord & Spadina"] = geocode.Point{Lat: 43.66, Lon: -79.40}
	geo.errs["St. George & College"] = errors.New("upstream flake")

	pub := &recordingPub{}
	m := NewManager(mkt, &coords.Resolver{Geo: geo, Log: quietLog()}, pub, quietLog(), time.Hour)

	s, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err)

	resolved := func() int {
		n := 0
		for _, c := range s.Snapshot() {
			if c.Coords != nil {
				n++
			}
		}
		return n
	}
	waitFor(t, func() bool { return resolved() == 2 }, "coords never merged")

	for _, c := range s.Snapshot() {
		if c.ID == "2" {
			assert.Nil(t, c.Coords, "a failed lookup leaves that listing unplotted")
		} else {
			require.NotNil(t, c.Coords)
			assert.InDelta(t, 43.66, c.Coords[0], 1e-9)
		}
	}

	markers := s.Markers()
	assert.Len(t, markers, 2, "markers only for resolved listings")

	waitFor(t, func() bool { return len(pub.events()) == 2 }, "events never published")
	evts := pub.events()
	for _, evt := range evts {
		assert.Equal(t, s.ID, evt.SessionID)
		assert.Contains(t, []string{"1", "3"}, evt.ListingID)
	}
}

type recordingPub struct {
	mu   sync.Mutex
	evts []events.CoordsResolved
}

func (p *recordingPub) PublishCoordsResolved(_ context.Context, evt events.CoordsResolved) {
	p.mu.Lock()
	p.evts = append(p.evts, evt)
	p.mu.Unlock()
}

func (p *recordingPub) events() []events.CoordsResolved {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.CoordsResolved, len(p.evts))
	copy(out, p.evts)
	return out
}

func TestCloseCancelsGeocodeFanout(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favorites: []byte(`[]`)}
	geo := newFakeSessionGeocoder()
	geo.block = make(chan struct{})

	m := NewManager(mkt, &coords.Resolver{Geo: geo, Log: quietLog()}, nil, quietLog(), time.Hour)
	s, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err)

	waitFor(t, func() bool { return geo.blocked() > 0 }, "fan-out never started")
	require.NoError(t, m.Close(s.ID))

	waitFor(t, func() bool { return geo.cancelled() > 0 }, "in-flight lookups never saw the cancellation")
	close(geo.block)

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favorites: []byte(`[]`)}
	m := NewManager(mkt, nil, nil, quietLog(), 10*time.Millisecond)

	s, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	m.evictExpired()

	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDropListingFansOutToSessions(t *testing.T) {
	mkt := &fakeMarket{listings: []byte(listingsJSON), favorites: []byte(`[]`)}
	m := NewManager(mkt, nil, nil, quietLog(), time.Hour)

	a, err := m.Open(context.Background(), testOwner(), "")
	require.NoError(t, err)
	b, err := m.Open(context.Background(), User{Name: "Omar", Email: "omar@mail.utoronto.ca"}, "")
	require.NoError(t, err)

	m.DropListing("2")
	_, ok := a.Listing("2")
	assert.False(t, ok)
	_, ok = b.Listing("2")
	assert.False(t, ok)
}

// fakeSessionGeocoder is a controllable geocoder for manager tests.
type fakeSessionGeocoder struct {
	mu         sync.Mutex
	pts        map[string]geocode.Point
	errs       map[string]error
	block      chan struct{}
	nBlocked   int
	nCancelled int
}

func newFakeSessionGeocoder() *fakeSessionGeocoder {
	return &fakeSessionGeocoder{
		pts:  make(map[string]geocode.Point),
		errs: make(map[string]error),
	}
}

func (f *fakeSessionGeocoder) blocked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nBlocked
}

func (f *fakeSessionGeocoder) cancelled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nCancelled
}

func (f *fakeSessionGeocoder) Resolve(ctx context.Context, location string) (geocode.Point, error) {
	if f.block != nil {
		f.mu.Lock()
		f.nBlocked++
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			f.mu.Lock()
			f.nCancelled++
			f.mu.Unlock()
			return geocode.Point{}, ctx.Err()
		case <-f.block:
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[location]; ok {
		return geocode.Point{}, err
	}
	if pt, ok := f.pts[location]; ok {
		return pt, nil
	}
	return geocode.Point{}, geocode.ErrNoResult
}
