package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/internal/coords"
	"github.com/yourorg/browse-api/internal/events"
	"github.com/yourorg/browse-api/market"
)

var ErrSessionNotFound = errors.New("session not found")

// MarketAPI is the slice of the marketplace client the manager needs.
// Satisfied by *market.Client.
type MarketAPI interface {
	FetchListings(ctx context.Context) ([]byte, error)
	FetchFavorites(ctx context.Context, email string) ([]byte, error)
	AddFavorite(ctx context.Context, email, listingID string) error
	RemoveFavorite(ctx context.Context, email, listingID string) error
}

// Manager owns the live sessions. Opening a session fetches the listing
// store synchronously, then kicks off the favorites fetch and the geocode
// fan-out in the background on a context the session's close cancels.
type Manager struct {
	Market MarketAPI
	Coords *coords.Resolver // nil disables geocoding
	Pub    events.Publisher
	Log    *slog.Logger
	TTL    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(mkt MarketAPI, res *coords.Resolver, pub events.Publisher, log *slog.Logger, ttl time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		Market:   mkt,
		Coords:   res,
		Pub:      pub,
		Log:      log,
		TTL:      ttl,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Open(ctx context.Context, owner User, token string) (*Session, error) {
	raw, err := m.Market.FetchListings(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := market.MapListings(raw)
	if err != nil {
		return nil, err
	}

	s := newSession(uuid.NewString(), owner, token, cards)
	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	go m.loadFavorites(bg, s)
	if m.Coords != nil {
		go m.resolveCoords(bg, s)
	}

	m.Log.Info("session opened", "session", s.ID, "user", owner.Email, "listings", len(cards))
	return s, nil
}

// loadFavorites fills the favorites set after open. A failure leaves the
// set empty rather than failing the session; toggles still work.
func (m *Manager) loadFavorites(ctx context.Context, s *Session) {
	raw, err := m.Market.FetchFavorites(ctx, s.Owner.Email)
	if err != nil {
		if ctx.Err() == nil {
			m.Log.Warn("favorites fetch failed", "session", s.ID, "err", err)
		}
		return
	}
	ids, err := market.MapFavoriteIDs(raw)
	if err != nil {
		m.Log.Warn("favorites decode failed", "session", s.ID, "err", err)
		return
	}
	s.setFavorites(ids)
}

func (m *Manager) resolveCoords(ctx context.Context, s *Session) {
	m.Coords.ResolveAll(ctx, s.Snapshot(), func(listingID string, pt geocode.Point) {
		if !s.SetCoords(listingID, pt) {
			return
		}
		if m.Pub != nil {
			m.Pub.PublishCoordsResolved(ctx, events.CoordsResolved{
				SessionID: s.ID,
				ListingID: listingID,
				Coords:    [2]float64{pt.Lat, pt.Lon},
			})
		}
	})
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Close tears the session down, cancelling any geocode lookups still in
// flight.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	if s.cancel != nil {
		s.cancel()
	}
	m.Log.Info("session closed", "session", id)
	return nil
}

// Sweep evicts idle sessions until ctx is cancelled.
func (m *Manager) Sweep(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	m.mu.Lock()
	var dead []*Session
	for id, s := range m.sessions {
		if s.expired(m.TTL) {
			delete(m.sessions, id)
			dead = append(dead, s)
		}
	}
	m.mu.Unlock()
	for _, s := range dead {
		if s.cancel != nil {
			s.cancel()
		}
		m.Log.Info("session expired", "session", s.ID)
	}
}

// UpsertListing pushes a created or updated listing into every live
// session, so a passthrough write shows up without a refetch.
func (m *Manager) UpsertListing(card market.ListingCard) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.UpsertListing(card)
	}
}

// DropListing removes a deleted listing from every live session.
func (m *Manager) DropListing(listingID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		s.DropListing(listingID)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
