package session

import (
	"errors"
	"sync"
	"time"

	"github.com/yourorg/browse-api/geocode"
	"github.com/yourorg/browse-api/market"
)

var ErrUnknownListing = errors.New("listing not in session store")

// User is the authenticated visitor a session belongs to.
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar,omitempty"`
	Program string `json:"program,omitempty"`
	Year    string `json:"year,omitempty"`
}

// Session holds one visit's listing store, favorites set, filter state and
// popup state. The listing store is fetched once when the session opens;
// coordinates stream in afterwards as the geocode fan-out completes.
type Session struct {
	ID    string
	Owner User
	Token string

	mu             sync.Mutex
	listings       []market.ListingCard
	favorites      map[string]struct{}
	favoritesReady bool
	filter         FilterState
	pinned         string
	hovered        map[string]bool

	createdAt time.Time
	lastSeen  time.Time
	cancel    func()
}

func newSession(id string, owner User, token string, listings []market.ListingCard) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Owner:     owner,
		Token:     token,
		listings:  listings,
		favorites: make(map[string]struct{}),
		filter:    DefaultFilter(),
		hovered:   make(map[string]bool),
		createdAt: now,
		lastSeen:  now,
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) expired(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ttl > 0 && time.Since(s.lastSeen) > ttl
}

// View derives the filtered, sorted listing slice for the current filter
// state, along with that state and the favorites set.
func (s *Session) View() ([]market.ListingCard, FilterState, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := Derive(s.listings, s.favorites, s.filter, s.Owner.Email)
	favs := make([]string, 0, len(s.favorites))
	for id := range s.favorites {
		favs = append(favs, id)
	}
	return cards, s.filter, favs
}

func (s *Session) Filter() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Session) SetFilter(f FilterState) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// ClearFilters resets every filter control at once, along with any pinned
// or hovering popup; the next View returns the full store in its original
// order.
func (s *Session) ClearFilters() {
	s.mu.Lock()
	s.filter = DefaultFilter()
	s.pinned = ""
	s.hovered = make(map[string]bool)
	s.mu.Unlock()
}

// SetCoords merges one resolved coordinate pair into the listing store.
// It reports whether the listing is still present, so late results for a
// meanwhile-deleted listing are dropped silently.
func (s *Session) SetCoords(listingID string, pt geocode.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == listingID {
			s.listings[i].Coords = &[2]float64{pt.Lat, pt.Lon}
			return true
		}
	}
	return false
}

func (s *Session) Snapshot() []market.ListingCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]market.ListingCard, len(s.listings))
	copy(out, s.listings)
	return out
}

func (s *Session) Listing(listingID string) (market.ListingCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.find(listingID)
	if !ok {
		return market.ListingCard{}, false
	}
	return *card, true
}

func (s *Session) setFavorites(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.favorites = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.favorites[id] = struct{}{}
	}
	s.favoritesReady = true
}

func (s *Session) FavoritesReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favoritesReady
}

func (s *Session) IsFavorite(listingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.favorites[listingID]
	return ok
}

// flipFavorite toggles membership and returns the new saved state.
func (s *Session) flipFavorite(listingID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[listingID]; ok {
		delete(s.favorites, listingID)
		return false
	}
	s.favorites[listingID] = struct{}{}
	return true
}

// UpsertListing replaces a listing in place or appends a new one, keeping
// a passthrough create or update visible without refetching the store.
func (s *Session) UpsertListing(card market.ListingCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == card.ID {
			if card.Coords == nil {
				card.Coords = s.listings[i].Coords
			}
			s.listings[i] = card
			return
		}
	}
	s.listings = append(s.listings, card)
}

// DropListing removes a listing from the store along with any popup or
// favorite state that referenced it.
func (s *Session) DropListing(listingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == listingID {
			s.listings = append(s.listings[:i], s.listings[i+1:]...)
			break
		}
	}
	if s.pinned == listingID {
		s.pinned = ""
	}
	delete(s.hovered, listingID)
	delete(s.favorites, listingID)
}

func (s *Session) find(listingID string) (*market.ListingCard, bool) {
	for i := range s.listings {
		if s.listings[i].ID == listingID {
			return &s.listings[i], true
		}
	}
	return nil, false
}
