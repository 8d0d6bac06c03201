package session

// PopupState is the state of one marker's popup. Hovering a marker opens
// its popup transiently, clicking pins it; only a close dismisses a pinned
// popup. The states are explicit rather than implied by which map library
// callbacks have fired.
type PopupState string

const (
	PopupClosed     PopupState = "closed"
	PopupHoverOpen  PopupState = "hover-open"
	PopupPinnedOpen PopupState = "pinned-open"
)

// Marker is a map pin for a listing whose coordinates are known.
type Marker struct {
	ListingID string     `json:"listing_id"`
	Title     string     `json:"title"`
	Price     int        `json:"price"`
	Location  string     `json:"location"`
	Coords    [2]float64 `json:"coords"`
	Popup     PopupState `json:"popup"`
}

// MarkerClick pins the listing's popup open, narrows the view to listings
// at exactly that location, and clears any search text. Clicking another
// marker moves the pin; there is at most one pinned popup.
func (s *Session) MarkerClick(listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.find(listingID)
	if !ok {
		return ErrUnknownListing
	}
	loc := card.Location
	s.filter.Location = &loc
	s.filter.Search = ""
	s.pinned = listingID
	delete(s.hovered, listingID)
	return nil
}

// MarkerHover opens the popup while the cursor is over the marker and
// closes it on leave. A pinned popup ignores hover entirely.
func (s *Session) MarkerHover(listingID string, entered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.find(listingID); !ok {
		return ErrUnknownListing
	}
	if s.pinned == listingID {
		return nil
	}
	if entered {
		s.hovered[listingID] = true
	} else {
		delete(s.hovered, listingID)
	}
	return nil
}

// ClosePopup dismisses the listing's popup whatever state it is in. For a
// pinned popup this is the only way back to closed; the location filter it
// set stays until the filters change.
func (s *Session) ClosePopup(listingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned == listingID {
		s.pinned = ""
	}
	delete(s.hovered, listingID)
}

func (s *Session) PopupStateOf(listingID string) PopupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popupStateLocked(listingID)
}

func (s *Session) popupStateLocked(listingID string) PopupState {
	switch {
	case s.pinned == listingID:
		return PopupPinnedOpen
	case s.hovered[listingID]:
		return PopupHoverOpen
	default:
		return PopupClosed
	}
}

// Markers returns a pin for every listing in the current derived view that
// has resolved coordinates. Listings still waiting on the geocoder simply
// have no pin yet.
func (s *Session) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := Derive(s.listings, s.favorites, s.filter, s.Owner.Email)
	out := make([]Marker, 0, len(cards))
	for _, c := range cards {
		if c.Coords == nil {
			continue
		}
		out = append(out, Marker{
			ListingID: c.ID,
			Title:     c.Title,
			Price:     c.Price,
			Location:  c.Location,
			Coords:    *c.Coords,
			Popup:     s.popupStateLocked(c.ID),
		})
	}
	return out
}
