package events

import (
	"context"
	"sync"
)

// CoordsResolved is emitted when a listing's location has been geocoded
// and merged into a session's listing store.
type CoordsResolved struct {
	SessionID string     `json:"session_id"`
	ListingID string     `json:"listing_id"`
	Coords    [2]float64 `json:"coords"` // [lat, lon]
}

type Publisher interface {
	PublishCoordsResolved(ctx context.Context, evt CoordsResolved)
}

// Broker fans CoordsResolved events out to per-connection subscriber
// channels, keyed by session id. A slow or gone subscriber never blocks
// the publisher; its events are dropped.
type Broker struct {
	mu   sync.RWMutex
	subs map[string][]chan CoordsResolved
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string][]chan CoordsResolved)}
}

func (b *Broker) PublishCoordsResolved(_ context.Context, evt CoordsResolved) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[evt.SessionID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a buffered channel for one session's events and
// returns it with a cancel func that unregisters and closes it.
func (b *Broker) Subscribe(sessionID string) (<-chan CoordsResolved, func()) {
	ch := make(chan CoordsResolved, 64)
	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		remaining := b.subs[sessionID][:0]
		for _, c := range b.subs[sessionID] {
			if c != ch {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == 0 {
			delete(b.subs, sessionID)
		} else {
			b.subs[sessionID] = remaining
		}
		close(ch)
	}
	return ch, cancel
}
