package session

import "context"

// ToggleFavorite flips the listing's saved state optimistically, then
// syncs the change upstream. If the upstream call fails the flip is rolled
// back and the error returned, so the session never drifts from what the
// marketplace will report on the next visit.
func (m *Manager) ToggleFavorite(ctx context.Context, s *Session, listingID string) (bool, error) {
	if _, ok := s.Listing(listingID); !ok {
		return false, ErrUnknownListing
	}

	saved := s.flipFavorite(listingID)

	var err error
	if saved {
		err = m.Market.AddFavorite(ctx, s.Owner.Email, listingID)
	} else {
		err = m.Market.RemoveFavorite(ctx, s.Owner.Email, listingID)
	}
	if err != nil {
		s.flipFavorite(listingID)
		return !saved, err
	}
	return saved, nil
}
