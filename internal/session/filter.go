package session

import (
	"sort"
	"strings"

	"github.com/yourorg/browse-api/market"
)

// Category filter values beyond the marketplace categories themselves.
const (
	CategoryAll   = "All"
	CategoryYours = "Your Listings"
)

// Sort keys, spelled the way the web client always has.
const (
	SortNone      = ""
	SortPriceLow  = "low"
	SortPriceHigh = "high"
	SortTitleAZ   = "az"
	SortTitleZA   = "za"
	SortRecent    = "recent"
)

func ValidSort(s string) bool {
	switch s {
	case SortNone, SortPriceLow, SortPriceHigh, SortTitleAZ, SortTitleZA, SortRecent:
		return true
	}
	return false
}

func ValidFilterCategory(c string) bool {
	return c == CategoryAll || c == CategoryYours || market.ValidCategory(c)
}

// FilterState is pure UI state. It never mutates the listing store or the
// favorites set.
type FilterState struct {
	Search     string  `json:"search"`
	Category   string  `json:"category"`
	PriceLimit int     `json:"price_limit"` // 0 = unbounded
	SavedOnly  bool    `json:"saved_only"`
	SortBy     string  `json:"sort"`
	Location   *string `json:"location"` // clicked map location, exact match
}

func DefaultFilter() FilterState {
	return FilterState{Category: CategoryAll}
}

// Derive applies every active filter predicate, then the sort key, over the
// listing store and returns the resulting view as a fresh slice. It is a
// pure function: same inputs, same output, inputs untouched.
func Derive(listings []market.ListingCard, favorites map[string]struct{}, f FilterState, ownerEmail string) []market.ListingCard {
	search := strings.ToLower(f.Search)

	out := make([]market.ListingCard, 0, len(listings))
	for _, l := range listings {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Title), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		switch f.Category {
		case "", CategoryAll:
		case CategoryYours:
			if l.Poster.Email != ownerEmail {
				continue
			}
		default:
			if l.Type != f.Category {
				continue
			}
		}
		if f.SavedOnly {
			if _, ok := favorites[l.ID]; !ok {
				continue
			}
		}
		if f.PriceLimit > 0 && l.Price > f.PriceLimit {
			continue
		}
		if f.Location != nil && l.Location != *f.Location {
			continue
		}
		out = append(out, l)
	}

	switch f.SortBy {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortTitleAZ:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	case SortTitleZA:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Title > out[j].Title })
	case SortRecent:
		// Zero PostedAt (missing or unparseable datePosted) sorts last and
		// compares equal among itself, so the order never depends on an
		// invalid date and never panics.
		sort.SliceStable(out, func(i, j int) bool { return out[i].PostedAt.After(out[j].PostedAt) })
	}
	return out
}
