package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func popupSession() *Session {
	return newSession("s1", User{Email: "dana@mail.utoronto.ca"}, "", sampleListings())
}

func TestPopupHoverOpensAndCloses(t *testing.T) {
	s := popupSession()
	require.Equal(t, PopupClosed, s.PopupStateOf("1"))

	require.NoError(t, s.MarkerHover("1", true))
	assert.Equal(t, PopupHoverOpen, s.PopupStateOf("1"))

	require.NoError(t, s.MarkerHover("1", false))
	assert.Equal(t, PopupClosed, s.PopupStateOf("1"))
}

func TestPopupClickPins(t *testing.T) {
	s := popupSession()

	require.NoError(t, s.MarkerClick("1"))
	assert.Equal(t, PopupPinnedOpen, s.PopupStateOf("1"))

	// hover leave must not close a pinned popup
	require.NoError(t, s.MarkerHover("1", false))
	assert.Equal(t, PopupPinnedOpen, s.PopupStateOf("1"))

	s.ClosePopup("1")
	assert.Equal(t, PopupClosed, s.PopupStateOf("1"))
}

func TestPopupClickSetsLocationFilterAndClearsSearch(t *testing.T) {
	s := popupSession()
	s.SetFilter(FilterState{Category: CategoryAll, Search: "desk"})

	require.NoError(t, s.MarkerClick("1"))
	f := s.Filter()
	require.NotNil(t, f.Location)
	assert.Equal(t, "Harbord & Spadina", *f.Location)
	assert.Empty(t, f.Search)

	cards, _, _ := s.View()
	assert.Equal(t, []string{"1", "3"}, ids(cards), "view narrows to that exact location")
}

func TestPopupCloseKeepsLocationFilter(t *testing.T) {
	s := popupSession()
	require.NoError(t, s.MarkerClick("1"))

	s.ClosePopup("1")
	f := s.Filter()
	require.NotNil(t, f.Location, "closing the popup does not reset the filters")

	s.ClearFilters()
	assert.Nil(t, s.Filter().Location)
}

func TestClearFiltersUnpins(t *testing.T) {
	s := popupSession()
	require.NoError(t, s.MarkerClick("1"))
	require.NoError(t, s.MarkerHover("2", true))

	s.ClearFilters()
	assert.Equal(t, PopupClosed, s.PopupStateOf("1"))
	assert.Equal(t, PopupClosed, s.PopupStateOf("2"))
}

func TestPopupClickMovesPin(t *testing.T) {
	s := popupSession()
	require.NoError(t, s.MarkerClick("1"))
	require.NoError(t, s.MarkerClick("2"))

	assert.Equal(t, PopupClosed, s.PopupStateOf("1"), "only one popup is pinned at a time")
	assert.Equal(t, PopupPinnedOpen, s.PopupStateOf("2"))
	assert.Equal(t, "St. George & College", *s.Filter().Location)
}

func TestPopupUnknownListing(t *testing.T) {
	s := popupSession()
	assert.ErrorIs(t, s.MarkerClick("nope"), ErrUnknownListing)
	assert.ErrorIs(t, s.MarkerHover("nope", true), ErrUnknownListing)
}

func TestDropListingClearsPopupState(t *testing.T) {
	s := popupSession()
	require.NoError(t, s.MarkerClick("1"))

	s.DropListing("1")
	assert.Equal(t, PopupClosed, s.PopupStateOf("1"))
	_, ok := s.Listing("1")
	assert.False(t, ok)
}
