package market

import (
	"encoding/json"
	"strconv"
	"time"
)

// stringNumber accepts string or number JSON and stores as string.
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = stringNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = stringNumber(num.String())
	return nil
}

func (s stringNumber) Int() int {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// The backend is loose about types: ids arrive as numbers or strings, the
// oldest rows carry a single `image` instead of `images`, and lat/lng are
// present only for listings created after geocode-at-create shipped.
type wireListing struct {
	ID          stringNumber `json:"id"`
	Title       string       `json:"title"`
	Type        string       `json:"type"`
	Price       stringNumber `json:"price"`
	Negotiable  bool         `json:"negotiable"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Images      []string     `json:"images"`
	Poster      Poster       `json:"poster"`
	DatePosted  string       `json:"datePosted"`

	Bedrooms           stringNumber `json:"bedrooms"`
	Bathrooms          stringNumber `json:"bathrooms"`
	Amenities          []string     `json:"amenities"`
	StartDate          string       `json:"startDate"`
	EndDate            string       `json:"endDate"`
	RoommatePreference string       `json:"roommatePreference"`

	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (w wireListing) toCard() ListingCard {
	imgs := w.Images
	if len(imgs) == 0 && w.Image != "" {
		imgs = []string{w.Image}
	}
	card := ListingCard{
		ID:                 string(w.ID),
		Title:              w.Title,
		Type:               w.Type,
		Price:              w.Price.Int(),
		Negotiable:         w.Negotiable,
		Location:           w.Location,
		Description:        w.Description,
		Images:             imgs,
		Poster:             w.Poster,
		DatePosted:         w.DatePosted,
		PostedAt:           ParsePosted(w.DatePosted),
		Bedrooms:           w.Bedrooms.Int(),
		Bathrooms:          w.Bathrooms.Int(),
		Amenities:          w.Amenities,
		StartDate:          w.StartDate,
		EndDate:            w.EndDate,
		RoommatePreference: w.RoommatePreference,
	}
	card.DurationMonths = MonthsBetween(w.StartDate, w.EndDate)
	if w.Lat != nil && w.Lng != nil {
		card.Coords = &[2]float64{*w.Lat, *w.Lng}
	}
	return card
}

func MapListings(raw []byte) ([]ListingCard, error) {
	var rows []wireListing
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]ListingCard, 0, len(rows))
	for _, w := range rows {
		out = append(out, w.toCard())
	}
	return out, nil
}

func MapListing(raw []byte) (ListingCard, error) {
	var w wireListing
	if err := json.Unmarshal(raw, &w); err != nil {
		return ListingCard{}, err
	}
	return w.toCard(), nil
}

// MapFavoriteIDs normalizes the favorites payload to string ids.
func MapFavoriteIDs(raw []byte) ([]string, error) {
	var rows []stringNumber
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, id := range rows {
		if id != "" {
			out = append(out, string(id))
		}
	}
	return out, nil
}

type wireMessage struct {
	ID            stringNumber `json:"id"`
	FromUser      bool         `json:"from_user"`
	SenderName    string       `json:"sender_name"`
	RecipientName string       `json:"recipient_name"`
	Text          string       `json:"text"`
	SentAt        string       `json:"sent_at"`
}

func (w wireMessage) toMessage() Message {
	return Message{
		ID:            string(w.ID),
		FromUser:      w.FromUser,
		SenderName:    w.SenderName,
		RecipientName: w.RecipientName,
		Text:          w.Text,
		SentAt:        w.SentAt,
	}
}

func MapMessage(raw []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Message{}, err
	}
	return w.toMessage(), nil
}

func MapMessages(raw []byte) ([]Message, error) {
	var rows []wireMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(rows))
	for _, w := range rows {
		out = append(out, w.toMessage())
	}
	return out, nil
}

var postedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
	"2006/01/02",
}

// ParsePosted parses a datePosted value. Missing or unparseable dates map
// to the zero time so recency sorting treats them as oldest instead of
// failing on "Invalid Date".
func ParsePosted(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range postedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MonthsBetween returns the count of whole months between two date-only
// strings, 0 when either is absent or malformed or the range is inverted.
// Sublet cards display this as the stay duration.
func MonthsBetween(start, end string) int {
	s := ParsePosted(start)
	e := ParsePosted(end)
	if s.IsZero() || e.IsZero() || e.Before(s) {
		return 0
	}
	months := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if e.Day() < s.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
