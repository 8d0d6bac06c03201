package market

import "time"

// Listing categories as the marketplace backend spells them.
const (
	CategoryRoommates = "Roommates"
	CategorySublet    = "Sublet"
	CategoryFurniture = "Furniture Market"
	CategoryLongTerm  = "Long-Term Housing"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryRoommates, CategorySublet, CategoryFurniture, CategoryLongTerm:
		return true
	}
	return false
}

type Poster struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar,omitempty"`
	Program string `json:"program,omitempty"`
	Year    string `json:"year,omitempty"`
}

type ListingCard struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Price       int      `json:"price"`
	Negotiable  bool     `json:"negotiable"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Poster      Poster   `json:"poster"`

	DatePosted string    `json:"datePosted,omitempty"`
	PostedAt   time.Time `json:"-"` // parsed DatePosted; zero when missing/invalid

	Bedrooms           int      `json:"bedrooms,omitempty"`
	Bathrooms          int      `json:"bathrooms,omitempty"`
	Amenities          []string `json:"amenities,omitempty"`
	StartDate          string   `json:"startDate,omitempty"`
	EndDate            string   `json:"endDate,omitempty"`
	DurationMonths     int      `json:"durationMonths,omitempty"`
	RoommatePreference string   `json:"roommatePreference,omitempty"`

	// Coords is [lat, lon]; nil until geocoding resolves the location.
	Coords *[2]float64 `json:"coords,omitempty"`
}

type Message struct {
	ID            string `json:"id,omitempty"`
	FromUser      bool   `json:"from_user"`
	SenderName    string `json:"sender_name"`
	RecipientName string `json:"recipient_name"`
	Text          string `json:"text"`
	SentAt        string `json:"sent_at,omitempty"`
}
