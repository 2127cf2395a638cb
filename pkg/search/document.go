package search

import "time"

// Document is the indexed shape of a listing.
type Document struct {
	ID           uint      `json:"id"`
	OwnerID      uint      `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PropertyType string    `json:"property_type"`
	ListingType  string    `json:"listing_type"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	Country      string    `json:"country,omitempty"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	MaxGuests    int       `json:"max_guests"`
	Amenities    []string  `json:"amenities,omitempty"`
	IsAvailable  bool      `json:"is_available"`
	Location     *GeoPoint `json:"location,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query holds the user-facing search filters. Zero values mean "no filter".
type Query struct {
	Text         string
	City         string
	PropertyType string
	ListingType  string
	MinPrice     *float64
	MaxPrice     *float64
	Bedrooms     int
	Guests       int
	Lat          *float64
	Lng          *float64
	RadiusKm     float64
	From         int
	Size         int
}

func (q Query) HasGeo() bool {
	return q.Lat != nil && q.Lng != nil && q.RadiusKm > 0
}

type Result struct {
	Total int64      `json:"total"`
	Hits  []Document `json:"hits"`
}
