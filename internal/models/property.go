package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "APARTMENT"
	PropertyHouse     PropertyType = "HOUSE"
	PropertyRoom      PropertyType = "ROOM"
	PropertyStudio    PropertyType = "STUDIO"
	PropertyVilla     PropertyType = "VILLA"
)

type ListingType string

const (
	// ListingShortTerm is priced per night.
	ListingShortTerm ListingType = "SHORT_TERM"
	// ListingLongTerm is priced per month.
	ListingLongTerm ListingType = "LONG_TERM"
)

type Property struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	OwnerID       uint                        `gorm:"not null;index" json:"owner_id"`
	Title         string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	PropertyType  PropertyType                `gorm:"type:varchar(20);not null" json:"property_type"`
	ListingType   ListingType                 `gorm:"type:varchar(20);not null" json:"listing_type"`
	Address       string                      `gorm:"not null" json:"address"`
	City          string                      `gorm:"type:varchar(100);not null;index" json:"city"`
	State         string                      `gorm:"type:varchar(100)" json:"state,omitempty"`
	Country       string                      `gorm:"type:varchar(100)" json:"country,omitempty"`
	PostalCode    string                      `gorm:"type:varchar(20)" json:"postal_code,omitempty"`
	Latitude      *float64                    `json:"latitude"`
	Longitude     *float64                    `json:"longitude"`
	Price         float64                     `gorm:"not null" json:"price"`
	Currency      string                      `gorm:"type:varchar(3);not null" json:"currency"`
	Bedrooms      int                         `json:"bedrooms"`
	Bathrooms     int                         `json:"bathrooms"`
	MaxGuests     int                         `gorm:"not null" json:"max_guests"`
	Amenities     datatypes.JSONSlice[string] `json:"amenities"`
	IsAvailable   bool                        `gorm:"not null;index" json:"is_available"`
	AvailableFrom *time.Time                  `json:"available_from,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`

	Owner  *User           `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Images []PropertyImage `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

func (p *Property) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// FullAddress joins the non-empty address parts for geocoding.
func (p *Property) FullAddress() string {
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Address, p.City, p.State, p.PostalCode, p.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

type PropertyImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PropertyID uint      `gorm:"not null;index" json:"property_id"`
	UploadID   uint      `gorm:"not null;index" json:"upload_id"`
	URL        string    `gorm:"not null" json:"url"`
	Position   int       `gorm:"not null" json:"position"`
	CreatedAt  time.Time `json:"created_at"`

	Upload *Upload `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
}
