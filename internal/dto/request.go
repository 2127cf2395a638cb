package dto

import "time"

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	Role      string `json:"role" validate:"omitempty,oneof=USER AGENT LANDLORD"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER AGENT LANDLORD ADMIN"`
}

type CreatePropertyRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Description   string     `json:"description"`
	PropertyType  string     `json:"property_type" validate:"required,oneof=APARTMENT HOUSE ROOM STUDIO VILLA"`
	ListingType   string     `json:"listing_type" validate:"required,oneof=SHORT_TERM LONG_TERM"`
	Address       string     `json:"address" validate:"required"`
	City          string     `json:"city" validate:"required,max=100"`
	State         string     `json:"state" validate:"max=100"`
	Country       string     `json:"country" validate:"max=100"`
	PostalCode    string     `json:"postal_code" validate:"max=20"`
	Latitude      *float64   `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude     *float64   `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	Price         float64    `json:"price" validate:"gt=0"`
	Currency      string     `json:"currency" validate:"omitempty,len=3"`
	Bedrooms      int        `json:"bedrooms" validate:"gte=0"`
	Bathrooms     int        `json:"bathrooms" validate:"gte=0"`
	MaxGuests     int        `json:"max_guests" validate:"required,gt=0"`
	Amenities     []string   `json:"amenities" validate:"dive,required,max=50"`
	IsAvailable   *bool      `json:"is_available"`
	AvailableFrom *time.Time `json:"available_from"`
}

type UpdatePropertyRequest struct {
	Title         *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description"`
	PropertyType  *string    `json:"property_type" validate:"omitempty,oneof=APARTMENT HOUSE ROOM STUDIO VILLA"`
	ListingType   *string    `json:"listing_type" validate:"omitempty,oneof=SHORT_TERM LONG_TERM"`
	Address       *string    `json:"address" validate:"omitempty,min=1"`
	City          *string    `json:"city" validate:"omitempty,min=1,max=100"`
	State         *string    `json:"state" validate:"omitempty,max=100"`
	Country       *string    `json:"country" validate:"omitempty,max=100"`
	PostalCode    *string    `json:"postal_code" validate:"omitempty,max=20"`
	Latitude      *float64   `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude     *float64   `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	Price         *float64   `json:"price" validate:"omitempty,gt=0"`
	Currency      *string    `json:"currency" validate:"omitempty,len=3"`
	Bedrooms      *int       `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms     *int       `json:"bathrooms" validate:"omitempty,gte=0"`
	MaxGuests     *int       `json:"max_guests" validate:"omitempty,gt=0"`
	Amenities     *[]string  `json:"amenities"`
	IsAvailable   *bool      `json:"is_available"`
	AvailableFrom *time.Time `json:"available_from"`
}

type AddImageRequest struct {
	UploadID uint `json:"upload_id" validate:"required"`
}

type CreateBookingRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Guests    int    `json:"guests" validate:"required,gt=0"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED CANCELLED COMPLETED"`
}

type CreateConversationRequest struct {
	ParticipantIDs []uint `json:"participant_ids" validate:"dive,gt=0"`
	PropertyID     *uint  `json:"property_id"`
	BookingID      *uint  `json:"booking_id"`
	InitialMessage string `json:"initial_message" validate:"max=5000"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
