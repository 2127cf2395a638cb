package dto

import (
	"time"

	"github.com/Eursukkul/rental-marketplace/internal/models"
	"github.com/Eursukkul/rental-marketplace/internal/service"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type UserResponse struct {
	ID        uint        `json:"id"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone,omitempty"`
	AvatarURL string      `json:"avatar_url,omitempty"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type PresenceResponse struct {
	UserID uint `json:"user_id"`
	Online bool `json:"online"`
}

type PropertyResponse struct {
	ID            uint                   `json:"id"`
	OwnerID       uint                   `json:"owner_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	PropertyType  models.PropertyType    `json:"property_type"`
	ListingType   models.ListingType     `json:"listing_type"`
	Address       string                 `json:"address"`
	City          string                 `json:"city"`
	State         string                 `json:"state,omitempty"`
	Country       string                 `json:"country,omitempty"`
	PostalCode    string                 `json:"postal_code,omitempty"`
	Latitude      *float64               `json:"latitude"`
	Longitude     *float64               `json:"longitude"`
	Price         float64                `json:"price"`
	Currency      string                 `json:"currency"`
	Bedrooms      int                    `json:"bedrooms"`
	Bathrooms     int                    `json:"bathrooms"`
	MaxGuests     int                    `json:"max_guests"`
	Amenities     []string               `json:"amenities"`
	IsAvailable   bool                   `json:"is_available"`
	AvailableFrom *time.Time             `json:"available_from,omitempty"`
	Images        []models.PropertyImage `json:"images"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

type BookingResponse struct {
	ID            uint                 `json:"id"`
	PropertyID    uint                 `json:"property_id"`
	GuestID       uint                 `json:"guest_id"`
	StartDate     string               `json:"start_date"`
	EndDate       string               `json:"end_date"`
	Nights        int                  `json:"nights"`
	Guests        int                  `json:"guests"`
	TotalPrice    float64              `json:"total_price"`
	Currency      string               `json:"currency"`
	Status        models.BookingStatus `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Notes         string               `json:"notes,omitempty"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	Property      *PropertySummary     `json:"property,omitempty"`
}

type PropertySummary struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	City    string `json:"city"`
	OwnerID uint   `json:"owner_id"`
}

type PaymentResponse struct {
	BookingID       uint                 `json:"booking_id"`
	PaymentStatus   models.PaymentStatus `json:"payment_status"`
	PaymentIntentID string               `json:"payment_intent_id,omitempty"`
	Amount          float64              `json:"amount"`
	AmountPaid      float64              `json:"amount_paid"`
	Currency        string               `json:"currency"`
	RefundID        string               `json:"refund_id,omitempty"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
}

type PaymentIntentResponse struct {
	ClientSecret    string  `json:"client_secret"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type ConversationResponse struct {
	ID            uint                  `json:"id"`
	PropertyID    *uint                 `json:"property_id,omitempty"`
	BookingID     *uint                 `json:"booking_id,omitempty"`
	Participants  []ParticipantResponse `json:"participants"`
	LastMessageAt *time.Time            `json:"last_message_at,omitempty"`
	UnreadCount   *int64                `json:"unread_count,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type ParticipantResponse struct {
	UserID    uint      `json:"user_id"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

type MessageResponse struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	Content        string    `json:"content"`
	ReadBy         []uint    `json:"read_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type UploadResponse struct {
	ID          uint      `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"

func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func ToAuthResponse(r *service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt,
		User:      ToUserResponse(r.User),
	}
}

func ToPropertyResponse(p *models.Property) PropertyResponse {
	amenities := []string(p.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	images := p.Images
	if images == nil {
		images = []models.PropertyImage{}
	}
	return PropertyResponse{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Title:         p.Title,
		Description:   p.Description,
		PropertyType:  p.PropertyType,
		ListingType:   p.ListingType,
		Address:       p.Address,
		City:          p.City,
		State:         p.State,
		Country:       p.Country,
		PostalCode:    p.PostalCode,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		Price:         p.Price,
		Currency:      p.Currency,
		Bedrooms:      p.Bedrooms,
		Bathrooms:     p.Bathrooms,
		MaxGuests:     p.MaxGuests,
		Amenities:     amenities,
		IsAvailable:   p.IsAvailable,
		AvailableFrom: p.AvailableFrom,
		Images:        images,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID,
		PropertyID:    b.PropertyID,
		GuestID:       b.GuestID,
		StartDate:     b.StartDate.Format(dateLayout),
		EndDate:       b.EndDate.Format(dateLayout),
		Nights:        b.Nights(),
		Guests:        b.Guests,
		TotalPrice:    b.TotalPrice,
		Currency:      b.Currency,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Notes:         b.Notes,
		CancelledAt:   b.CancelledAt,
		CreatedAt:     b.CreatedAt,
	}
	if b.Property != nil {
		resp.Property = &PropertySummary{
			ID:      b.Property.ID,
			Title:   b.Property.Title,
			City:    b.Property.City,
			OwnerID: b.Property.OwnerID,
		}
	}
	return resp
}

func ToBookingResponses(bookings []models.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = ToBookingResponse(&bookings[i])
	}
	return resp
}

func ToPaymentResponse(b *models.Booking) PaymentResponse {
	resp := PaymentResponse{
		BookingID:     b.ID,
		PaymentStatus: b.PaymentStatus,
		Amount:        b.TotalPrice,
		AmountPaid:    b.AmountPaid,
		Currency:      b.Currency,
		RefundID:      b.RefundID,
		PaidAt:        b.PaidAt,
	}
	if b.PaymentIntentID != nil {
		resp.PaymentIntentID = *b.PaymentIntentID
	}
	return resp
}

func ToPaymentIntentResponse(r *service.PaymentIntentResult) PaymentIntentResponse {
	return PaymentIntentResponse{
		ClientSecret:    r.ClientSecret,
		PaymentIntentID: r.PaymentIntentID,
		Amount:          r.Amount,
		Currency:        r.Currency,
	}
}

func ToConversationResponse(c *models.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:            c.ID,
		PropertyID:    c.PropertyID,
		BookingID:     c.BookingID,
		Participants:  make([]ParticipantResponse, len(c.Participants)),
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
	}
	for i, p := range c.Participants {
		resp.Participants[i] = ParticipantResponse{UserID: p.UserID, JoinedAt: p.JoinedAt}
		if p.User != nil {
			resp.Participants[i].FirstName = p.User.FirstName
			resp.Participants[i].LastName = p.User.LastName
		}
	}
	return resp
}

func ToConversationSummaries(summaries []service.ConversationSummary) []ConversationResponse {
	resp := make([]ConversationResponse, len(summaries))
	for i := range summaries {
		resp[i] = ToConversationResponse(&summaries[i].Conversation)
		unread := summaries[i].UnreadCount
		resp[i].UnreadCount = &unread
	}
	return resp
}

func ToMessageResponse(m *models.Message) MessageResponse {
	resp := MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		ReadBy:         make([]uint, len(m.Reads)),
		CreatedAt:      m.CreatedAt,
	}
	for i, r := range m.Reads {
		resp.ReadBy[i] = r.UserID
	}
	return resp
}

func ToMessageResponses(messages []models.Message) []MessageResponse {
	resp := make([]MessageResponse, len(messages))
	for i := range messages {
		resp[i] = ToMessageResponse(&messages[i])
	}
	return resp
}

func ToUploadResponse(u *models.Upload, url string) UploadResponse {
	return UploadResponse{
		ID:          u.ID,
		URL:         url,
		Filename:    u.Filename,
		ContentType: u.ContentType,
		Size:        u.Size,
		CreatedAt:   u.CreatedAt,
	}
}
