package models

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ActiveStatuses hold their date range against other bookings.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type Booking struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	PropertyID      uint          `gorm:"not null;index:idx_booking_property_range,priority:1" json:"property_id"`
	GuestID         uint          `gorm:"not null;index" json:"guest_id"`
	StartDate       time.Time     `gorm:"not null;index:idx_booking_property_range,priority:2" json:"start_date"`
	EndDate         time.Time     `gorm:"not null;index:idx_booking_property_range,priority:3" json:"end_date"`
	Guests          int           `gorm:"not null" json:"guests"`
	TotalPrice      float64       `gorm:"not null" json:"total_price"`
	Currency        string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaymentIntentID *string       `gorm:"type:varchar(255);uniqueIndex" json:"payment_intent_id,omitempty"`
	AmountPaid      float64       `json:"amount_paid"`
	RefundID        string        `gorm:"type:varchar(255)" json:"refund_id,omitempty"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	Notes           string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	Property *Property `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"property,omitempty"`
	Guest    *User     `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"guest,omitempty"`
}

// Nights counts whole days between check-in and check-out.
func (b *Booking) Nights() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}
