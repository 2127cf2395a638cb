package models

import "time"

type Conversation struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	PropertyID    *uint      `gorm:"index" json:"property_id,omitempty"`
	BookingID     *uint      `gorm:"uniqueIndex" json:"booking_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Property     *Property                 `gorm:"foreignKey:PropertyID;constraint:OnDelete:SET NULL" json:"-"`
	Booking      *Booking                  `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
}

// ConversationParticipant is the join row between conversations and users.
type ConversationParticipant struct {
	ConversationID uint      `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;index" json:"user_id"`
	JoinedAt       time.Time `gorm:"not null" json:"joined_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (c *Conversation) ParticipantIDs() []uint {
	ids := make([]uint, len(c.Participants))
	for i, p := range c.Participants {
		ids[i] = p.UserID
	}
	return ids
}
