package models

import "time"

// Upload is the relational record of an object held in the file store.
type Upload struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	ObjectID    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Filename    string    `gorm:"not null" json:"filename"`
	ContentType string    `gorm:"type:varchar(100);not null" json:"content_type"`
	Size        int64     `gorm:"not null" json:"size"`
	CreatedAt   time.Time `json:"created_at"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}
