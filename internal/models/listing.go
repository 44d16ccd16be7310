package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing is a marketplace listing (business, domain name or social account).
// Conversations reference listings weakly: removing a listing never removes
// the conversations that were started about it.
type Listing struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OwnerID       uint           `gorm:"not null;index" json:"owner_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Category      string         `gorm:"size:20;not null;index" json:"category"` // BUSINESS, DOMAIN, SOCIAL
	Description   string         `gorm:"type:text" json:"description"`
	AskingPrice   int64          `json:"asking_price"` // minor units
	Currency      string         `gorm:"size:3;default:'SEK'" json:"currency"`
	Status        string         `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"` // ACTIVE, SOLD, REMOVED
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (Listing) TableName() string {
	return "listings"
}
