package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a thread between exactly two users, optionally tied to a
// listing. Status is shared by both participants; blocking is symmetric and
// records who set it so only that user can lift it. Conversations are never
// physically deleted in normal flow.
type Conversation struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	InitiatorID   uint           `gorm:"not null;index:idx_conversation_pair" json:"initiator_id"`
	ReceiverID    uint           `gorm:"not null;index:idx_conversation_pair" json:"receiver_id"`
	ListingID     *uint          `gorm:"index" json:"listing_id,omitempty"`
	Subject       string         `gorm:"size:255" json:"subject"`
	Status        string         `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"` // ACTIVE, ARCHIVED, BLOCKED, CLOSED
	BlockedBy     *uint          `json:"blocked_by,omitempty"`
	LastMessageAt *time.Time     `gorm:"index" json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Initiator User     `gorm:"foreignKey:InitiatorID" json:"-"`
	Receiver  User     `gorm:"foreignKey:ReceiverID" json:"-"`
	Listing   *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) HasParticipant(userID uint) bool {
	return userID == c.InitiatorID || userID == c.ReceiverID
}

// OtherParticipant returns the participant that is not userID.
// Caller must check HasParticipant first.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if userID == c.InitiatorID {
		return c.ReceiverID
	}
	return c.InitiatorID
}
