package models

import (
	"time"

	"hansa/internal/domain"
)

// Message belongs to exactly one conversation. ReceiverID duplicates "the
// other participant" for cheap unread queries. Deleting is soft: the row
// stays, content is cleared and attachments are removed.
type Message struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConversationID uint       `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint       `gorm:"not null;index" json:"sender_id"`
	ReceiverID     uint       `gorm:"not null;index" json:"receiver_id"`
	Type           string     `gorm:"size:20;not null;default:'TEXT'" json:"type"` // TEXT, FILE, IMAGE, SYSTEM, INQUIRY
	Content        string     `gorm:"type:text" json:"content"`
	Status         string     `gorm:"size:20;not null;default:'SENT';index" json:"status"` // SENT, DELIVERED, READ, DELETED
	DeliveredAt    *time.Time `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Conversation Conversation        `gorm:"foreignKey:ConversationID" json:"-"`
	Sender       User                `gorm:"foreignKey:SenderID" json:"-"`
	Attachments  []MessageAttachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// CanTransition reports whether the status machine allows moving to "to".
// No transition leaves DELETED.
func (m *Message) CanTransition(to string) bool {
	switch to {
	case domain.MessageDelivered:
		return m.Status == domain.MessageSent
	case domain.MessageRead:
		return m.Status == domain.MessageSent || m.Status == domain.MessageDelivered
	case domain.MessageDeleted:
		return m.Status != domain.MessageDeleted
	}
	return false
}

// MessageAttachment is exclusively owned by its message; removed when the
// message is deleted.
type MessageAttachment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MessageID    uint      `gorm:"not null;index" json:"message_id"`
	FileName     string    `gorm:"size:255" json:"file_name"`
	MimeType     string    `gorm:"size:128" json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	URL          string    `gorm:"size:512" json:"url"`
	ThumbnailURL string    `gorm:"size:512" json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (MessageAttachment) TableName() string {
	return "message_attachments"
}
