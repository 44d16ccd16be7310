package service

import (
	"context"
	"errors"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"

	"gorm.io/gorm"
)

// Store interfaces are declared on the consumer side so services can be
// tested against in-memory fakes; the gorm repositories satisfy them.

type ConversationStore interface {
	FindOrCreate(conv *models.Conversation, firstMessage *models.Message) (*models.Conversation, bool, error)
	GetByID(id uint) (*models.Conversation, error)
	Update(c *models.Conversation) error
	ListByUser(userID uint, limit, offset int) ([]models.Conversation, error)
	TouchLastMessage(id uint, at time.Time) error
	ListActiveByListing(listingID uint) ([]models.Conversation, error)
}

type MessageStore interface {
	Create(m *models.Message) error
	GetByID(id uint) (*models.Message, error)
	Update(m *models.Message) error
	ListByConversation(conversationID uint, limit, offset int) ([]models.Message, error)
	Search(conversationID uint, query string, limit, offset int) ([]models.Message, error)
	LastMessage(conversationID uint) (*models.Message, error)
	UnreadCount(conversationID, userID uint) (int64, error)
	MarkConversationRead(conversationID, userID uint, at time.Time) error
	AddAttachment(a *models.MessageAttachment) error
	DeleteAttachments(messageID uint) error
}

type NotificationStore interface {
	Create(n *models.Notification) error
	GetByID(id uint) (*models.Notification, error)
	ListByUser(userID uint, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkRead(id, userID uint, at time.Time) error
	MarkAllRead(userID uint, at time.Time) error
	UnreadCount(userID uint) (int64, error)
	Delete(id, userID uint) error
	GetSettings(userID uint) (*models.NotificationSettings, error)
	SaveSettings(s *models.NotificationSettings) error
}

type UserStore interface {
	GetByID(id uint) (*models.User, error)
}

type ListingStore interface {
	GetByID(id uint) (*models.Listing, error)
}

// Broadcaster mirrors persisted state changes to connected clients.
// Delivery is best-effort, at-most-once per connected client; disconnected
// clients resync over REST.
type Broadcaster interface {
	ToUser(userID uint, event string, payload map[string]interface{})
	ToConversation(conversationID, exceptUserID uint, event string, payload map[string]interface{})
	// IsViewing is the presence signal: true when the user has joined the
	// conversation room on an open socket.
	IsViewing(conversationID, userID uint) bool
}

// Pusher delivers push notifications to a device token.
type Pusher interface {
	SendToUser(ctx context.Context, token, notifType, title, body string, data map[string]interface{}) error
}

// translateNotFound maps storage misses onto the domain error taxonomy.
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageBounds(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
