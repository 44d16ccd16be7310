package repository

import (
	"strings"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"

	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.Message) error {
	return r.db.Create(m).Error
}

func (r *MessageRepository) GetByID(id uint) (*models.Message, error) {
	var m models.Message
	err := r.db.Preload("Attachments").First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepository) Update(m *models.Message) error {
	return r.db.Save(m).Error
}

func (r *MessageRepository) ListByConversation(conversationID uint, limit, offset int) ([]models.Message, error) {
	var list []models.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Preload("Attachments").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// Search does a case-insensitive substring match over non-deleted content.
func (r *MessageRepository) Search(conversationID uint, query string, limit, offset int) ([]models.Message, error) {
	var list []models.Message
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.Where("conversation_id = ? AND status != ? AND LOWER(content) LIKE ?",
		conversationID, domain.MessageDeleted, pattern).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// LastMessage returns the newest message of the conversation, or nil when
// the conversation has none.
func (r *MessageRepository) LastMessage(conversationID uint) (*models.Message, error) {
	var m models.Message
	err := r.db.Where("conversation_id = ?", conversationID).Order("created_at DESC").First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// UnreadCount counts messages addressed to userID that are neither READ
// nor DELETED.
func (r *MessageRepository) UnreadCount(conversationID, userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND status NOT IN ?",
			conversationID, userID, []string{domain.MessageRead, domain.MessageDeleted}).
		Count(&n).Error
	return n, err
}

// MarkConversationRead transitions all of the user's unread inbound messages
// in the conversation to READ.
func (r *MessageRepository) MarkConversationRead(conversationID, userID uint, at time.Time) error {
	return r.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND status IN ?",
			conversationID, userID, []string{domain.MessageSent, domain.MessageDelivered}).
		Updates(map[string]interface{}{"status": domain.MessageRead, "read_at": at}).Error
}

func (r *MessageRepository) AddAttachment(a *models.MessageAttachment) error {
	return r.db.Create(a).Error
}

// DeleteAttachments removes all attachments of a message; called when the
// sender deletes the message.
func (r *MessageRepository) DeleteAttachments(messageID uint) error {
	return r.db.Where("message_id = ?", messageID).Delete(&models.MessageAttachment{}).Error
}
