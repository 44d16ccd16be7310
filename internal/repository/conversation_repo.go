package repository

import (
	"errors"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindOrCreate returns the conversation for the participant pair (either
// direction) and listing, creating one when absent. Matching ignores status
// so one tuple never holds two threads: an ARCHIVED or CLOSED hit is
// reactivated, a BLOCKED hit is refused. The lookup runs in a transaction
// with a row lock so two near-simultaneous calls for the same tuple cannot
// produce two conversations. When firstMessage is non-nil it is inserted in
// the same transaction and last_message_at is set from it; it is ignored
// when an existing conversation is reused.
func (r *ConversationRepository) FindOrCreate(conv *models.Conversation, firstMessage *models.Message) (*models.Conversation, bool, error) {
	var out *models.Conversation
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("((initiator_id = ? AND receiver_id = ?) OR (initiator_id = ? AND receiver_id = ?)) AND listing_id <=> ?",
				conv.InitiatorID, conv.ReceiverID, conv.ReceiverID, conv.InitiatorID, conv.ListingID).
			First(&existing).Error
		if err == nil {
			if existing.Status == domain.ConversationBlocked {
				return domain.ErrConversationBlocked
			}
			if existing.Status != domain.ConversationActive {
				if err := tx.Model(&existing).Update("status", domain.ConversationActive).Error; err != nil {
					return err
				}
				existing.Status = domain.ConversationActive
			}
			out = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		if firstMessage != nil {
			firstMessage.ConversationID = conv.ID
			if err := tx.Create(firstMessage).Error; err != nil {
				return err
			}
			conv.LastMessageAt = &firstMessage.CreatedAt
			if err := tx.Model(conv).Update("last_message_at", firstMessage.CreatedAt).Error; err != nil {
				return err
			}
		}
		out = conv
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

func (r *ConversationRepository) GetByID(id uint) (*models.Conversation, error) {
	var c models.Conversation
	err := r.db.Preload("Listing").First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) Update(c *models.Conversation) error {
	return r.db.Save(c).Error
}

// ListByUser returns conversations where the user is either participant,
// most recently messaged first; conversations without any message sort last.
func (r *ConversationRepository) ListByUser(userID uint, limit, offset int) ([]models.Conversation, error) {
	var list []models.Conversation
	err := r.db.Where("initiator_id = ? OR receiver_id = ?", userID, userID).
		Order("last_message_at IS NULL, last_message_at DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, err
}

// TouchLastMessage bumps the inbox ordering timestamp after a send and
// reactivates an ARCHIVED or CLOSED conversation.
func (r *ConversationRepository) TouchLastMessage(id uint, at time.Time) error {
	return r.db.Model(&models.Conversation{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"status":          domain.ConversationActive,
		}).Error
}

// ListActiveByListing returns ACTIVE conversations tied to the listing,
// used to fan out listing-update notifications.
func (r *ConversationRepository) ListActiveByListing(listingID uint) ([]models.Conversation, error) {
	var list []models.Conversation
	err := r.db.Where("listing_id = ? AND status = ?", listingID, domain.ConversationActive).Find(&list).Error
	return list, err
}
