package service

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"
	"hansa/pkg/cloudinary"

	"github.com/google/uuid"
)

// AttachmentPolicy is the upload allow-list; values come from config.
type AttachmentPolicy struct {
	MaxBytes         int64
	AllowedMimeTypes []string
}

func (p AttachmentPolicy) allows(mimeType string) bool {
	for _, m := range p.AllowedMimeTypes {
		if strings.EqualFold(m, mimeType) {
			return true
		}
	}
	return false
}

type MessageService struct {
	msgs     MessageStore
	convs    ConversationStore
	users    UserStore
	notifier *NotificationService
	rt       Broadcaster
	storage  cloudinary.Client
	policy   AttachmentPolicy
}

func NewMessageService(msgs MessageStore, convs ConversationStore, users UserStore, notifier *NotificationService, rt Broadcaster, storage cloudinary.Client, policy AttachmentPolicy) *MessageService {
	return &MessageService{msgs: msgs, convs: convs, users: users, notifier: notifier, rt: rt, storage: storage, policy: policy}
}

// Send appends a message to the conversation. Any sender fails while the
// conversation is BLOCKED; sending into an ARCHIVED or CLOSED conversation
// reactivates it. The receiver is notified unless the presence signal says
// they are viewing the conversation right now.
func (s *MessageService) Send(conversationID, senderID uint, content, msgType string) (*models.Message, error) {
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, domain.ErrNotParticipant
	}
	if conv.Status == domain.ConversationBlocked {
		return nil, domain.ErrConversationBlocked
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if !domain.ValidMessageType(msgType) {
		return nil, domain.ErrInvalidStatus
	}
	m := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.OtherParticipant(senderID),
		Type:           msgType,
		Content:        content,
		Status:         domain.MessageSent,
	}
	if err := s.msgs.Create(m); err != nil {
		return nil, err
	}
	if err := s.convs.TouchLastMessage(conv.ID, m.CreatedAt); err != nil {
		return nil, err
	}
	if s.rt != nil {
		s.rt.ToConversation(conv.ID, senderID, "new_message", messagePayload(m))
	}
	if s.rt == nil || !s.rt.IsViewing(conv.ID, m.ReceiverID) {
		s.notifyReceiver(conv, m)
	}
	return m, nil
}

func (s *MessageService) notifyReceiver(conv *models.Conversation, m *models.Message) {
	if s.notifier == nil {
		return
	}
	senderName := "Someone"
	if u, err := s.users.GetByID(m.SenderID); err == nil && u.Name != "" {
		senderName = u.Name
	}
	notifType := domain.NotificationMessage
	title := "New message"
	if m.Type == domain.MessageTypeInquiry {
		notifType = domain.NotificationListingInquiry
		title = "New inquiry"
	}
	data := map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      m.ID,
	}
	if conv.ListingID != nil {
		data["listing_id"] = *conv.ListingID
	}
	_, _ = s.notifier.Notify(m.ReceiverID, notifType, title, senderName+": "+preview(m.Content), data)
}

// MarkDelivered is the transport ack: receiver-only, SENT -> DELIVERED,
// a no-op for any later state.
func (s *MessageService) MarkDelivered(messageID, actingUserID uint) error {
	m, err := s.msgs.GetByID(messageID)
	if err != nil {
		return translateNotFound(err)
	}
	if m.ReceiverID != actingUserID {
		return domain.ErrNotOwner
	}
	if !m.CanTransition(domain.MessageDelivered) {
		return nil
	}
	now := time.Now()
	m.Status = domain.MessageDelivered
	m.DeliveredAt = &now
	return s.msgs.Update(m)
}

// MarkRead transitions SENT/DELIVERED -> READ. Only the receiver may call
// it; marking an already-read message is a no-op, not an error.
func (s *MessageService) MarkRead(messageID, actingUserID uint) error {
	m, err := s.msgs.GetByID(messageID)
	if err != nil {
		return translateNotFound(err)
	}
	if m.ReceiverID != actingUserID {
		return domain.ErrNotOwner
	}
	if m.Status == domain.MessageRead || m.Status == domain.MessageDeleted {
		return nil
	}
	now := time.Now()
	m.Status = domain.MessageRead
	m.ReadAt = &now
	if err := s.msgs.Update(m); err != nil {
		return err
	}
	if s.rt != nil {
		s.rt.ToUser(m.SenderID, "message_read", map[string]interface{}{
			"message_id":      m.ID,
			"conversation_id": m.ConversationID,
			"read_at":         now,
		})
	}
	return nil
}

// Delete is sender-only and soft: the row stays with status DELETED, content
// is cleared and attachments are removed. Idempotent.
func (s *MessageService) Delete(messageID, actingUserID uint) error {
	m, err := s.msgs.GetByID(messageID)
	if err != nil {
		return translateNotFound(err)
	}
	if m.SenderID != actingUserID {
		return domain.ErrNotOwner
	}
	if m.Status == domain.MessageDeleted {
		return nil
	}
	m.Status = domain.MessageDeleted
	m.Content = ""
	m.Attachments = nil
	if err := s.msgs.Update(m); err != nil {
		return err
	}
	if err := s.msgs.DeleteAttachments(m.ID); err != nil {
		return err
	}
	if s.rt != nil {
		s.rt.ToConversation(m.ConversationID, 0, "message_deleted", map[string]interface{}{
			"message_id":      m.ID,
			"conversation_id": m.ConversationID,
		})
	}
	return nil
}

// Search matches non-deleted message content case-insensitively, scoped to
// conversations the caller participates in. No matches is an empty list,
// not an error.
func (s *MessageService) Search(conversationID, userID uint, query string, page, pageSize int) ([]models.Message, error) {
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	if strings.TrimSpace(query) == "" {
		return []models.Message{}, nil
	}
	limit, offset := pageBounds(page, pageSize)
	return s.msgs.Search(conversationID, query, limit, offset)
}

// UploadAttachment validates the file against the allow-list and size limit,
// stores it and attaches the metadata to the message. Sender-only.
func (s *MessageService) UploadAttachment(ctx context.Context, messageID, actingUserID uint, file io.Reader, fileName, mimeType string, sizeBytes int64) (*models.MessageAttachment, error) {
	m, err := s.msgs.GetByID(messageID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if m.SenderID != actingUserID {
		return nil, domain.ErrNotOwner
	}
	if m.Status == domain.MessageDeleted {
		return nil, domain.ErrNotFound
	}
	if !s.policy.allows(mimeType) {
		return nil, domain.ErrUnsupportedFileType
	}
	if s.policy.MaxBytes > 0 && sizeBytes > s.policy.MaxBytes {
		return nil, domain.ErrFileTooLarge
	}
	folder := "hansa/attachments/" + strconv.FormatUint(uint64(m.ConversationID), 10)
	publicID := "att_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	var url, thumbURL string
	if strings.HasPrefix(mimeType, "image/") {
		url, thumbURL, err = s.storage.UploadImage(ctx, file, folder, publicID)
	} else {
		url, err = s.storage.UploadFile(ctx, file, folder, publicID)
	}
	if err != nil {
		return nil, err
	}
	a := &models.MessageAttachment{
		MessageID:    m.ID,
		FileName:     fileName,
		MimeType:     mimeType,
		SizeBytes:    sizeBytes,
		URL:          url,
		ThumbnailURL: thumbURL,
	}
	if err := s.msgs.AddAttachment(a); err != nil {
		return nil, err
	}
	return a, nil
}

func messagePayload(m *models.Message) map[string]interface{} {
	return map[string]interface{}{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"receiver_id":     m.ReceiverID,
		"message_type":    m.Type,
		"content":         m.Content,
		"status":          m.Status,
		"created_at":      m.CreatedAt,
	}
}

// preview truncates per rune, not per byte, so multi-byte letters (å/ä/ö)
// are never split into an invalid sequence.
func preview(content string) string {
	const max = 120
	if len(content) <= max {
		return content
	}
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "…"
}
