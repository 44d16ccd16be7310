package service

import (
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"
)

type ConversationService struct {
	convs    ConversationStore
	msgs     MessageStore
	users    UserStore
	listings ListingStore
	msgSvc   *MessageService
	notifier *NotificationService
	rt       Broadcaster
}

func NewConversationService(convs ConversationStore, msgs MessageStore, users UserStore, listings ListingStore, msgSvc *MessageService, notifier *NotificationService, rt Broadcaster) *ConversationService {
	return &ConversationService{convs: convs, msgs: msgs, users: users, listings: listings, msgSvc: msgSvc, notifier: notifier, rt: rt}
}

type CreateConversationInput struct {
	InitiatorID    uint
	ReceiverID     uint
	ListingID      *uint
	Subject        string
	InitialMessage string
}

// Create is idempotent per participant pair and listing: an existing ACTIVE
// conversation is reused instead of duplicated. When an initial message is
// supplied it is appended atomically on creation, or sent through the normal
// path when the conversation already existed.
func (s *ConversationService) Create(in CreateConversationInput) (*models.Conversation, bool, error) {
	if in.InitiatorID == in.ReceiverID {
		return nil, false, domain.ErrInvalidParticipants
	}
	initiator, err := s.users.GetByID(in.InitiatorID)
	if err != nil {
		return nil, false, translateNotFound(err)
	}
	if _, err := s.users.GetByID(in.ReceiverID); err != nil {
		return nil, false, translateNotFound(err)
	}
	var listing *models.Listing
	if in.ListingID != nil {
		listing, err = s.listings.GetByID(*in.ListingID)
		if err != nil {
			return nil, false, translateNotFound(err)
		}
	}
	subject := in.Subject
	if subject == "" && listing != nil {
		subject = listing.Title
	}
	conv := &models.Conversation{
		InitiatorID: in.InitiatorID,
		ReceiverID:  in.ReceiverID,
		ListingID:   in.ListingID,
		Subject:     subject,
		Status:      domain.ConversationActive,
	}
	msgType := domain.MessageTypeText
	if listing != nil {
		msgType = domain.MessageTypeInquiry
	}
	var firstMsg *models.Message
	if in.InitialMessage != "" {
		firstMsg = &models.Message{
			SenderID:   in.InitiatorID,
			ReceiverID: in.ReceiverID,
			Type:       msgType,
			Content:    in.InitialMessage,
			Status:     domain.MessageSent,
		}
	}
	conv, created, err := s.convs.FindOrCreate(conv, firstMsg)
	if err != nil {
		return nil, false, err
	}
	if !created && in.InitialMessage != "" {
		if _, err := s.msgSvc.Send(conv.ID, in.InitiatorID, in.InitialMessage, msgType); err != nil {
			return nil, false, err
		}
		return conv, false, nil
	}
	if created && firstMsg != nil {
		if s.rt != nil {
			s.rt.ToUser(in.ReceiverID, "new_message", messagePayload(firstMsg))
		}
		s.notifyFirstContact(conv, initiator, listing, firstMsg)
	}
	return conv, created, nil
}

func (s *ConversationService) notifyFirstContact(conv *models.Conversation, initiator *models.User, listing *models.Listing, m *models.Message) {
	if s.notifier == nil {
		return
	}
	senderName := initiator.Name
	if senderName == "" {
		senderName = initiator.Username
	}
	data := map[string]interface{}{
		"conversation_id": conv.ID,
		"message_id":      m.ID,
	}
	notifType := domain.NotificationMessage
	title := "New message"
	if listing != nil {
		notifType = domain.NotificationListingInquiry
		title = "New inquiry"
		data["listing_id"] = listing.ID
	}
	_, _ = s.notifier.Notify(conv.ReceiverID, notifType, title, senderName+": "+preview(m.Content), data)
}

// Get returns the conversation, participant-only.
func (s *ConversationService) Get(conversationID, userID uint) (*models.Conversation, error) {
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

// ConversationSummary is one inbox row: the conversation annotated with the
// other party, the most recent message and the caller's unread count.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	OtherParty   *models.User        `json:"other_party,omitempty"`
	LastMessage  *models.Message     `json:"last_message,omitempty"`
	UnreadCount  int64               `json:"unread_count"`
}

func (s *ConversationService) ListForUser(userID uint, page, pageSize int) ([]ConversationSummary, error) {
	limit, offset := pageBounds(page, pageSize)
	convs, err := s.convs.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, 0, len(convs))
	for i := range convs {
		c := convs[i]
		summary := ConversationSummary{Conversation: c}
		if other, err := s.users.GetByID(c.OtherParticipant(userID)); err == nil {
			summary.OtherParty = other
		}
		if last, err := s.msgs.LastMessage(c.ID); err == nil {
			summary.LastMessage = last
		}
		if n, err := s.msgs.UnreadCount(c.ID, userID); err == nil {
			summary.UnreadCount = n
		}
		out = append(out, summary)
	}
	return out, nil
}

// SetStatus changes the shared conversation status. Only a participant may
// change it; while BLOCKED only the user who set the block may change it
// again (including lifting it).
func (s *ConversationService) SetStatus(conversationID, actingUserID uint, newStatus string) (*models.Conversation, error) {
	if !domain.ValidConversationStatus(newStatus) {
		return nil, domain.ErrInvalidStatus
	}
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !conv.HasParticipant(actingUserID) {
		return nil, domain.ErrNotParticipant
	}
	if conv.Status == domain.ConversationBlocked && (conv.BlockedBy == nil || *conv.BlockedBy != actingUserID) {
		return nil, domain.ErrConversationBlocked
	}
	conv.Status = newStatus
	if newStatus == domain.ConversationBlocked {
		conv.BlockedBy = &actingUserID
	} else {
		conv.BlockedBy = nil
	}
	if err := s.convs.Update(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// MarkRead transitions all of the caller's unread inbound messages to READ.
func (s *ConversationService) MarkRead(conversationID, actingUserID uint) error {
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return translateNotFound(err)
	}
	if !conv.HasParticipant(actingUserID) {
		return domain.ErrNotParticipant
	}
	if err := s.msgs.MarkConversationRead(conversationID, actingUserID, time.Now()); err != nil {
		return err
	}
	if s.rt != nil {
		s.rt.ToUser(conv.OtherParticipant(actingUserID), "message_read", map[string]interface{}{
			"conversation_id": conv.ID,
			"reader_id":       actingUserID,
		})
	}
	return nil
}

// Messages returns a page of the conversation history, newest first.
// Deleted messages keep their row but carry no content or attachments.
func (s *ConversationService) Messages(conversationID, userID uint, page, pageSize int) ([]models.Message, error) {
	conv, err := s.convs.GetByID(conversationID)
	if err != nil {
		return nil, translateNotFound(err)
	}
	if !conv.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	limit, offset := pageBounds(page, pageSize)
	return s.msgs.ListByConversation(conversationID, limit, offset)
}
