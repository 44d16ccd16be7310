package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hansa/internal/domain"
	"hansa/internal/models"

	"gorm.io/gorm"
)

type NotificationService struct {
	store NotificationStore
	users UserStore
	push  Pusher
	rt    Broadcaster
}

func NewNotificationService(store NotificationStore, users UserStore, push Pusher, rt Broadcaster) *NotificationService {
	return &NotificationService{store: store, users: users, push: push, rt: rt}
}

// Notify creates the in-app record unconditionally. Delivery channels are a
// separate concern: the realtime event honors the in-app toggle and push is
// skipped when the recipient disabled it for the category or is inside their
// quiet hours.
func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) (*models.Notification, error) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.store.Create(n); err != nil {
		return nil, err
	}
	settings, err := s.Settings(userID)
	if err != nil {
		// Record exists; delivery preferences being unreadable only costs
		// the external channels.
		return n, nil
	}
	category := domain.NotificationCategory(notifType)
	if s.rt != nil && settings.InAppEnabled(category) {
		s.rt.ToUser(userID, "notification", map[string]interface{}{"notification": n})
	}
	if settings.PushEnabled(category) && !settings.InQuietHours(time.Now()) {
		s.sendPush(userID, notifType, title, body, data)
	}
	return n, nil
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.push == nil || s.users == nil {
		return
	}
	u, err := s.users.GetByID(userID)
	if err != nil || u == nil || u.FCMToken == "" {
		return
	}
	_ = s.push.SendToUser(context.Background(), u.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) List(userID uint, page, pageSize int, unreadOnly bool) ([]models.Notification, error) {
	limit, offset := pageBounds(page, pageSize)
	return s.store.ListByUser(userID, limit, offset, unreadOnly)
}

// MarkRead is ownership-checked and idempotent: marking an already-read
// notification is a no-op.
func (s *NotificationService) MarkRead(id, userID uint) error {
	n, err := s.store.GetByID(id)
	if err != nil {
		return translateNotFound(err)
	}
	if n.UserID != userID {
		return domain.ErrNotOwner
	}
	if n.ReadAt != nil {
		return nil
	}
	return s.store.MarkRead(id, userID, time.Now())
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.store.MarkAllRead(userID, time.Now())
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.store.UnreadCount(userID)
}

// Delete removes the notification permanently.
func (s *NotificationService) Delete(id, userID uint) error {
	n, err := s.store.GetByID(id)
	if err != nil {
		return translateNotFound(err)
	}
	if n.UserID != userID {
		return domain.ErrNotOwner
	}
	return s.store.Delete(id, userID)
}

// Settings returns the user's settings, creating the default record on
// first access.
func (s *NotificationService) Settings(userID uint) (*models.NotificationSettings, error) {
	settings, err := s.store.GetSettings(userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	settings = models.DefaultNotificationSettings(userID)
	if err := s.store.SaveSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettingsInput carries optional fields: supplied values overwrite the
// stored record, absent ones retain their prior value.
type UpdateSettingsInput struct {
	EmailMessages       *bool `json:"email_messages"`
	EmailInquiries      *bool `json:"email_inquiries"`
	EmailListingUpdates *bool `json:"email_listing_updates"`
	EmailTransactions   *bool `json:"email_transactions"`
	EmailMarketing      *bool `json:"email_marketing"`

	InAppMessages       *bool `json:"in_app_messages"`
	InAppInquiries      *bool `json:"in_app_inquiries"`
	InAppListingUpdates *bool `json:"in_app_listing_updates"`
	InAppTransactions   *bool `json:"in_app_transactions"`
	InAppMarketing      *bool `json:"in_app_marketing"`

	PushMessages       *bool `json:"push_messages"`
	PushInquiries      *bool `json:"push_inquiries"`
	PushListingUpdates *bool `json:"push_listing_updates"`
	PushTransactions   *bool `json:"push_transactions"`
	PushMarketing      *bool `json:"push_marketing"`

	QuietHoursStart *string `json:"quiet_hours_start"`
	QuietHoursEnd   *string `json:"quiet_hours_end"`
	Locale          *string `json:"locale"`
}

func (s *NotificationService) UpdateSettings(userID uint, in UpdateSettingsInput) (*models.NotificationSettings, error) {
	settings, err := s.Settings(userID)
	if err != nil {
		return nil, err
	}
	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&settings.EmailMessages, in.EmailMessages)
	applyBool(&settings.EmailInquiries, in.EmailInquiries)
	applyBool(&settings.EmailListingUpdates, in.EmailListingUpdates)
	applyBool(&settings.EmailTransactions, in.EmailTransactions)
	applyBool(&settings.EmailMarketing, in.EmailMarketing)
	applyBool(&settings.InAppMessages, in.InAppMessages)
	applyBool(&settings.InAppInquiries, in.InAppInquiries)
	applyBool(&settings.InAppListingUpdates, in.InAppListingUpdates)
	applyBool(&settings.InAppTransactions, in.InAppTransactions)
	applyBool(&settings.InAppMarketing, in.InAppMarketing)
	applyBool(&settings.PushMessages, in.PushMessages)
	applyBool(&settings.PushInquiries, in.PushInquiries)
	applyBool(&settings.PushListingUpdates, in.PushListingUpdates)
	applyBool(&settings.PushTransactions, in.PushTransactions)
	applyBool(&settings.PushMarketing, in.PushMarketing)
	if in.QuietHoursStart != nil {
		settings.QuietHoursStart = *in.QuietHoursStart
	}
	if in.QuietHoursEnd != nil {
		settings.QuietHoursEnd = *in.QuietHoursEnd
	}
	if in.Locale != nil {
		settings.Locale = *in.Locale
	}
	if err := s.store.SaveSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}
