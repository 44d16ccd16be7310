package models

import (
	"time"

	"hansa/internal/domain"
)

// Notification is an in-app record for one recipient. Unlike messages,
// users may hard-delete their notifications, so there is no DeletedAt.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Type      string     `gorm:"size:50;not null;index" json:"type"`
	Title     string     `gorm:"size:255" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	Data      string     `gorm:"type:text" json:"data"` // JSON payload referencing the originating entity
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings is one row per user: a boolean per (channel, category)
// pair plus a quiet-hours window and a locale. Created lazily with defaults
// on first read.
type NotificationSettings struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	EmailMessages       bool `json:"email_messages"`
	EmailInquiries      bool `json:"email_inquiries"`
	EmailListingUpdates bool `json:"email_listing_updates"`
	EmailTransactions   bool `json:"email_transactions"`
	EmailMarketing      bool `json:"email_marketing"`

	InAppMessages       bool `json:"in_app_messages"`
	InAppInquiries      bool `json:"in_app_inquiries"`
	InAppListingUpdates bool `json:"in_app_listing_updates"`
	InAppTransactions   bool `json:"in_app_transactions"`
	InAppMarketing      bool `json:"in_app_marketing"`

	PushMessages       bool `json:"push_messages"`
	PushInquiries      bool `json:"push_inquiries"`
	PushListingUpdates bool `json:"push_listing_updates"`
	PushTransactions   bool `json:"push_transactions"`
	PushMarketing      bool `json:"push_marketing"`

	// "HH:MM" local time; both empty disables the window.
	QuietHoursStart string `gorm:"size:5" json:"quiet_hours_start"`
	QuietHoursEnd   string `gorm:"size:5" json:"quiet_hours_end"`

	Locale    string    `gorm:"size:8;default:'sv'" json:"locale"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// DefaultNotificationSettings returns the record created on first access:
// everything on except marketing.
func DefaultNotificationSettings(userID uint) *NotificationSettings {
	return &NotificationSettings{
		UserID:              userID,
		EmailMessages:       true,
		EmailInquiries:      true,
		EmailListingUpdates: true,
		EmailTransactions:   true,
		InAppMessages:       true,
		InAppInquiries:      true,
		InAppListingUpdates: true,
		InAppTransactions:   true,
		InAppMarketing:      true,
		PushMessages:        true,
		PushInquiries:       true,
		PushListingUpdates:  true,
		PushTransactions:    true,
		Locale:              "sv",
	}
}

// EmailEnabled reports whether the email channel is on for the category.
// SYSTEM notifications (empty category) are always delivered.
func (s *NotificationSettings) EmailEnabled(category string) bool {
	switch category {
	case domain.CategoryMessages:
		return s.EmailMessages
	case domain.CategoryInquiries:
		return s.EmailInquiries
	case domain.CategoryListingUpdates:
		return s.EmailListingUpdates
	case domain.CategoryTransactions:
		return s.EmailTransactions
	case domain.CategoryMarketing:
		return s.EmailMarketing
	}
	return true
}

func (s *NotificationSettings) InAppEnabled(category string) bool {
	switch category {
	case domain.CategoryMessages:
		return s.InAppMessages
	case domain.CategoryInquiries:
		return s.InAppInquiries
	case domain.CategoryListingUpdates:
		return s.InAppListingUpdates
	case domain.CategoryTransactions:
		return s.InAppTransactions
	case domain.CategoryMarketing:
		return s.InAppMarketing
	}
	return true
}

func (s *NotificationSettings) PushEnabled(category string) bool {
	switch category {
	case domain.CategoryMessages:
		return s.PushMessages
	case domain.CategoryInquiries:
		return s.PushInquiries
	case domain.CategoryListingUpdates:
		return s.PushListingUpdates
	case domain.CategoryTransactions:
		return s.PushTransactions
	case domain.CategoryMarketing:
		return s.PushMarketing
	}
	return true
}

// InQuietHours reports whether t falls inside the quiet-hours window.
// The window may cross midnight (e.g. 22:00-07:00).
func (s *NotificationSettings) InQuietHours(t time.Time) bool {
	if s.QuietHoursStart == "" || s.QuietHoursEnd == "" {
		return false
	}
	start, err := time.Parse("15:04", s.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", s.QuietHoursEnd)
	if err != nil {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin <= endMin {
		return minute >= startMin && minute < endMin
	}
	return minute >= startMin || minute < endMin
}
