package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	ConversationActive   = "ACTIVE"
	ConversationArchived = "ARCHIVED"
	ConversationBlocked  = "BLOCKED"
	ConversationClosed   = "CLOSED"
)

const (
	MessageTypeText    = "TEXT"
	MessageTypeFile    = "FILE"
	MessageTypeImage   = "IMAGE"
	MessageTypeSystem  = "SYSTEM"
	MessageTypeInquiry = "INQUIRY"
)

// Message status is monotonic SENT -> DELIVERED -> READ. DELETED is terminal
// and reachable from any non-terminal state by the sender only.
const (
	MessageSent      = "SENT"
	MessageDelivered = "DELIVERED"
	MessageRead      = "READ"
	MessageDeleted   = "DELETED"
)

const (
	NotificationMessage        = "MESSAGE"
	NotificationListingInquiry = "LISTING_INQUIRY"
	NotificationListingUpdate  = "LISTING_UPDATE"
	NotificationTransaction    = "TRANSACTION"
	NotificationSystem         = "SYSTEM"
	NotificationMarketing      = "MARKETING"
)

// Settings categories; each maps to one toggle per delivery channel.
const (
	CategoryMessages       = "messages"
	CategoryInquiries      = "inquiries"
	CategoryListingUpdates = "listing_updates"
	CategoryTransactions   = "transactions"
	CategoryMarketing      = "marketing"
)

const (
	ListingCategoryBusiness = "BUSINESS"
	ListingCategoryDomain   = "DOMAIN"
	ListingCategorySocial   = "SOCIAL"
)

const (
	ListingActive  = "ACTIVE"
	ListingSold    = "SOLD"
	ListingRemoved = "REMOVED"
)

// NotificationCategory maps a notification type to its settings category.
// SYSTEM notifications have no toggle and are always delivered.
func NotificationCategory(notifType string) string {
	switch notifType {
	case NotificationMessage:
		return CategoryMessages
	case NotificationListingInquiry:
		return CategoryInquiries
	case NotificationListingUpdate:
		return CategoryListingUpdates
	case NotificationTransaction:
		return CategoryTransactions
	case NotificationMarketing:
		return CategoryMarketing
	}
	return ""
}

// ValidConversationStatus reports whether s is a recognized conversation status.
func ValidConversationStatus(s string) bool {
	switch s {
	case ConversationActive, ConversationArchived, ConversationBlocked, ConversationClosed:
		return true
	}
	return false
}

// ValidMessageType reports whether t is a recognized message type.
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeFile, MessageTypeImage, MessageTypeSystem, MessageTypeInquiry:
		return true
	}
	return false
}
