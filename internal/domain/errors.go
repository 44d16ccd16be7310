package domain

// Error is a business-rule failure with a stable machine-readable code.
// Handlers map codes to HTTP status; the code never changes once published.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

var (
	ErrNotFound            = &Error{Code: "NOT_FOUND", Message: "resource not found"}
	ErrNotParticipant      = &Error{Code: "NOT_PARTICIPANT", Message: "user is not a participant of this conversation"}
	ErrNotOwner            = &Error{Code: "NOT_OWNER", Message: "user does not own this resource"}
	ErrInvalidParticipants = &Error{Code: "INVALID_PARTICIPANTS", Message: "initiator and receiver must be different users"}
	ErrConversationBlocked = &Error{Code: "CONVERSATION_BLOCKED", Message: "conversation is blocked"}
	ErrInvalidStatus       = &Error{Code: "INVALID_STATUS", Message: "invalid status value"}
	ErrUnsupportedFileType = &Error{Code: "UNSUPPORTED_FILE_TYPE", Message: "file type is not allowed"}
	ErrFileTooLarge        = &Error{Code: "FILE_TOO_LARGE", Message: "file exceeds the maximum allowed size"}
)
