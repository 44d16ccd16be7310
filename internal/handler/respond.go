package handler

import (
	"errors"
	"net/http"

	"hansa/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps domain error codes onto HTTP statuses. The code is part
// of the API contract; clients branch on it, not on the message.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch de.Code {
	case domain.ErrNotFound.Code:
		status = http.StatusNotFound
	case domain.ErrNotParticipant.Code, domain.ErrNotOwner.Code:
		status = http.StatusForbidden
	case domain.ErrConversationBlocked.Code:
		status = http.StatusConflict
	case domain.ErrUnsupportedFileType.Code:
		status = http.StatusUnsupportedMediaType
	case domain.ErrFileTooLarge.Code:
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, gin.H{"error": de.Message, "code": de.Code})
}
