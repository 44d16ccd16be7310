package handler

import (
	"net/http"

	"hansa/internal/middleware"
	"hansa/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	msgSvc *service.MessageService
}

func NewMessageHandler(msgSvc *service.MessageService) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc}
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
	Type    string `json:"type" binding:"omitempty,oneof=TEXT FILE IMAGE SYSTEM INQUIRY"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID := paramID(c, "id")
	if convID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.msgSvc.Send(convID, userID, req.Content, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

func (h *MessageHandler) MarkDelivered(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID := paramID(c, "id")
	if msgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	if err := h.msgSvc.MarkDelivered(msgID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID := paramID(c, "id")
	if msgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	if err := h.msgSvc.MarkRead(msgID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID := paramID(c, "id")
	if msgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	if err := h.msgSvc.Delete(msgID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UploadAttachment stores a file for the message. The mime type and size are
// validated against the configured allow-list before anything is uploaded.
func (h *MessageHandler) UploadAttachment(c *gin.Context) {
	userID := middleware.GetUserID(c)
	msgID := paramID(c, "id")
	if msgID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()
	mimeType := file.Header.Get("Content-Type")
	a, err := h.msgSvc.UploadAttachment(c.Request.Context(), msgID, userID, f, file.Filename, mimeType, file.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"attachment": a})
}
