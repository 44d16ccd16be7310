package handler

import (
	"net/http"
	"strconv"

	"hansa/internal/middleware"
	"hansa/internal/service"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convSvc *service.ConversationService
	msgSvc  *service.MessageService
}

func NewConversationHandler(convSvc *service.ConversationService, msgSvc *service.MessageService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc, msgSvc: msgSvc}
}

type CreateConversationRequest struct {
	ReceiverID uint   `json:"receiver_id" binding:"required"`
	ListingID  *uint  `json:"listing_id"`
	Subject    string `json:"subject" binding:"max=255"`
	Message    string `json:"message"`
}

// Create finds or creates the conversation for (caller, receiver, listing).
// Calling it twice returns the same conversation.
func (h *ConversationHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, created, err := h.convSvc.Create(service.CreateConversationInput{
		InitiatorID:    userID,
		ReceiverID:     req.ReceiverID,
		ListingID:      req.ListingID,
		Subject:        req.Subject,
		InitialMessage: req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "created": created})
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, err := h.convSvc.ListForUser(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID := paramID(c, "id")
	if convID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	list, err := h.convSvc.Messages(convID, userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE ARCHIVED BLOCKED CLOSED"`
}

func (h *ConversationHandler) SetStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID := paramID(c, "id")
	if convID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, err := h.convSvc.SetStatus(convID, userID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (h *ConversationHandler) MarkRead(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID := paramID(c, "id")
	if convID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	if err := h.convSvc.MarkRead(convID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ConversationHandler) Search(c *gin.Context) {
	userID := middleware.GetUserID(c)
	convID := paramID(c, "id")
	if convID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}
	query := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	list, err := h.msgSvc.Search(convID, userID, query, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

func paramID(c *gin.Context, name string) uint {
	id, _ := strconv.ParseUint(c.Param(name), 10, 64)
	return uint(id)
}
