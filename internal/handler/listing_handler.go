package handler

import (
	"errors"
	"net/http"
	"strconv"

	"hansa/internal/domain"
	"hansa/internal/middleware"
	"hansa/internal/models"
	"hansa/internal/repository"
	"hansa/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ListingHandler struct {
	listingRepo *repository.ListingRepository
	convRepo    *repository.ConversationRepository
	notifSvc    *service.NotificationService
}

func NewListingHandler(listingRepo *repository.ListingRepository, convRepo *repository.ConversationRepository, notifSvc *service.NotificationService) *ListingHandler {
	return &ListingHandler{listingRepo: listingRepo, convRepo: convRepo, notifSvc: notifSvc}
}

type CreateListingRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Category    string `json:"category" binding:"required,oneof=BUSINESS DOMAIN SOCIAL"`
	Description string `json:"description"`
	AskingPrice int64  `json:"asking_price" binding:"min=0"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
}

func (h *ListingHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	l := &models.Listing{
		OwnerID:     userID,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		AskingPrice: req.AskingPrice,
		Currency:    req.Currency,
		Status:      domain.ListingActive,
	}
	if l.Currency == "" {
		l.Currency = "SEK"
	}
	if err := h.listingRepo.Create(l); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": l})
}

func (h *ListingHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	list, err := h.listingRepo.ListByOwner(userID, pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": list})
}

func (h *ListingHandler) Get(c *gin.Context) {
	id := paramID(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	l, err := h.listingRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

type UpdateListingRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	AskingPrice *int64  `json:"asking_price" binding:"omitempty,min=0"`
	Status      *string `json:"status" binding:"omitempty,oneof=ACTIVE SOLD REMOVED"`
}

// Update is owner-only. Users with an ACTIVE conversation about the listing
// get a LISTING_UPDATE notification.
func (h *ListingHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)
	id := paramID(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	l, err := h.listingRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if l.OwnerID != userID {
		respondError(c, domain.ErrNotOwner)
		return
	}
	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title != nil {
		l.Title = *req.Title
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.AskingPrice != nil {
		l.AskingPrice = *req.AskingPrice
	}
	if req.Status != nil {
		l.Status = *req.Status
	}
	if err := h.listingRepo.Update(l); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.notifyWatchers(l)
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

// Remove is the moderation path: admins pull a listing regardless of owner.
// Watchers get the same LISTING_UPDATE fan-out as an owner edit.
func (h *ListingHandler) Remove(c *gin.Context) {
	id := paramID(c, "id")
	if id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}
	l, err := h.listingRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, domain.ErrNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	l.Status = domain.ListingRemoved
	if err := h.listingRepo.Update(l); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.notifyWatchers(l)
	c.JSON(http.StatusOK, gin.H{"listing": l})
}

func (h *ListingHandler) notifyWatchers(l *models.Listing) {
	convs, err := h.convRepo.ListActiveByListing(l.ID)
	if err != nil {
		return
	}
	seen := map[uint]bool{l.OwnerID: true}
	for i := range convs {
		for _, userID := range []uint{convs[i].InitiatorID, convs[i].ReceiverID} {
			if seen[userID] {
				continue
			}
			seen[userID] = true
			_, _ = h.notifSvc.Notify(userID, domain.NotificationListingUpdate,
				"Listing updated", l.Title+" was updated",
				map[string]interface{}{"listing_id": l.ID, "conversation_id": convs[i].ID})
		}
	}
}
