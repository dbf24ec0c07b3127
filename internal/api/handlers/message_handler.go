package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/api/middleware"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

// MessageHandler handles messaging between users and premium agents.
type MessageHandler struct {
	messageService services.IMessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(messageService services.IMessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required"`
	PropertyID string `json:"propertyId"`
	Content    string `json:"content" binding:"required"`
}

// Send handles POST /api/messages/send.
func (h *MessageHandler) Send(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver ID format"})
		return
	}

	input := services.SendMessageInput{ReceiverID: receiverID, Content: req.Content}
	if req.PropertyID != "" {
		listingID, err := primitive.ObjectIDFromHex(req.PropertyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID format"})
			return
		}
		input.ListingID = &listingID
	}

	message, err := h.messageService.Send(c.Request.Context(), principal.ID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListConversations handles GET /api/messages/conversations.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	messages, err := h.messageService.ListConversations(c.Request.Context(), principal.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
