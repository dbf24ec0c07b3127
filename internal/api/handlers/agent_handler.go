package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

// AgentHandler handles the agents directory, public and administrative.
type AgentHandler struct {
	agentService services.IAgentService
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(agentService services.IAgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

// ListPublic handles GET /api/agents/public.
func (h *AgentHandler) ListPublic(c *gin.Context) {
	agents, err := h.agentService.ListPublicAgents(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

// GetByID handles GET /api/agents/:id.
func (h *AgentHandler) GetByID(c *gin.Context) {
	agentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent ID format"})
		return
	}

	agent, err := h.agentService.GetAgentDetail(c.Request.Context(), agentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// ListAll handles GET /api/agents/all. Gated to SUPER_ADMIN by the router.
func (h *AgentHandler) ListAll(c *gin.Context) {
	agents, err := h.agentService.ListAllAgents(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

type setPremiumRequest struct {
	IsPremium *bool `json:"isPremium" binding:"required"`
}

// SetPremium handles PUT /api/agents/:id/premium. Gated to SUPER_ADMIN by
// the router.
func (h *AgentHandler) SetPremium(c *gin.Context) {
	agentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent ID format"})
		return
	}

	var req setPremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	agent, err := h.agentService.SetPremium(c.Request.Context(), agentID, *req.IsPremium)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent.Public())
}
