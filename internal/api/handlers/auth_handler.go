package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostEsso/ahoefa-backend/internal/auth"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
	"github.com/GhostEsso/ahoefa-backend/internal/tasks"
)

// AuthHandler handles registration and credential exchange.
type AuthHandler struct {
	cfg         *config.Config
	userService services.IUserService
	taskClient  IAsynqClient
}

// NewAuthHandler creates a new AuthHandler. The task client is optional; with
// a nil client the welcome email is simply skipped.
func NewAuthHandler(cfg *config.Config, userService services.IUserService, taskClient IAsynqClient) *AuthHandler {
	return &AuthHandler{cfg: cfg, userService: userService, taskClient: taskClient}
}

type registerRequest struct {
	Email        string          `json:"email" binding:"required,email"`
	Password     string          `json:"password" binding:"required,min=8"`
	FirstName    string          `json:"firstName" binding:"required"`
	LastName     string          `json:"lastName" binding:"required"`
	PhoneNumber  string          `json:"phoneNumber"`
	Organization string          `json:"organization"`
	Role         models.UserRole `json:"role"`
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// tokenResponse is the payload returned by every successful credential exchange.
type tokenResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), services.RegisterInput{
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Organization: req.Organization,
		Role:         req.Role,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.enqueueWelcomeEmail(c, user)

	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{Token: token, User: user.Public()})
}

// enqueueWelcomeEmail queues the post-registration email. Best-effort: a queue
// failure never fails the registration.
func (h *AuthHandler) enqueueWelcomeEmail(c *gin.Context, user *models.User) {
	if h.taskClient == nil {
		return
	}
	task, err := tasks.NewWelcomeEmailTask(user.Email, user.FirstName)
	if err != nil {
		log.Printf("Failed to build welcome email task for %s: %v", user.Email, err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
		log.Printf("Failed to enqueue welcome email for %s: %v", user.Email, err)
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, User: user.Public()})
}

// SuperAdminLogin handles POST /api/auth/superadmin. Only the
// SUPER_ADMIN record is eligible; anyone else gets the same rejection as a
// wrong password.
func (h *AuthHandler) SuperAdminLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	user, err := h.userService.SuperAdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := auth.GenerateJWT(user, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, User: user.Public()})
}
