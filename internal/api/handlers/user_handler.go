package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GhostEsso/ahoefa-backend/internal/api/middleware"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

// UserHandler handles profile requests of the authenticated user.
type UserHandler struct {
	userService services.IUserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.IUserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile handles GET /api/users/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), principal.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

type updateProfileRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	PhoneNumber  *string `json:"phoneNumber"`
	Organization *string `json:"organization"`
	Password     *string `json:"password" binding:"omitempty,min=8"`
}

// UpdateProfile handles PUT /api/users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), principal.ID, services.UpdateProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PhoneNumber:  req.PhoneNumber,
		Organization: req.Organization,
		Password:     req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
