package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/api/handlers"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
)

func newRegisteredUser(role models.UserRole) *models.User {
	return &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Doe",
		Role:      role,
	}
}

func TestAuthHandler_Register(t *testing.T) {
	userSvc := new(MockUserService)
	taskClient := new(MockAsynqClient)
	handler := handlers.NewAuthHandler(testHandlerConfig(), userSvc, taskClient)

	user := newRegisteredUser(models.RoleUser)
	userSvc.On("Register", mock.Anything, mock.MatchedBy(func(in services.RegisterInput) bool {
		return in.Email == "alice@example.com" && in.Role == ""
	})).Return(user, nil)
	taskClient.On("EnqueueContext", mock.Anything, mock.Anything).Return(&asynq.TaskInfo{}, nil)

	r := newTestRouter(nil)
	r.POST("/api/auth/register", handler.Register)

	body, _ := json.Marshal(map[string]string{
		"email":     "alice@example.com",
		"password":  "password123",
		"firstName": "Alice",
		"lastName":  "Doe",
	})
	w := performRequest(t, r, http.MethodPost, "/api/auth/register", bytes.NewReader(body), "application/json")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@example.com", resp.User.Email)

	// The welcome email was queued for delivery.
	taskClient.AssertCalled(t, "EnqueueContext", mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testHandlerConfig(), userSvc, nil)

	userSvc.On("Register", mock.Anything, mock.Anything).Return(nil, services.ErrEmailExists)

	r := newTestRouter(nil)
	r.POST("/api/auth/register", handler.Register)

	body, _ := json.Marshal(map[string]string{
		"email":     "taken@example.com",
		"password":  "password123",
		"firstName": "Alice",
		"lastName":  "Doe",
	})
	w := performRequest(t, r, http.MethodPost, "/api/auth/register", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testHandlerConfig(), userSvc, nil)

	r := newTestRouter(nil)
	r.POST("/api/auth/register", handler.Register)

	// Missing email and a too-short password
	body, _ := json.Marshal(map[string]string{
		"password":  "short",
		"firstName": "Alice",
	})
	w := performRequest(t, r, http.MethodPost, "/api/auth/register", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	userSvc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthHandler_Login(t *testing.T) {
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testHandlerConfig(), userSvc, nil)

	user := newRegisteredUser(models.RoleAgent)
	userSvc.On("Login", mock.Anything, "alice@example.com", "password123").Return(user, nil)
	userSvc.On("Login", mock.Anything, "alice@example.com", "wrong").Return(nil, services.ErrInvalidCredentials)

	r := newTestRouter(nil)
	r.POST("/api/auth/login", handler.Login)

	body, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "password123"})
	w := performRequest(t, r, http.MethodPost, "/api/auth/login", bytes.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	body, _ = json.Marshal(map[string]string{"email": "alice@example.com", "password": "wrong"})
	w = performRequest(t, r, http.MethodPost, "/api/auth/login", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_SuperAdminLogin(t *testing.T) {
	userSvc := new(MockUserService)
	handler := handlers.NewAuthHandler(testHandlerConfig(), userSvc, nil)

	admin := newRegisteredUser(models.RoleSuperAdmin)
	userSvc.On("SuperAdminLogin", mock.Anything, "root@example.com", "rootpassword").Return(admin, nil)
	userSvc.On("SuperAdminLogin", mock.Anything, "alice@example.com", "password123").Return(nil, services.ErrInvalidCredentials)

	r := newTestRouter(nil)
	r.POST("/api/auth/superadmin", handler.SuperAdminLogin)

	body, _ := json.Marshal(map[string]string{"email": "root@example.com", "password": "rootpassword"})
	w := performRequest(t, r, http.MethodPost, "/api/auth/superadmin", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)

	// A regular account is rejected on the super admin surface.
	body, _ = json.Marshal(map[string]string{"email": "alice@example.com", "password": "password123"})
	w = performRequest(t, r, http.MethodPost, "/api/auth/superadmin", bytes.NewReader(body), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
