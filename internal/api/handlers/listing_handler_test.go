package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/api/handlers"
	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
	"github.com/GhostEsso/ahoefa-backend/internal/storage"
)

func agentPrincipal() authz.Principal {
	return authz.Principal{
		ID:          primitive.NewObjectID(),
		Email:       "agent@example.com",
		Role:        models.RoleAgent,
		AgentStatus: models.AgentStatusApproved,
	}
}

// buildListingForm builds the multipart body used by create/update: a "data"
// JSON field plus "images" files.
func buildListingForm(t *testing.T, data interface{}, imageNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("data", string(payload)))

	for _, name := range imageNames {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="images"; filename="`+name+`.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestListingHandler_Create(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	created := &models.Listing{ID: primitive.NewObjectID(), UserID: principal.ID, Title: "Villa moderne"}
	listingSvc.On("Create", mock.Anything, principal, mock.MatchedBy(func(in services.ListingInput) bool {
		return in.Title == "Villa moderne" && in.Price == 250000
	}), mock.MatchedBy(func(images []storage.ImageUpload) bool {
		return len(images) == 2 && images[0].Filename == "front.jpg"
	})).Return(created, nil)

	r := newTestRouter(&principal)
	r.POST("/api/listings", handler.Create)

	body, contentType := buildListingForm(t, map[string]interface{}{
		"title":       "Villa moderne",
		"price":       250000,
		"type":        "HOUSE",
		"listingType": "SALE",
		"location":    "Lome",
	}, "front", "pool")

	w := performRequest(t, r, http.MethodPost, "/api/listings", body, contentType)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestListingHandler_Create_TooManyImages(t *testing.T) {
	cfg := testHandlerConfig()
	cfg.ImageMaxCount = 2
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(cfg, listingSvc)

	principal := agentPrincipal()
	r := newTestRouter(&principal)
	r.POST("/api/listings", handler.Create)

	body, contentType := buildListingForm(t, map[string]interface{}{
		"title": "Villa", "price": 100, "location": "Lome",
	}, "one", "two", "three")

	w := performRequest(t, r, http.MethodPost, "/api/listings", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	listingSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListingHandler_Create_QuotaExceeded(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	listingSvc.On("Create", mock.Anything, principal, mock.Anything, mock.Anything).
		Return(nil, services.ErrQuotaExceeded)

	r := newTestRouter(&principal)
	r.POST("/api/listings", handler.Create)

	body, contentType := buildListingForm(t, map[string]interface{}{
		"title": "Villa", "price": 100, "location": "Lome",
	})
	w := performRequest(t, r, http.MethodPost, "/api/listings", body, contentType)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListingHandler_Create_UploadFailure(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	listingSvc.On("Create", mock.Anything, principal, mock.Anything, mock.Anything).
		Return(nil, services.ErrUploadFailed)

	r := newTestRouter(&principal)
	r.POST("/api/listings", handler.Create)

	body, contentType := buildListingForm(t, map[string]interface{}{
		"title": "Villa", "price": 100, "location": "Lome",
	}, "front")
	w := performRequest(t, r, http.MethodPost, "/api/listings", body, contentType)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListingHandler_Create_Forbidden(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	principal.AgentStatus = models.AgentStatusPending
	listingSvc.On("Create", mock.Anything, principal, mock.Anything, mock.Anything).
		Return(nil, authz.ErrForbidden)

	r := newTestRouter(&principal)
	r.POST("/api/listings", handler.Create)

	body, contentType := buildListingForm(t, map[string]interface{}{
		"title": "Villa", "price": 100, "location": "Lome",
	})
	w := performRequest(t, r, http.MethodPost, "/api/listings", body, contentType)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListingHandler_GetByID(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	listingID := primitive.NewObjectID()
	found := &models.ListingWithOwner{Listing: models.Listing{ID: listingID, Title: "Villa"}}
	listingSvc.On("GetByID", mock.Anything, listingID).Return(found, nil)

	r := newTestRouter(nil)
	r.GET("/api/listings/:id", handler.GetByID)

	w := performRequest(t, r, http.MethodGet, "/api/listings/"+listingID.Hex(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Malformed IDs never reach the service.
	w = performRequest(t, r, http.MethodGet, "/api/listings/not-an-id", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := primitive.NewObjectID()
	listingSvc.On("GetByID", mock.Anything, missing).Return(nil, services.ErrNotFound)
	w = performRequest(t, r, http.MethodGet, "/api/listings/"+missing.Hex(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingHandler_ListPublic_QueryParams(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	page := &services.PublicListingPage{Listings: []models.ListingWithOwner{}, Total: 0, CurrentPage: 2, TotalPages: 0}
	listingSvc.On("ListPublic", mock.Anything, mock.MatchedBy(func(f services.PublicListingFilter) bool {
		return f.Page == 2 && f.PageSize == 5 &&
			f.Type != nil && *f.Type == models.PropertyHouse &&
			f.MinPrice != nil && *f.MinPrice == 100 &&
			f.Location == "Lome"
	})).Return(page, nil)

	r := newTestRouter(nil)
	r.GET("/api/listings/public", handler.ListPublic)

	w := performRequest(t, r, http.MethodGet, "/api/listings/public?page=2&limit=5&type=HOUSE&minPrice=100&location=Lome", nil, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(t, r, http.MethodGet, "/api/listings/public?minPrice=expensive", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandler_Delete(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	owned := primitive.NewObjectID()
	foreign := primitive.NewObjectID()
	listingSvc.On("Delete", mock.Anything, principal, owned).Return(nil)
	listingSvc.On("Delete", mock.Anything, principal, foreign).Return(authz.ErrForbidden)

	r := newTestRouter(&principal)
	r.DELETE("/api/listings/:id", handler.Delete)

	w := performRequest(t, r, http.MethodDelete, "/api/listings/"+owned.Hex(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(t, r, http.MethodDelete, "/api/listings/"+foreign.Hex(), nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListingHandler_Update_JSONBody(t *testing.T) {
	listingSvc := new(MockListingService)
	handler := handlers.NewListingHandler(testHandlerConfig(), listingSvc)

	principal := agentPrincipal()
	listingID := primitive.NewObjectID()
	updated := &models.Listing{ID: listingID, Title: "Renovated"}
	listingSvc.On("Update", mock.Anything, principal, listingID, mock.MatchedBy(func(in services.ListingUpdate) bool {
		return in.Title != nil && *in.Title == "Renovated"
	}), mock.Anything).Return(updated, nil)

	r := newTestRouter(&principal)
	r.PUT("/api/listings/:id", handler.Update)

	body, _ := json.Marshal(map[string]string{"title": "Renovated"})
	w := performRequest(t, r, http.MethodPut, "/api/listings/"+listingID.Hex(), bytes.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
