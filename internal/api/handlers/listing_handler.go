package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/api/middleware"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
	"github.com/GhostEsso/ahoefa-backend/internal/storage"
)

// ListingHandler handles listing CRUD and the public feed.
type ListingHandler struct {
	cfg            *config.Config
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(cfg *config.Config, listingService services.IListingService) *ListingHandler {
	return &ListingHandler{cfg: cfg, listingService: listingService}
}

// collectImages validates and reads the multipart image files. Requests with
// too many files, oversized files or non-image content are rejected as a
// whole before anything is uploaded.
func (h *ListingHandler) collectImages(files []*multipart.FileHeader) ([]storage.ImageUpload, error) {
	if len(files) > h.cfg.ImageMaxCount {
		return nil, fmt.Errorf("at most %d images are allowed", h.cfg.ImageMaxCount)
	}
	maxSize := int64(h.cfg.ImageMaxSizeMB) * 1024 * 1024

	images := make([]storage.ImageUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxSize {
			return nil, fmt.Errorf("image %s exceeds the %dMB size limit", fh.Filename, h.cfg.ImageMaxSizeMB)
		}
		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("file %s is not an image", fh.Filename)
		}

		file, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open uploaded file %s", fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read uploaded file %s", fh.Filename)
		}
		if int64(len(data)) > maxSize {
			return nil, fmt.Errorf("image %s exceeds the %dMB size limit", fh.Filename, h.cfg.ImageMaxSizeMB)
		}

		images = append(images, storage.ImageUpload{
			Filename:    fh.Filename,
			ContentType: contentType,
			Data:        data,
		})
	}
	return images, nil
}

// Create handles POST /api/listings. The body is multipart form data: a
// "data" field with the listing JSON plus up to ImageMaxCount "images" files.
func (h *ListingHandler) Create(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data"})
		return
	}

	var input services.ListingInput
	if err := json.Unmarshal([]byte(c.PostForm("data")), &input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing data: " + err.Error()})
		return
	}
	if input.Title == "" || input.Price <= 0 || input.Location == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title, price and location are required"})
		return
	}

	images, err := h.collectImages(form.File["images"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.listingService.Create(c.Request.Context(), principal, input, images)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// Update handles PUT /api/listings/:id. Accepts the same multipart shape as
// Create; new images are appended to the listing.
func (h *ListingHandler) Update(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	var input services.ListingUpdate
	var images []storage.ImageUpload

	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Expected multipart form data"})
			return
		}
		if data := c.PostForm("data"); data != "" {
			if err := json.Unmarshal([]byte(data), &input); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing data: " + err.Error()})
				return
			}
		}
		images, err = h.collectImages(form.File["images"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
			return
		}
	}

	listing, err := h.listingService.Update(c.Request.Context(), principal, listingID, input, images)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Delete handles DELETE /api/listings/:id.
func (h *ListingHandler) Delete(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	if err := h.listingService.Delete(c.Request.Context(), principal, listingID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted"})
}

// GetByID handles GET /api/listings/:id.
func (h *ListingHandler) GetByID(c *gin.Context) {
	listingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing ID format"})
		return
	}

	listing, err := h.listingService.GetByID(c.Request.Context(), listingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ListPublic handles GET /api/listings/public.
func (h *ListingHandler) ListPublic(c *gin.Context) {
	filter := services.PublicListingFilter{
		Location: c.Query("location"),
	}

	if v := c.Query("type"); v != "" {
		t := models.PropertyType(v)
		filter.Type = &t
	}
	if v := c.Query("listingType"); v != "" {
		t := models.ListingType(v)
		filter.ListingType = &t
	}
	if v := c.Query("minPrice"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid minPrice"})
			return
		}
		filter.MinPrice = &price
	}
	if v := c.Query("maxPrice"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxPrice"})
			return
		}
		filter.MaxPrice = &price
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("limit", "12"))
	if filter.PageSize > 50 {
		filter.PageSize = 50
	}

	page, err := h.listingService.ListPublic(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListOwn handles GET /api/listings. Gated to agent and admin roles by
// the router.
func (h *ListingHandler) ListOwn(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	listings, err := h.listingService.ListByOwner(c.Request.Context(), principal.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}
