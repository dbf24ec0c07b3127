package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/storage"
)

// ListingInput carries the listing payload of a create request.
type ListingInput struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Price       float64             `json:"price"`
	Type        models.PropertyType `json:"type"`
	ListingType models.ListingType  `json:"listingType"`
	Location    string              `json:"location"`
	Address     string              `json:"address"`
	Features    []string            `json:"features"`
}

// ListingUpdate carries the mutable listing fields of an update request.
// Nil pointers leave the stored value untouched.
type ListingUpdate struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Price       *float64             `json:"price"`
	Type        *models.PropertyType `json:"type"`
	ListingType *models.ListingType  `json:"listingType"`
	Location    *string              `json:"location"`
	Address     *string              `json:"address"`
	Features    []string             `json:"features"`
	Available   *bool                `json:"available"`
}

// PublicListingFilter selects and pages the public listing feed.
type PublicListingFilter struct {
	Type        *models.PropertyType
	ListingType *models.ListingType
	MinPrice    *float64
	MaxPrice    *float64
	Location    string
	Page        int
	PageSize    int
}

// PublicListingPage is one page of the public feed plus its metadata.
type PublicListingPage struct {
	Listings    []models.ListingWithOwner `json:"listings"`
	Total       int64                     `json:"total"`
	CurrentPage int                       `json:"currentPage"`
	TotalPages  int                       `json:"totalPages"`
}

// IListingService defines the interface for listing lifecycle operations.
type IListingService interface {
	Create(ctx context.Context, principal authz.Principal, input ListingInput, images []storage.ImageUpload) (*models.Listing, error)
	Update(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID, input ListingUpdate, images []storage.ImageUpload) (*models.Listing, error)
	Delete(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID) error
	GetByID(ctx context.Context, listingID primitive.ObjectID) (*models.ListingWithOwner, error)
	ListPublic(ctx context.Context, filter PublicListingFilter) (*PublicListingPage, error)
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error)
}

const listingsCollection = "listings"

// listingService implements IListingService.
type listingService struct {
	db          *mongo.Database
	cfg         *config.Config
	media       storage.IMediaStore
	userService IUserService
}

// NewListingService creates a new ListingService.
func NewListingService(db *mongo.Database, cfg *config.Config, media storage.IMediaStore, userService IUserService) IListingService {
	return &listingService{db: db, cfg: cfg, media: media, userService: userService}
}

// uploadAll stores every image concurrently and returns the resulting URLs
// in submission order (the first image is the cover). The first failure
// cancels the remaining uploads and aborts the whole batch.
func (s *listingService) uploadAll(ctx context.Context, images []storage.ImageUpload) ([]string, error) {
	urls := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			uploadCtx, cancel := context.WithTimeout(gctx, s.cfg.UploadTimeout)
			defer cancel()
			url, err := s.media.Upload(uploadCtx, img)
			if err != nil {
				return fmt.Errorf("upload of %s failed: %w", img.Filename, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return urls, nil
}

// deleteImages removes stored images best-effort: a single deletion failure
// is logged and the rest still proceed.
func (s *listingService) deleteImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.media.Delete(ctx, url); err != nil {
			log.Printf("Failed to delete listing image %s: %v", url, err)
		}
	}
}

// Create persists a new listing for an approved agent within quota.
// No partial state survives a failure: an upload error aborts the creation,
// and a persistence error returns the consumed quota slot and removes the
// already uploaded images.
func (s *listingService) Create(ctx context.Context, principal authz.Principal, input ListingInput, images []storage.ImageUpload) (*models.Listing, error) {
	if err := authz.Authorize(principal, authz.OpListingCreate); err != nil {
		return nil, err
	}
	if err := s.userService.ConsumeMonthlyQuota(ctx, principal.ID); err != nil {
		return nil, err
	}

	imageURLs, err := s.uploadAll(ctx, images)
	if err != nil {
		if releaseErr := s.userService.ReleaseMonthlyQuota(ctx, principal.ID); releaseErr != nil {
			log.Printf("Failed to release quota slot for user %s: %v", principal.ID.Hex(), releaseErr)
		}
		return nil, err
	}
	if imageURLs == nil {
		imageURLs = []string{}
	}

	now := time.Now().UTC()
	newListing := &models.Listing{
		ID:          primitive.NewObjectID(),
		UserID:      principal.ID,
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Type:        input.Type,
		ListingType: input.ListingType,
		Location:    input.Location,
		Address:     input.Address,
		Images:      imageURLs,
		Features:    input.Features,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if newListing.Features == nil {
		newListing.Features = []string{}
	}

	if _, err := s.db.Collection(listingsCollection).InsertOne(ctx, newListing); err != nil {
		s.deleteImages(ctx, imageURLs)
		if releaseErr := s.userService.ReleaseMonthlyQuota(ctx, principal.ID); releaseErr != nil {
			log.Printf("Failed to release quota slot for user %s: %v", principal.ID.Hex(), releaseErr)
		}
		return nil, fmt.Errorf("failed to insert listing for user %s: %w", principal.ID.Hex(), err)
	}

	return newListing, nil
}

// findListing loads a listing or reports ErrNotFound.
func (s *listingService) findListing(ctx context.Context, listingID primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.Collection(listingsCollection).FindOne(ctx, bson.M{"_id": listingID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", listingID.Hex(), err)
	}
	return &listing, nil
}

// Update mutates a listing owned by the principal (or any admin). New
// images are appended to the existing sequence, never replacing it.
func (s *listingService) Update(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID, input ListingUpdate, images []storage.ImageUpload) (*models.Listing, error) {
	existing, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeOwnership(principal, existing.UserID); err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if input.Title != nil {
		set["title"] = *input.Title
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Price != nil {
		set["price"] = *input.Price
	}
	if input.Type != nil {
		set["type"] = *input.Type
	}
	if input.ListingType != nil {
		set["listing_type"] = *input.ListingType
	}
	if input.Location != nil {
		set["location"] = *input.Location
	}
	if input.Address != nil {
		set["address"] = *input.Address
	}
	if input.Features != nil {
		set["features"] = input.Features
	}
	if input.Available != nil {
		set["available"] = *input.Available
	}

	if len(images) > 0 {
		newURLs, err := s.uploadAll(ctx, images)
		if err != nil {
			return nil, err
		}
		set["images"] = append(existing.Images, newURLs...)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Listing
	err = s.db.Collection(listingsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": listingID}, bson.M{"$set": set}, opts).
		Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID.Hex(), err)
	}
	return &updated, nil
}

// Delete removes a listing and its stored images. Image deletion is
// best-effort per image; the record deletion proceeds regardless.
func (s *listingService) Delete(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID) error {
	existing, err := s.findListing(ctx, listingID)
	if err != nil {
		return err
	}
	if err := authz.AuthorizeOwnership(principal, existing.UserID); err != nil {
		return err
	}

	s.deleteImages(ctx, existing.Images)

	result, err := s.db.Collection(listingsCollection).DeleteOne(ctx, bson.M{"_id": listingID})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", listingID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a listing joined with its owner's contact fields.
func (s *listingService) GetByID(ctx context.Context, listingID primitive.ObjectID) (*models.ListingWithOwner, error) {
	listing, err := s.findListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	result := &models.ListingWithOwner{Listing: *listing}

	var owner models.User
	err = s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": listing.UserID}).Decode(&owner)
	if err == nil {
		result.Owner = &models.ListingOwner{
			ID:          owner.ID,
			Email:       owner.Email,
			FirstName:   owner.FirstName,
			LastName:    owner.LastName,
			PhoneNumber: owner.PhoneNumber,
			IsPremium:   owner.IsPremium,
		}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error loading owner of listing %s: %w", listingID.Hex(), err)
	}

	return result, nil
}

// publicFilter translates a PublicListingFilter into the base Mongo filter
// (availability plus the optional criteria; ownership is added per segment).
func publicFilter(f PublicListingFilter) bson.M {
	filter := bson.M{"available": true}
	if f.Type != nil {
		filter["type"] = *f.Type
	}
	if f.ListingType != nil {
		filter["listing_type"] = *f.ListingType
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	if f.Location != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(f.Location), "$options": "i"}
	}
	return filter
}

// ListPublic returns the public feed: available listings owned by agents,
// premium owners strictly before non-premium ones, newest first within each
// group. Pagination is offset-based across the combined order.
func (s *listingService) ListPublic(ctx context.Context, f PublicListingFilter) (*PublicListingPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 12
	}

	// Resolve eligible owners first: only AGENT / AGENT_PREMIUM accounts
	// surface publicly, and the premium flag drives the sort order.
	ownerCursor, err := s.db.Collection(usersCollection).Find(ctx,
		bson.M{"role": bson.M{"$in": []models.UserRole{models.RoleAgent, models.RoleAgentPremium}}})
	if err != nil {
		return nil, fmt.Errorf("error loading listing owners: %w", err)
	}
	defer ownerCursor.Close(ctx)

	owners := make(map[primitive.ObjectID]*models.User)
	var premiumIDs, standardIDs []primitive.ObjectID
	for ownerCursor.Next(ctx) {
		var u models.User
		if err := ownerCursor.Decode(&u); err != nil {
			return nil, fmt.Errorf("error decoding listing owner: %w", err)
		}
		owner := u
		owners[u.ID] = &owner
		if u.IsPremium {
			premiumIDs = append(premiumIDs, u.ID)
		} else {
			standardIDs = append(standardIDs, u.ID)
		}
	}
	if err := ownerCursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing owners: %w", err)
	}

	collection := s.db.Collection(listingsCollection)
	baseFilter := publicFilter(f)

	segmentCount := func(ids []primitive.ObjectID) (int64, error) {
		if len(ids) == 0 {
			return 0, nil
		}
		filter := bson.M{"user_id": bson.M{"$in": ids}}
		for k, v := range baseFilter {
			filter[k] = v
		}
		return collection.CountDocuments(ctx, filter)
	}

	premiumTotal, err := segmentCount(premiumIDs)
	if err != nil {
		return nil, fmt.Errorf("error counting premium listings: %w", err)
	}
	standardTotal, err := segmentCount(standardIDs)
	if err != nil {
		return nil, fmt.Errorf("error counting listings: %w", err)
	}

	total := premiumTotal + standardTotal
	totalPages := int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	offset := int64((f.Page - 1) * f.PageSize)

	fetchSegment := func(ids []primitive.ObjectID, skip, limit int64) ([]models.Listing, error) {
		if len(ids) == 0 || limit <= 0 {
			return nil, nil
		}
		filter := bson.M{"user_id": bson.M{"$in": ids}}
		for k, v := range baseFilter {
			filter[k] = v
		}
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetSkip(skip).
			SetLimit(limit)
		cursor, err := collection.Find(ctx, filter, opts)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		var listings []models.Listing
		if err := cursor.All(ctx, &listings); err != nil {
			return nil, err
		}
		return listings, nil
	}

	// The page window may straddle the premium/standard boundary: take what
	// the premium segment covers, then fill the rest from the standard one.
	var pageListings []models.Listing
	remaining := int64(f.PageSize)
	if offset < premiumTotal {
		premiumPage, err := fetchSegment(premiumIDs, offset, remaining)
		if err != nil {
			return nil, fmt.Errorf("error fetching premium listings: %w", err)
		}
		pageListings = append(pageListings, premiumPage...)
		remaining -= int64(len(premiumPage))
		offset = 0
	} else {
		offset -= premiumTotal
	}
	if remaining > 0 {
		standardPage, err := fetchSegment(standardIDs, offset, remaining)
		if err != nil {
			return nil, fmt.Errorf("error fetching listings: %w", err)
		}
		pageListings = append(pageListings, standardPage...)
	}

	joined := make([]models.ListingWithOwner, 0, len(pageListings))
	for _, listing := range pageListings {
		item := models.ListingWithOwner{Listing: listing}
		if owner, ok := owners[listing.UserID]; ok {
			item.Owner = &models.ListingOwner{
				ID:        owner.ID,
				FirstName: owner.FirstName,
				LastName:  owner.LastName,
				IsPremium: owner.IsPremium,
			}
		}
		joined = append(joined, item)
	}

	return &PublicListingPage{
		Listings:    joined,
		Total:       total,
		CurrentPage: f.Page,
		TotalPages:  totalPages,
	}, nil
}

// ListByOwner returns all listings of one owner, newest first.
func (s *listingService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing properties of user %s: %w", ownerID.Hex(), err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding listings of user %s: %w", ownerID.Hex(), err)
	}
	return listings, nil
}
