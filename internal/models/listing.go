package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyType categorizes the advertised property.
type PropertyType string

const (
	PropertyHouse     PropertyType = "HOUSE"
	PropertyApartment PropertyType = "APARTMENT"
	PropertyLand      PropertyType = "LAND"
	PropertyOffice    PropertyType = "OFFICE"
	PropertyStore     PropertyType = "STORE"
)

// ListingType says whether a property is for sale or for rent.
type ListingType string

const (
	ListingSale ListingType = "SALE"
	ListingRent ListingType = "RENT"
)

// Listing represents an advertised property. Owned exclusively by its
// creating user; the availability flag gates public visibility.
type Listing struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Type        PropertyType       `bson:"type" json:"type"`
	ListingType ListingType        `bson:"listing_type" json:"listingType"`
	Location    string             `bson:"location" json:"location"`
	Address     string             `bson:"address" json:"address"`
	Images      []string           `bson:"images" json:"images"`   // Durable URLs, submission order; first is the cover
	Features    []string           `bson:"features" json:"features"`
	Available   bool               `bson:"available" json:"available"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ListingOwner is the owner display subset joined onto listing responses.
type ListingOwner struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Email       string             `bson:"email" json:"email,omitempty"`
	FirstName   string             `bson:"first_name" json:"firstName"`
	LastName    string             `bson:"last_name" json:"lastName"`
	PhoneNumber string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	IsPremium   bool               `bson:"is_premium" json:"isPremium"`
}

// ListingWithOwner is a listing joined with its owner's display fields.
type ListingWithOwner struct {
	Listing `bson:",inline"`
	Owner   *ListingOwner `bson:"owner,omitempty" json:"user,omitempty"`
}
