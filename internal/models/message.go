package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a directed communication between a user and a premium agent,
// optionally related to a listing.
type Message struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	SenderID   primitive.ObjectID  `bson:"sender_id" json:"senderId"`
	ReceiverID primitive.ObjectID  `bson:"receiver_id" json:"receiverId"`
	ListingID  *primitive.ObjectID `bson:"listing_id,omitempty" json:"propertyId,omitempty"`
	Content    string              `bson:"content" json:"content"`
	CreatedAt  time.Time           `bson:"created_at" json:"createdAt"`
}

// MessageParty is the display subset of a message counterpart.
type MessageParty struct {
	FirstName string `bson:"first_name" json:"firstName"`
	LastName  string `bson:"last_name" json:"lastName"`
	Email     string `bson:"email" json:"email"`
}

// MessageListingRef is the related-listing subset joined onto messages.
type MessageListingRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Title string             `bson:"title" json:"title"`
}

// MessageWithParties is a message joined with sender/receiver display fields
// and, when present, the related listing title.
type MessageWithParties struct {
	Message  `bson:",inline"`
	Sender   *MessageParty      `bson:"sender,omitempty" json:"sender,omitempty"`
	Receiver *MessageParty      `bson:"receiver,omitempty" json:"receiver,omitempty"`
	Property *MessageListingRef `bson:"property,omitempty" json:"property,omitempty"`
}
