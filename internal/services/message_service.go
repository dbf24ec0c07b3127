package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
)

// SendMessageInput carries a message submission.
type SendMessageInput struct {
	ReceiverID primitive.ObjectID
	ListingID  *primitive.ObjectID
	Content    string
}

// IMessageService defines the interface for messaging operations.
type IMessageService interface {
	Send(ctx context.Context, senderID primitive.ObjectID, input SendMessageInput) (*models.MessageWithParties, error)
	ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.MessageWithParties, error)
}

const messagesCollection = "messages"

// messageService implements IMessageService.
type messageService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewMessageService creates a new MessageService.
func NewMessageService(db *mongo.Database, cfg *config.Config) IMessageService {
	return &messageService{db: db, cfg: cfg}
}

// Send delivers a message to a premium agent. Receivers without an active
// premium flag reject the message regardless of the sender's role.
func (s *messageService) Send(ctx context.Context, senderID primitive.ObjectID, input SendMessageInput) (*models.MessageWithParties, error) {
	if input.Content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}

	var receiver models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": input.ReceiverID}).Decode(&receiver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding receiver %s: %w", input.ReceiverID.Hex(), err)
	}
	if !receiver.IsPremium {
		return nil, ErrReceiverNotPremium
	}

	message := &models.Message{
		ID:         primitive.NewObjectID(),
		SenderID:   senderID,
		ReceiverID: input.ReceiverID,
		ListingID:  input.ListingID,
		Content:    input.Content,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, message); err != nil {
		return nil, fmt.Errorf("error inserting message: %w", err)
	}

	result := &models.MessageWithParties{Message: *message}
	result.Receiver = &models.MessageParty{
		FirstName: receiver.FirstName,
		LastName:  receiver.LastName,
		Email:     receiver.Email,
	}
	if sender, err := s.party(ctx, senderID); err == nil {
		result.Sender = sender
	}
	return result, nil
}

// party loads the display subset of one user.
func (s *messageService) party(ctx context.Context, userID primitive.ObjectID) (*models.MessageParty, error) {
	var u models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	if err != nil {
		return nil, err
	}
	return &models.MessageParty{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}, nil
}

// ListConversations returns every message the user sent or received, newest
// first, with sender, receiver and related listing joined in.
func (s *messageService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.MessageWithParties, error) {
	filter := bson.M{"$or": []bson.M{
		{"sender_id": userID},
		{"receiver_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing messages of user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("error decoding messages of user %s: %w", userID.Hex(), err)
	}

	// One lookup per distinct party and listing; conversations are small.
	parties := map[primitive.ObjectID]*models.MessageParty{}
	listings := map[primitive.ObjectID]*models.MessageListingRef{}

	lookupParty := func(id primitive.ObjectID) *models.MessageParty {
		if p, ok := parties[id]; ok {
			return p
		}
		p, err := s.party(ctx, id)
		if err != nil {
			p = nil
		}
		parties[id] = p
		return p
	}
	lookupListing := func(id primitive.ObjectID) *models.MessageListingRef {
		if l, ok := listings[id]; ok {
			return l
		}
		var doc models.MessageListingRef
		err := s.db.Collection(listingsCollection).
			FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"title": 1})).
			Decode(&doc)
		var ref *models.MessageListingRef
		if err == nil {
			ref = &doc
		}
		listings[id] = ref
		return ref
	}

	joined := make([]models.MessageWithParties, 0, len(messages))
	for _, m := range messages {
		item := models.MessageWithParties{Message: m}
		item.Sender = lookupParty(m.SenderID)
		item.Receiver = lookupParty(m.ReceiverID)
		if m.ListingID != nil {
			item.Property = lookupListing(*m.ListingID)
		}
		joined = append(joined, item)
	}
	return joined, nil
}
