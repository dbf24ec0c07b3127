package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/utils"
)

func setupTestDBMessage(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, "messages", "users", "listings")
}

func insertTestUser(t *testing.T, db *mongo.Database, email string, role models.UserRole) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		PasswordHash: "irrelevant",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := db.Collection("users").InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestMessageService_SendRequiresPremiumReceiver(t *testing.T) {
	db := setupTestDBMessage(t, "testdb_message_premium_gate")
	svc := NewMessageService(db, testConfig())
	ctx := context.Background()

	sender := insertTestUser(t, db, "sender@example.com", models.RoleUser)
	standardAgent := insertTestAgent(t, db, "standard@example.com", models.AgentStatusApproved, false)
	premiumAgent := insertTestAgent(t, db, "premium@example.com", models.AgentStatusApproved, true)

	_, err := svc.Send(ctx, sender.ID, SendMessageInput{
		ReceiverID: standardAgent.ID,
		Content:    "Bonjour",
	})
	assert.ErrorIs(t, err, ErrReceiverNotPremium)

	// The gate binds every sender role, admins included.
	admin := insertTestUser(t, db, "admin@example.com", models.RoleAdmin)
	_, err = svc.Send(ctx, admin.ID, SendMessageInput{
		ReceiverID: standardAgent.ID,
		Content:    "Bonjour",
	})
	assert.ErrorIs(t, err, ErrReceiverNotPremium)

	msg, err := svc.Send(ctx, sender.ID, SendMessageInput{
		ReceiverID: premiumAgent.ID,
		Content:    "Bonjour, la villa est-elle disponible?",
	})
	require.NoError(t, err)
	assert.Equal(t, sender.ID, msg.SenderID)
	assert.Equal(t, premiumAgent.ID, msg.ReceiverID)
	require.NotNil(t, msg.Receiver)
	assert.Equal(t, premiumAgent.Email, msg.Receiver.Email)
}

func TestMessageService_SendValidation(t *testing.T) {
	db := setupTestDBMessage(t, "testdb_message_validation")
	svc := NewMessageService(db, testConfig())
	ctx := context.Background()

	sender := insertTestUser(t, db, "sender@example.com", models.RoleUser)
	premiumAgent := insertTestAgent(t, db, "premium@example.com", models.AgentStatusApproved, true)

	_, err := svc.Send(ctx, sender.ID, SendMessageInput{ReceiverID: premiumAgent.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Send(ctx, sender.ID, SendMessageInput{
		ReceiverID: primitive.NewObjectID(),
		Content:    "Hello?",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageService_ListConversations(t *testing.T) {
	db := setupTestDBMessage(t, "testdb_message_conversations")
	svc := NewMessageService(db, testConfig())
	ctx := context.Background()

	user := insertTestUser(t, db, "buyer@example.com", models.RoleUser)
	agent := insertTestAgent(t, db, "agent@example.com", models.AgentStatusApproved, true)
	bystander := insertTestUser(t, db, "bystander@example.com", models.RoleUser)
	listing := insertTestListing(t, db, agent, "Villa au bord de mer", time.Now().UTC(), true)

	first, err := svc.Send(ctx, user.ID, SendMessageInput{
		ReceiverID: agent.ID,
		ListingID:  &listing.ID,
		Content:    "Est-elle toujours disponible?",
	})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond) // Mongo stores timestamps at millisecond precision
	_, err = svc.Send(ctx, bystander.ID, SendMessageInput{
		ReceiverID: agent.ID,
		Content:    "Autre conversation",
	})
	require.NoError(t, err)

	// The user only sees their own exchange, with parties and listing joined.
	conversations, err := svc.ListConversations(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	msg := conversations[0]
	assert.Equal(t, first.ID, msg.ID)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, user.Email, msg.Sender.Email)
	require.NotNil(t, msg.Receiver)
	assert.Equal(t, agent.Email, msg.Receiver.Email)
	require.NotNil(t, msg.Property)
	assert.Equal(t, listing.Title, msg.Property.Title)

	// The agent sees both inbound conversations, newest first.
	agentSide, err := svc.ListConversations(ctx, agent.ID)
	require.NoError(t, err)
	require.Len(t, agentSide, 2)
	assert.Equal(t, "Autre conversation", agentSide[0].Content)
}
