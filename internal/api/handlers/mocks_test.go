package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
	"github.com/GhostEsso/ahoefa-backend/internal/storage"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SuperAdminLogin(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input services.UpdateProfileInput) (*models.User, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ConsumeMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) ReleaseMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) EnsureSuperAdmin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) Create(ctx context.Context, principal authz.Principal, input services.ListingInput, images []storage.ImageUpload) (*models.Listing, error) {
	args := m.Called(ctx, principal, input, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Update(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID, input services.ListingUpdate, images []storage.ImageUpload) (*models.Listing, error) {
	args := m.Called(ctx, principal, listingID, input, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) Delete(ctx context.Context, principal authz.Principal, listingID primitive.ObjectID) error {
	args := m.Called(ctx, principal, listingID)
	return args.Error(0)
}

func (m *MockListingService) GetByID(ctx context.Context, listingID primitive.ObjectID) (*models.ListingWithOwner, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingWithOwner), args.Error(1)
}

func (m *MockListingService) ListPublic(ctx context.Context, filter services.PublicListingFilter) (*services.PublicListingPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PublicListingPage), args.Error(1)
}

func (m *MockListingService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Listing, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

// MockMessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Send(ctx context.Context, senderID primitive.ObjectID, input services.SendMessageInput) (*models.MessageWithParties, error) {
	args := m.Called(ctx, senderID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MessageWithParties), args.Error(1)
}

func (m *MockMessageService) ListConversations(ctx context.Context, userID primitive.ObjectID) ([]models.MessageWithParties, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MessageWithParties), args.Error(1)
}

// MockAgentService
type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) ListPublicAgents(ctx context.Context) ([]services.PublicAgent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.PublicAgent), args.Error(1)
}

func (m *MockAgentService) GetAgentDetail(ctx context.Context, agentID primitive.ObjectID) (*services.AgentDetail, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AgentDetail), args.Error(1)
}

func (m *MockAgentService) ListAllAgents(ctx context.Context) ([]models.PublicUser, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PublicUser), args.Error(1)
}

func (m *MockAgentService) SetPremium(ctx context.Context, agentID primitive.ObjectID, premium bool) (*models.User, error) {
	args := m.Called(ctx, agentID, premium)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
