package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/GhostEsso/ahoefa-backend/internal/auth"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/db"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
)

// RegisterInput carries the fields accepted at registration. Role may be
// USER or AGENT; anything else is rejected. Agents start PENDING and
// non-premium regardless of what the payload claims.
type RegisterInput struct {
	Email        string
	Password     string
	FirstName    string
	LastName     string
	PhoneNumber  string
	Organization string
	Role         models.UserRole
}

// UpdateProfileInput carries the mutable profile fields. Nil pointers leave
// the stored value untouched.
type UpdateProfileInput struct {
	FirstName    *string
	LastName     *string
	PhoneNumber  *string
	Organization *string
	Password     *string
}

// IUserService defines the interface for user-related operations.
type IUserService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	SuperAdminLogin(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*models.User, error)
	ConsumeMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error
	ReleaseMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error
	EnsureSuperAdmin(ctx context.Context) error
}

const usersCollection = "users"

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// Register creates a new user or agent account.
func (s *userService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAgent {
		return nil, fmt.Errorf("%w: role %q cannot be self-assigned", ErrValidation, input.Role)
	}

	collection := s.db.Collection(usersCollection)

	count, err := collection.CountDocuments(ctx, bson.M{"email": input.Email})
	if err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", input.Email, err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password for %s: %w", input.Email, err)
	}

	now := time.Now().UTC()
	newUser := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhoneNumber:  input.PhoneNumber,
		Organization: input.Organization,
		Role:         role,
		IsPremium:    false,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == models.RoleAgent {
		newUser.AgentStatus = models.AgentStatusPending
	}

	operation := func() error {
		_, insertErr := collection.InsertOne(ctx, newUser)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		// The unique email index closes the race left open by the count above.
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("error inserting new user %s: %w", input.Email, err)
	}

	return newUser, nil
}

// Login verifies credentials and returns the matching user.
func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SuperAdminLogin verifies credentials against the SUPER_ADMIN record only.
func (s *userService) SuperAdminLogin(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": email, "role": models.RoleSuperAdmin}
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding super admin %s: %w", email, err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// FindByID finds a user by their ID.
func (s *userService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindByEmail finds a user by their email address.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (s *userService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, input UpdateProfileInput) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if input.FirstName != nil {
		set["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		set["last_name"] = *input.LastName
	}
	if input.PhoneNumber != nil {
		set["phone_number"] = *input.PhoneNumber
	}
	if input.Organization != nil {
		set["organization"] = *input.Organization
	}
	if input.Password != nil {
		hashed, err := auth.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for user %s: %w", userID.Hex(), err)
		}
		set["password"] = hashed
	}

	result, err := s.db.Collection(usersCollection).UpdateByID(ctx, userID, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("error updating profile for user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, userID)
}

// sameMonth reports whether two instants fall in the same calendar month.
func sameMonth(a, b time.Time) bool {
	return a.Month() == b.Month() && a.Year() == b.Year()
}

// ConsumeMonthlyQuota reserves one listing slot in the current calendar
// month for a non-premium agent. Premium agents are unlimited. Both paths
// are single conditional updates so two concurrent creations cannot both
// take the last slot, nor both open a fresh month on slot one.
func (s *userService) ConsumeMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error {
	collection := s.db.Collection(usersCollection)

	for attempt := 0; attempt <= db.DefaultMaxRetries; attempt++ {
		user, err := s.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.Role == models.RoleAgentPremium {
			return nil
		}

		now := time.Now().UTC()

		if user.LastPostReset == nil || !sameMonth(*user.LastPostReset, now) {
			// New quota window: this creation takes the first slot. The
			// filter pins the reset stamp we read, so if another request
			// opened the window first we re-read and go through the
			// in-month path instead of overwriting its count.
			filter := bson.M{"_id": userID}
			if user.LastPostReset == nil {
				filter["last_post_reset"] = nil
			} else {
				filter["last_post_reset"] = *user.LastPostReset
			}
			update := bson.M{"$set": bson.M{
				"monthly_posts":   1,
				"last_post_reset": now,
				"updated_at":      now,
			}}
			result, err := collection.UpdateOne(ctx, filter, update)
			if err != nil {
				return fmt.Errorf("error resetting monthly quota for user %s: %w", userID.Hex(), err)
			}
			if result.MatchedCount == 0 {
				continue
			}
			return nil
		}

		filter := bson.M{
			"_id":           userID,
			"monthly_posts": bson.M{"$lt": s.monthlyLimit()},
		}
		update := bson.M{
			"$inc": bson.M{"monthly_posts": 1},
			"$set": bson.M{"updated_at": now},
		}
		result, err := collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("error consuming monthly quota for user %s: %w", userID.Hex(), err)
		}
		if result.MatchedCount == 0 {
			return ErrQuotaExceeded
		}
		return nil
	}
	return fmt.Errorf("quota state for user %s kept changing, giving up", userID.Hex())
}

// ReleaseMonthlyQuota returns a slot consumed by a creation that later
// failed to persist. Best-effort.
func (s *userService) ReleaseMonthlyQuota(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{
		"_id":           userID,
		"monthly_posts": bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{"monthly_posts": -1}}
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error releasing monthly quota for user %s: %w", userID.Hex(), err)
	}
	return nil
}

// monthlyLimit returns the configured per-month cap for non-premium agents.
func (s *userService) monthlyLimit() int {
	if s.cfg != nil && s.cfg.MonthlyPostLimit > 0 {
		return s.cfg.MonthlyPostLimit
	}
	return 4
}

// EnsureSuperAdmin creates the bootstrap SUPER_ADMIN account from config
// when it does not exist yet. Called once at process startup.
func (s *userService) EnsureSuperAdmin(ctx context.Context) error {
	if s.cfg == nil || s.cfg.SuperAdminEmail == "" || s.cfg.SuperAdminPassword == "" {
		return fmt.Errorf("super admin credentials are not configured")
	}

	collection := s.db.Collection(usersCollection)
	filter := bson.M{"email": s.cfg.SuperAdminEmail, "role": models.RoleSuperAdmin}
	err := collection.FindOne(ctx, filter).Err()
	if err == nil {
		return nil // Already bootstrapped
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("error checking for existing super admin: %w", err)
	}

	hashed, err := auth.HashPassword(s.cfg.SuperAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash super admin password: %w", err)
	}

	now := time.Now().UTC()
	superAdmin := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        s.cfg.SuperAdminEmail,
		PasswordHash: hashed,
		FirstName:    "Super",
		LastName:     "Admin",
		Role:         models.RoleSuperAdmin,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := collection.InsertOne(ctx, superAdmin); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil // Another instance won the bootstrap race
		}
		return fmt.Errorf("failed to create super admin: %w", err)
	}
	log.Printf("Super admin created: %s", superAdmin.Email)
	return nil
}
