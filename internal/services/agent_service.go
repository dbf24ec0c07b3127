package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/models"
)

// PublicAgent is one entry of the public agents directory.
type PublicAgent struct {
	models.PublicUser `bson:",inline"`
	ListingIDs        []primitive.ObjectID `json:"listingIds"`
}

// AgentDetail is the public profile of one agent with their available
// listings.
type AgentDetail struct {
	models.PublicUser `bson:",inline"`
	Listings          []models.Listing `json:"properties"`
}

// IAgentService defines the interface for agent directory operations.
type IAgentService interface {
	ListPublicAgents(ctx context.Context) ([]PublicAgent, error)
	GetAgentDetail(ctx context.Context, agentID primitive.ObjectID) (*AgentDetail, error)
	ListAllAgents(ctx context.Context) ([]models.PublicUser, error)
	SetPremium(ctx context.Context, agentID primitive.ObjectID, premium bool) (*models.User, error)
}

const publicAgentsCacheKey = "agents:public"

// agentService implements IAgentService.
type agentService struct {
	db  *mongo.Database
	cfg *config.Config
	rdb *redis.Client
}

// NewAgentService creates a new AgentService. The Redis client is optional;
// without it the public directory is served uncached.
func NewAgentService(db *mongo.Database, cfg *config.Config, rdb *redis.Client) IAgentService {
	return &agentService{db: db, cfg: cfg, rdb: rdb}
}

// agentRoleFilter matches both agent roles.
func agentRoleFilter() bson.M {
	return bson.M{"role": bson.M{"$in": []models.UserRole{models.RoleAgent, models.RoleAgentPremium}}}
}

// ListPublicAgents returns the approved agents, premium first then newest
// first. The result is cached in Redis for AgentCacheTTL.
func (s *agentService) ListPublicAgents(ctx context.Context) ([]PublicAgent, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, publicAgentsCacheKey).Bytes()
		if err == nil {
			var agents []PublicAgent
			if err := json.Unmarshal(cached, &agents); err == nil {
				return agents, nil
			}
			log.Printf("Discarding unreadable agents cache entry: %v", err)
		} else if !errors.Is(err, redis.Nil) {
			log.Printf("Agents cache read failed: %v", err)
		}
	}

	filter := agentRoleFilter()
	filter["agent_status"] = models.AgentStatusApproved
	opts := options.Find().SetSort(bson.D{
		{Key: "is_premium", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing public agents: %w", err)
	}
	defer cursor.Close(ctx)

	agents := []PublicAgent{}
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, fmt.Errorf("error decoding agent: %w", err)
		}
		ids, err := s.listingIDsOf(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		agents = append(agents, PublicAgent{PublicUser: u.Public(), ListingIDs: ids})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(agents); err == nil {
			if err := s.rdb.Set(ctx, publicAgentsCacheKey, payload, s.cacheTTL()).Err(); err != nil {
				log.Printf("Agents cache write failed: %v", err)
			}
		}
	}

	return agents, nil
}

// listingIDsOf returns the IDs of an agent's available listings.
func (s *agentService) listingIDsOf(ctx context.Context, agentID primitive.ObjectID) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"user_id": agentID, "available": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("error loading listings of agent %s: %w", agentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	ids := []primitive.ObjectID{}
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding listing ID: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// GetAgentDetail returns an agent's public profile with their available
// listings. Non-agent accounts are reported as not found.
func (s *agentService) GetAgentDetail(ctx context.Context, agentID primitive.ObjectID) (*AgentDetail, error) {
	filter := agentRoleFilter()
	filter["_id"] = agentID

	var agent models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&agent)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding agent %s: %w", agentID.Hex(), err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(listingsCollection).Find(ctx,
		bson.M{"user_id": agentID, "available": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("error loading listings of agent %s: %w", agentID.Hex(), err)
	}
	defer cursor.Close(ctx)

	listings := []models.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("error decoding listings of agent %s: %w", agentID.Hex(), err)
	}

	return &AgentDetail{PublicUser: agent.Public(), Listings: listings}, nil
}

// ListAllAgents returns every agent account regardless of approval status.
func (s *agentService) ListAllAgents(ctx context.Context) ([]models.PublicUser, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, agentRoleFilter(), opts)
	if err != nil {
		return nil, fmt.Errorf("error listing agents: %w", err)
	}
	defer cursor.Close(ctx)

	agents := []models.PublicUser{}
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, fmt.Errorf("error decoding agent: %w", err)
		}
		agents = append(agents, u.Public())
	}
	return agents, cursor.Err()
}

// SetPremium flips an agent's premium flag. Role and flag move together:
// a premium agent carries AGENT_PREMIUM, a downgraded one reverts to AGENT.
func (s *agentService) SetPremium(ctx context.Context, agentID primitive.ObjectID, premium bool) (*models.User, error) {
	role := models.RoleAgent
	if premium {
		role = models.RoleAgentPremium
	}

	filter := agentRoleFilter()
	filter["_id"] = agentID
	update := bson.M{"$set": bson.M{
		"is_premium": premium,
		"role":       role,
		"updated_at": time.Now().UTC(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating premium status of agent %s: %w", agentID.Hex(), err)
	}

	s.invalidateCache(ctx)
	return &updated, nil
}

func (s *agentService) invalidateCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, publicAgentsCacheKey).Err(); err != nil {
		log.Printf("Agents cache invalidation failed: %v", err)
	}
}

func (s *agentService) cacheTTL() time.Duration {
	if s.cfg != nil && s.cfg.AgentCacheTTL > 0 {
		return s.cfg.AgentCacheTTL
	}
	return time.Minute
}
