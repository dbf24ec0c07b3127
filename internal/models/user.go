package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole distinguishes plain users, agents and administrators.
type UserRole string

const (
	RoleUser         UserRole = "USER"
	RoleAgent        UserRole = "AGENT"
	RoleAgentPremium UserRole = "AGENT_PREMIUM"
	RoleAdmin        UserRole = "ADMIN"
	RoleSuperAdmin   UserRole = "SUPER_ADMIN"
)

// IsAgent reports whether the role is one of the two agent roles.
func (r UserRole) IsAgent() bool {
	return r == RoleAgent || r == RoleAgentPremium
}

// IsElevated reports whether the role carries administrative authority.
func (r UserRole) IsElevated() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// AgentStatus is the approval state of an agent account.
type AgentStatus string

const (
	AgentStatusPending  AgentStatus = "PENDING"
	AgentStatusApproved AgentStatus = "APPROVED"
)

// User represents a user or agent account.
// Agents carry an organization, an approval status and the monthly post
// counters used for quota enforcement.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"password" json:"-"`
	FirstName     string             `bson:"first_name" json:"firstName"`
	LastName      string             `bson:"last_name" json:"lastName"`
	PhoneNumber   string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Organization  string             `bson:"organization,omitempty" json:"organization,omitempty"`
	Role          UserRole           `bson:"role" json:"role"`
	AgentStatus   AgentStatus        `bson:"agent_status,omitempty" json:"agentStatus,omitempty"`
	IsPremium     bool               `bson:"is_premium" json:"isPremium"`
	IsVerified    bool               `bson:"is_verified" json:"isVerified"`
	MonthlyPosts  int                `bson:"monthly_posts" json:"-"`
	LastPostReset *time.Time         `bson:"last_post_reset,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// PublicUser is the subset of user fields safe to expose on public surfaces.
type PublicUser struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Email        string             `bson:"email" json:"email"`
	FirstName    string             `bson:"first_name" json:"firstName"`
	LastName     string             `bson:"last_name" json:"lastName"`
	PhoneNumber  string             `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	Organization string             `bson:"organization,omitempty" json:"organization,omitempty"`
	Role         UserRole           `bson:"role" json:"role"`
	AgentStatus  AgentStatus        `bson:"agent_status,omitempty" json:"agentStatus,omitempty"`
	IsPremium    bool               `bson:"is_premium" json:"isPremium"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

// Public projects the exposable fields of a user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PhoneNumber:  u.PhoneNumber,
		Organization: u.Organization,
		Role:         u.Role,
		AgentStatus:  u.AgentStatus,
		IsPremium:    u.IsPremium,
		CreatedAt:    u.CreatedAt,
	}
}
