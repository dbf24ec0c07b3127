package authz

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/models"
)

// Principal is the authenticated identity attached to a request. It is
// rebuilt from a fresh user lookup on every request: the bearer token proves
// identity only, never authority, so role/approval/premium state is always
// the live record, not a stale token claim.
type Principal struct {
	ID            primitive.ObjectID
	Email         string
	Role          models.UserRole
	IsPremium     bool
	AgentStatus   models.AgentStatus
	MonthlyPosts  int
	LastPostReset *time.Time
}

// PrincipalFromUser builds a Principal from a freshly loaded user record.
func PrincipalFromUser(u *models.User) Principal {
	return Principal{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		IsPremium:     u.IsPremium,
		AgentStatus:   u.AgentStatus,
		MonthlyPosts:  u.MonthlyPosts,
		LastPostReset: u.LastPostReset,
	}
}

// IsOwnerOrAdmin reports whether the principal owns the resource or carries
// an elevated role. This is the ownership predicate shared by listing
// mutation and deletion.
func (p Principal) IsOwnerOrAdmin(ownerID primitive.ObjectID) bool {
	return p.ID == ownerID || p.Role.IsElevated()
}
