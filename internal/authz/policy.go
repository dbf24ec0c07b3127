package authz

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/GhostEsso/ahoefa-backend/internal/models"
)

// ErrForbidden is returned when an authenticated principal lacks the role,
// approval or ownership an operation requires.
var ErrForbidden = errors.New("insufficient privileges")

// Operation names a protected action. Every role-gated code path authorizes
// against the policy table through one of these, so there is exactly one
// place where "who may do what" is written down.
type Operation string

const (
	OpListingCreate  Operation = "listing.create"
	OpListingUpdate  Operation = "listing.update"
	OpListingDelete  Operation = "listing.delete"
	OpListingListOwn Operation = "listing.list_own"
	OpAgentListAll   Operation = "agent.list_all"
	OpAgentSetPrem   Operation = "agent.set_premium"
	OpMessageSend    Operation = "message.send"
	OpMessageList    Operation = "message.list"
	OpProfileRead    Operation = "user.profile_read"
	OpProfileUpdate  Operation = "user.profile_update"
)

// rule is one policy table entry.
type rule struct {
	// roles allowed to perform the operation; empty means any authenticated role.
	roles []models.UserRole
	// requireApprovedAgent additionally demands agent_status == APPROVED
	// when the principal holds an agent role.
	requireApprovedAgent bool
}

var policy = map[Operation]rule{
	OpListingCreate: {
		roles:                []models.UserRole{models.RoleAgent, models.RoleAgentPremium},
		requireApprovedAgent: true,
	},
	// Update/delete are additionally guarded by the ownership predicate;
	// the role gate here only keeps plain USERs off agent surfaces.
	OpListingUpdate: {
		roles: []models.UserRole{models.RoleAgent, models.RoleAgentPremium, models.RoleAdmin, models.RoleSuperAdmin},
	},
	OpListingDelete: {
		roles: []models.UserRole{models.RoleAgent, models.RoleAgentPremium, models.RoleAdmin, models.RoleSuperAdmin},
	},
	OpListingListOwn: {
		roles: []models.UserRole{models.RoleAgent, models.RoleAgentPremium, models.RoleAdmin, models.RoleSuperAdmin},
	},
	OpAgentListAll: {
		roles: []models.UserRole{models.RoleSuperAdmin},
	},
	OpAgentSetPrem: {
		roles: []models.UserRole{models.RoleSuperAdmin},
	},
	OpMessageSend:   {},
	OpMessageList:   {},
	OpProfileRead:   {},
	OpProfileUpdate: {},
}

// Authorize checks the principal against the policy table entry for op.
// Unknown operations are denied.
func Authorize(p Principal, op Operation) error {
	r, ok := policy[op]
	if !ok {
		return ErrForbidden
	}
	if len(r.roles) > 0 {
		allowed := false
		for _, role := range r.roles {
			if p.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrForbidden
		}
	}
	if r.requireApprovedAgent && p.Role.IsAgent() && p.AgentStatus != models.AgentStatusApproved {
		return ErrForbidden
	}
	return nil
}

// AuthorizeOwnership allows the resource owner and elevated roles only.
func AuthorizeOwnership(p Principal, ownerID primitive.ObjectID) error {
	if !p.IsOwnerOrAdmin(ownerID) {
		return ErrForbidden
	}
	return nil
}
