package services

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/models"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// Authorizer decides whether an actor holds admin capability.
type Authorizer interface {
	IsAdmin(actor Actor) bool
}

// RoleAuthorizer grants admin to the admin role and to configured user IDs.
type RoleAuthorizer struct {
	adminIDs map[uuid.UUID]struct{}
}

// NewRoleAuthorizer parses a comma-separated list of admin user IDs. Invalid
// entries are ignored.
func NewRoleAuthorizer(adminUserIDs string) *RoleAuthorizer {
	ids := make(map[uuid.UUID]struct{})
	for _, part := range strings.Split(adminUserIDs, ",") {
		if id, err := uuid.Parse(strings.TrimSpace(part)); err == nil {
			ids[id] = struct{}{}
		}
	}
	return &RoleAuthorizer{adminIDs: ids}
}

func (a *RoleAuthorizer) IsAdmin(actor Actor) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	_, ok := a.adminIDs[actor.UserID]
	return ok
}

// canManage reports whether actor may act on a resource owned by ownerID.
func canManage(authz Authorizer, actor Actor, ownerID uuid.UUID) bool {
	return actor.UserID == ownerID || authz.IsAdmin(actor)
}
