// Package authz grants orchestrator actions from the roles held in the user directory.
package authz

import (
	"context"
	"fmt"

	userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"
	userports "github.com/Apurer/go-retail-ops/internal/domains/users/ports"
	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
	"github.com/Apurer/go-retail-ops/internal/shared/failures"
)

// DefaultGrants maps each role to the actions it may perform. Admins may do anything.
var DefaultGrants = map[userdomain.Role][]ports.Action{
	userdomain.RoleCustomer: {
		ports.ActionTicketCreate,
		ports.ActionTicketAttachEvidence,
	},
	userdomain.RoleStaff: {
		ports.ActionInboundCreate,
		ports.ActionInboundRead,
		ports.ActionTicketCreate,
		ports.ActionTicketAssign,
		ports.ActionTicketAttachEvidence,
		ports.ActionTicketResolve,
		ports.ActionTicketReject,
		ports.ActionTicketClose,
		ports.ActionTicketRead,
		ports.ActionStockRead,
		ports.ActionOrderRead,
		ports.ActionUserRead,
	},
	userdomain.RoleApprover: {
		ports.ActionInboundApprove,
		ports.ActionInboundReject,
		ports.ActionInboundRead,
		ports.ActionStockRead,
	},
}

// RoleAuthorizer looks the actor up on every call so role changes apply immediately.
type RoleAuthorizer struct {
	users  userports.Directory
	grants map[userdomain.Role]map[ports.Action]struct{}
}

var _ ports.Authorizer = (*RoleAuthorizer)(nil)

// NewRoleAuthorizer builds an authorizer; a nil grants map uses DefaultGrants.
func NewRoleAuthorizer(users userports.Directory, grants map[userdomain.Role][]ports.Action) *RoleAuthorizer {
	if grants == nil {
		grants = DefaultGrants
	}
	index := make(map[userdomain.Role]map[ports.Action]struct{}, len(grants))
	for role, actions := range grants {
		set := make(map[ports.Action]struct{}, len(actions))
		for _, action := range actions {
			set[action] = struct{}{}
		}
		index[role] = set
	}
	return &RoleAuthorizer{users: users, grants: index}
}

func (a *RoleAuthorizer) Authorize(ctx context.Context, actor string, action ports.Action) error {
	user, err := a.users.Get(ctx, actor)
	if err != nil {
		return err
	}
	if !user.Active {
		return failures.Wrap(failures.ErrForbidden, fmt.Errorf("user %q is inactive", actor))
	}
	for _, role := range user.Roles {
		if role == userdomain.RoleAdmin {
			return nil
		}
		if _, ok := a.grants[role][action]; ok {
			return nil
		}
	}
	return failures.Wrap(failures.ErrForbidden, fmt.Errorf("user %q may not %s", actor, action))
}
