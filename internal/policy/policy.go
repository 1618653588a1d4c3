// Package policy centralizes authorization decisions. Handlers and services
// ask it whether an actor may perform an action instead of spreading role
// checks across the codebase.
package policy

import (
	"fmt"

	"girder/internal/models"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionSubmitRequest  Action = "access_request:submit"
	ActionDecideRequest  Action = "access_request:decide"
	ActionRevokeRequest  Action = "access_request:revoke"
	ActionViewRequests   Action = "access_request:view"
	ActionManageUsers    Action = "user:manage"
	ActionManageProjects Action = "project:manage"
	ActionViewAuditLog   Action = "audit:view"
	ActionViewEventLog   Action = "events:view"
)

// rolesFor maps each action to the global roles allowed to perform it.
var rolesFor = map[Action][]models.UserRole{
	ActionSubmitRequest:  {models.UserRoleStakeholder, models.UserRoleStaff, models.UserRoleAdmin},
	ActionDecideRequest:  {models.UserRoleStaff, models.UserRoleAdmin},
	ActionRevokeRequest:  {models.UserRoleStaff, models.UserRoleAdmin},
	ActionViewRequests:   {models.UserRoleStaff, models.UserRoleAdmin},
	ActionManageUsers:    {models.UserRoleAdmin},
	ActionManageProjects: {models.UserRoleStaff, models.UserRoleAdmin},
	ActionViewAuditLog:   {models.UserRoleAdmin},
	ActionViewEventLog:   {models.UserRoleAdmin},
}

// Can reports whether the actor's role permits the action. Inactive actors can
// do nothing.
func Can(actor *models.User, action Action) bool {
	if actor == nil || !actor.Active {
		return false
	}
	for _, role := range rolesFor[action] {
		if actor.Role == role {
			return true
		}
	}
	return false
}

// Authorize is Can with an error result suitable for returning straight to a
// handler.
func Authorize(actor *models.User, action Action) error {
	if actor == nil {
		return models.NewUnauthorizedError("authentication required")
	}
	if !actor.Active {
		return models.NewForbiddenError("account is deactivated")
	}
	if !Can(actor, action) {
		return models.NewForbiddenError(fmt.Sprintf("role %s may not perform %s", actor.Role, action))
	}
	return nil
}
