package policy

import (
	"testing"

	"girder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanByRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		role   models.UserRole
		action Action
		want   bool
	}{
		{"stakeholder submits", models.UserRoleStakeholder, ActionSubmitRequest, true},
		{"stakeholder cannot decide", models.UserRoleStakeholder, ActionDecideRequest, false},
		{"staff decides", models.UserRoleStaff, ActionDecideRequest, true},
		{"staff cannot manage users", models.UserRoleStaff, ActionManageUsers, false},
		{"staff cannot view audit log", models.UserRoleStaff, ActionViewAuditLog, false},
		{"admin manages users", models.UserRoleAdmin, ActionManageUsers, true},
		{"admin views event log", models.UserRoleAdmin, ActionViewEventLog, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := &models.User{Role: tt.role, Active: true}
			assert.Equal(t, tt.want, Can(actor, tt.action))
		})
	}
}

func TestCanDeniesInactiveAndNil(t *testing.T) {
	t.Parallel()

	inactive := &models.User{Role: models.UserRoleAdmin, Active: false}
	assert.False(t, Can(inactive, ActionManageUsers))
	assert.False(t, Can(nil, ActionSubmitRequest))
}

func TestAuthorizeErrorCodes(t *testing.T) {
	t.Parallel()

	err := Authorize(nil, ActionDecideRequest)
	require.Error(t, err)
	assert.Equal(t, models.CodeUnauthorized, err.(*models.AppError).Code)

	inactive := &models.User{Role: models.UserRoleAdmin, Active: false}
	err = Authorize(inactive, ActionManageUsers)
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, err.(*models.AppError).Code)

	stakeholder := &models.User{Role: models.UserRoleStakeholder, Active: true}
	err = Authorize(stakeholder, ActionDecideRequest)
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, err.(*models.AppError).Code)

	admin := &models.User{Role: models.UserRoleAdmin, Active: true}
	require.NoError(t, Authorize(admin, ActionManageUsers))
}
