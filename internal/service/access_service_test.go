package service

import (
	"context"
	"log/slog"
	"testing"

	"girder/internal/config"
	"girder/internal/events"
	"girder/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeUser(id uint, role models.UserRole) *models.User {
	return &models.User{ID: id, Username: "u", Email: "u@example.com", Role: role, Active: true}
}

func testProject(id uint, clientRef string) *models.Project {
	return &models.Project{ID: id, Name: "Project", Number: "P-1", ClientRef: clientRef}
}

// defaultRepos returns stubs describing a contact, a project, and an empty
// ledger; individual tests override the fields they exercise.
func defaultRepos(created **models.AccessRequest) (*accessRequestRepoStub, *userRepoStub, *projectRepoStub) {
	requestRepo := &accessRequestRepoStub{
		createFn: func(_ context.Context, r *models.AccessRequest) error {
			r.ID = 1
			if created != nil {
				*created = r
			}
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.AccessRequest, error) {
			if created != nil && *created != nil {
				return *created, nil
			}
			return nil, models.NewNotFoundError("AccessRequest", id)
		},
		findOpenByPairFn: func(context.Context, uint, uint) (*models.AccessRequest, error) {
			return nil, nil
		},
		hasApprovedForClientFn: func(context.Context, uint, string, string, uint) (bool, error) {
			return false, nil
		},
	}
	userRepo := &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return activeUser(id, models.UserRoleStakeholder), nil
		},
	}
	projectRepo := &projectRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Project, error) {
			return testProject(id, "acme"), nil
		},
	}
	return requestRepo, userRepo, projectRepo
}

func TestSubmitPendingWithoutRules(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, nil, nil)

	request, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleManager, "need access")
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusPending, request.Status)
	assert.Nil(t, request.AutoApprovalReason)
	assert.Nil(t, request.ProcessedAt)
}

func TestSubmitAutoApprovedByRoleThreshold(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	rules := &config.ApprovalRules{Rules: []config.ApprovalRule{
		{Name: config.RuleRoleBelowThreshold, Enabled: true, MaxRole: models.AccessRoleCommenter},
	}}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, rules, nil)

	request, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusApproved, request.Status)
	require.NotNil(t, request.AutoApprovalReason)
	assert.Equal(t, config.RuleRoleBelowThreshold, *request.AutoApprovalReason)
	assert.Nil(t, request.ProcessedByID)
	assert.NotNil(t, request.ProcessedAt)
}

func TestSubmitRoleAboveThresholdStaysPending(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	rules := &config.ApprovalRules{Rules: []config.ApprovalRule{
		{Name: config.RuleRoleBelowThreshold, Enabled: true, MaxRole: models.AccessRoleCommenter},
	}}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, rules, nil)

	request, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleManager, "")
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusPending, request.Status)
	assert.Nil(t, request.AutoApprovalReason)
}

func TestSubmitAutoApprovedBySiblingGrant(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	requestRepo.hasApprovedForClientFn = func(_ context.Context, contactID uint, clientRef, minRole string, excludeProjectID uint) (bool, error) {
		assert.Equal(t, uint(10), contactID)
		assert.Equal(t, "acme", clientRef)
		assert.Equal(t, models.AccessRoleManager, minRole)
		assert.Equal(t, uint(20), excludeProjectID)
		return true, nil
	}
	rules := &config.ApprovalRules{Rules: []config.ApprovalRule{
		{Name: config.RuleSiblingProjectGrant, Enabled: true},
	}}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, rules, nil)

	request, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleManager, "")
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusApproved, request.Status)
	require.NotNil(t, request.AutoApprovalReason)
	assert.Equal(t, config.RuleSiblingProjectGrant, *request.AutoApprovalReason)
}

func TestSubmitFirstMatchingRuleWins(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	requestRepo.hasApprovedForClientFn = func(context.Context, uint, string, string, uint) (bool, error) {
		return true, nil
	}
	rules := &config.ApprovalRules{Rules: []config.ApprovalRule{
		{Name: config.RuleSiblingProjectGrant, Enabled: true},
		{Name: config.RuleRoleBelowThreshold, Enabled: true, MaxRole: models.AccessRoleManager},
	}}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, rules, nil)

	request, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.NoError(t, err)
	require.NotNil(t, request.AutoApprovalReason)
	assert.Equal(t, config.RuleSiblingProjectGrant, *request.AutoApprovalReason)
}

func TestSubmitConflictOnExistingOpenRequest(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	requestRepo.findOpenByPairFn = func(context.Context, uint, uint) (*models.AccessRequest, error) {
		return &models.AccessRequest{ID: 99, Status: models.AccessRequestStatusPending}, nil
	}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, nil, nil)

	_, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, err.(*models.AppError).Code)
}

func TestSubmitRejectsUnknownRoleAndArchivedProject(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, nil, nil)

	_, err := svc.Submit(context.Background(), 10, 20, "owner", "")
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, err.(*models.AppError).Code)

	projectRepo.getByIDFn = func(_ context.Context, id uint) (*models.Project, error) {
		return &models.Project{ID: id, Archived: true}, nil
	}
	_, err = svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, err.(*models.AppError).Code)
}

func TestSubmitPublishesEvents(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	bus := events.NewBus(slog.Default())
	eventLog := events.NewLog(8)
	bus.SubscribeAll("test.log", eventLog.Record)

	rules := &config.ApprovalRules{Rules: []config.ApprovalRule{
		{Name: config.RuleRoleBelowThreshold, Enabled: true, MaxRole: models.AccessRoleViewer},
	}}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, &auditRepoStub{}, rules, bus)

	_, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.NoError(t, err)

	recent := eventLog.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, events.KindAccessRequestSubmitted, recent[0].Kind)
	assert.Equal(t, events.KindAccessRequestDecided, recent[1].Kind)
}

func TestDecideApprove(t *testing.T) {
	t.Parallel()

	pending := &models.AccessRequest{ID: 5, ContactID: 10, ProjectID: 20, Status: models.AccessRequestStatusPending}
	var transitioned bool
	requestRepo := &accessRequestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.AccessRequest, error) {
			if transitioned {
				approved := *pending
				approved.Status = models.AccessRequestStatusApproved
				return &approved, nil
			}
			return pending, nil
		},
		updateTransitionFn: func(_ context.Context, id uint, from, to models.AccessRequestStatus, fields map[string]interface{}) error {
			assert.Equal(t, uint(5), id)
			assert.Equal(t, models.AccessRequestStatusPending, from)
			assert.Equal(t, models.AccessRequestStatusApproved, to)
			assert.Equal(t, uint(2), fields["processed_by_id"])
			transitioned = true
			return nil
		},
	}
	svc := NewAccessService(requestRepo, nil, nil, &auditRepoStub{}, nil, nil)

	decided, err := svc.Decide(context.Background(), activeUser(2, models.UserRoleStaff), 5, true)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusApproved, decided.Status)
}

func TestDecideOwnRequestForbidden(t *testing.T) {
	t.Parallel()

	requestRepo := &accessRequestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: 5, ContactID: 2, Status: models.AccessRequestStatusPending}, nil
		},
	}
	svc := NewAccessService(requestRepo, nil, nil, &auditRepoStub{}, nil, nil)

	_, err := svc.Decide(context.Background(), activeUser(2, models.UserRoleStaff), 5, true)
	require.Error(t, err)
	assert.Equal(t, models.CodeSelfActionForbidden, err.(*models.AppError).Code)
}

func TestDecideRequiresStaffRole(t *testing.T) {
	t.Parallel()

	svc := NewAccessService(&accessRequestRepoStub{}, nil, nil, &auditRepoStub{}, nil, nil)

	_, err := svc.Decide(context.Background(), activeUser(2, models.UserRoleStakeholder), 5, true)
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, err.(*models.AppError).Code)
}

func TestDecideAlreadyDecidedIsInvalidTransition(t *testing.T) {
	t.Parallel()

	requestRepo := &accessRequestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: 5, ContactID: 10, Status: models.AccessRequestStatusRejected}, nil
		},
	}
	svc := NewAccessService(requestRepo, nil, nil, &auditRepoStub{}, nil, nil)

	_, err := svc.Decide(context.Background(), activeUser(2, models.UserRoleStaff), 5, true)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidTransition, err.(*models.AppError).Code)
}

func TestRevokeApprovedRequest(t *testing.T) {
	t.Parallel()

	approved := &models.AccessRequest{ID: 7, ContactID: 10, Status: models.AccessRequestStatusApproved}
	var transitioned bool
	requestRepo := &accessRequestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.AccessRequest, error) {
			if transitioned {
				revoked := *approved
				revoked.Status = models.AccessRequestStatusRevoked
				return &revoked, nil
			}
			return approved, nil
		},
		updateTransitionFn: func(_ context.Context, _ uint, from, to models.AccessRequestStatus, fields map[string]interface{}) error {
			assert.Equal(t, models.AccessRequestStatusApproved, from)
			assert.Equal(t, models.AccessRequestStatusRevoked, to)
			// The original decision attribution must not be rewritten.
			assert.Nil(t, fields)
			transitioned = true
			return nil
		},
	}
	svc := NewAccessService(requestRepo, nil, nil, &auditRepoStub{}, nil, nil)

	revoked, err := svc.Revoke(context.Background(), activeUser(2, models.UserRoleAdmin), 7)
	require.NoError(t, err)
	assert.Equal(t, models.AccessRequestStatusRevoked, revoked.Status)
}

func TestRevokePendingIsInvalidTransition(t *testing.T) {
	t.Parallel()

	requestRepo := &accessRequestRepoStub{
		getByIDFn: func(context.Context, uint) (*models.AccessRequest, error) {
			return &models.AccessRequest{ID: 7, Status: models.AccessRequestStatusPending}, nil
		},
	}
	svc := NewAccessService(requestRepo, nil, nil, &auditRepoStub{}, nil, nil)

	_, err := svc.Revoke(context.Background(), activeUser(2, models.UserRoleAdmin), 7)
	require.Error(t, err)
	assert.Equal(t, models.CodeInvalidTransition, err.(*models.AppError).Code)
}

func TestSubmitRecordsAudit(t *testing.T) {
	t.Parallel()

	var created *models.AccessRequest
	requestRepo, userRepo, projectRepo := defaultRepos(&created)
	var recorded []models.AuditLog
	auditRepo := &auditRepoStub{
		recordFn: func(_ context.Context, entry *models.AuditLog) error {
			recorded = append(recorded, *entry)
			return nil
		},
	}
	svc := NewAccessService(requestRepo, userRepo, projectRepo, auditRepo, nil, nil)

	_, err := svc.Submit(context.Background(), 10, 20, models.AccessRoleViewer, "")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, models.AuditActionRequestSubmitted, recorded[0].Action)
	assert.Equal(t, uint(10), recorded[0].ActorID)
	assert.Equal(t, "pending", recorded[0].NewState)
}
