// Package service implements the business logic of the access workflow
// engine and the admin action surface.
package service

import (
	"context"
	"fmt"
	"time"

	"girder/internal/cache"
	"girder/internal/config"
	"girder/internal/events"
	"girder/internal/middleware"
	"girder/internal/models"
	"girder/internal/observability"
	"girder/internal/policy"
	"girder/internal/repository"
)

// AccessService drives the access request lifecycle: submission with
// auto-approval rules, human decisions, and revocation.
type AccessService struct {
	requestRepo repository.AccessRequestRepository
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	auditRepo   repository.AuditRepository
	rules       *config.ApprovalRules
	bus         *events.Bus
}

// NewAccessService returns a new AccessService.
func NewAccessService(
	requestRepo repository.AccessRequestRepository,
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	auditRepo repository.AuditRepository,
	rules *config.ApprovalRules,
	bus *events.Bus,
) *AccessService {
	if rules == nil {
		rules = &config.ApprovalRules{}
	}
	return &AccessService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		rules:       rules,
		bus:         bus,
	}
}

// Submit appends a new request to the ledger. If an enabled auto-approval rule
// matches, the record enters the ledger already approved with the rule name
// recorded; otherwise it awaits human review.
func (s *AccessService) Submit(ctx context.Context, contactID, projectID uint, requestedRole, justification string) (*models.AccessRequest, error) {
	if !models.IsValidAccessRole(requestedRole) {
		return nil, models.NewValidationError(fmt.Sprintf("unknown access role %q", requestedRole))
	}

	contact, err := s.userRepo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if !contact.Active {
		return nil, models.NewForbiddenError("account is deactivated")
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Archived {
		return nil, models.NewConflictError("project is archived")
	}

	// Friendly pre-check; the partial unique index backstops the race.
	existing, err := s.requestRepo.FindOpenByPair(ctx, contactID, projectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("an open access request already exists for this contact and project")
	}

	request := &models.AccessRequest{
		ContactID:     contactID,
		ProjectID:     projectID,
		RequestedRole: requestedRole,
		Justification: justification,
		Status:        models.AccessRequestStatusPending,
	}

	ruleName, err := s.matchAutoApproval(ctx, contact, project, requestedRole)
	if err != nil {
		return nil, err
	}
	if ruleName != "" {
		now := time.Now()
		request.Status = models.AccessRequestStatusApproved
		request.AutoApprovalReason = &ruleName
		request.ProcessedAt = &now
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		if appErr, ok := err.(*models.AppError); ok && appErr.Code == models.CodeConflict {
			observability.AccessRequestConflicts.Inc()
		}
		return nil, err
	}

	s.recordAudit(ctx, contactID, models.AuditActionRequestSubmitted, request, "", string(request.Status))

	created, err := s.requestRepo.GetByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	path := "submit"
	if ruleName != "" {
		path = "auto"
	}
	observability.AccessRequestTransitions.WithLabelValues(string(created.Status), path).Inc()

	if s.bus != nil {
		s.bus.Publish(events.KindAccessRequestSubmitted, created, nil)
		if ruleName != "" {
			s.bus.Publish(events.KindAccessRequestDecided, created, nil)
		}
	}
	return created, nil
}

// matchAutoApproval returns the name of the first enabled rule matching the
// submission, or "" when none does.
func (s *AccessService) matchAutoApproval(ctx context.Context, contact *models.User, project *models.Project, requestedRole string) (string, error) {
	for _, rule := range s.rules.Enabled() {
		switch rule.Name {
		case config.RuleRoleBelowThreshold:
			maxRank := models.AccessRoleRank(rule.MaxRole)
			if maxRank > 0 && models.AccessRoleRank(requestedRole) <= maxRank {
				return rule.Name, nil
			}
		case config.RuleSiblingProjectGrant:
			ok, err := s.requestRepo.HasApprovedForClient(ctx, contact.ID, project.ClientRef, requestedRole, project.ID)
			if err != nil {
				return "", err
			}
			if ok {
				return rule.Name, nil
			}
		}
	}
	return "", nil
}

// Decide applies a human approve or reject decision to a pending request.
func (s *AccessService) Decide(ctx context.Context, actor *models.User, id uint, approve bool) (*models.AccessRequest, error) {
	if err := policy.Authorize(actor, policy.ActionDecideRequest); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.ContactID == actor.ID {
		return nil, models.NewSelfActionForbiddenError("you may not decide your own access request")
	}

	target := models.AccessRequestStatusRejected
	if approve {
		target = models.AccessRequestStatusApproved
	}
	if !request.Status.CanTransitionTo(target) {
		return nil, models.NewInvalidTransitionError(request.Status, target)
	}

	now := time.Now()
	fields := map[string]interface{}{
		"processed_by_id": actor.ID,
		"processed_at":    now,
	}
	if err := s.requestRepo.UpdateTransition(ctx, id, request.Status, target, fields); err != nil {
		return nil, err
	}
	cache.InvalidateAccessRequest(ctx, request.ReferenceID)

	s.recordAudit(ctx, actor.ID, models.AuditActionRequestDecided, request, string(request.Status), string(target))

	decided, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	observability.AccessRequestTransitions.WithLabelValues(string(target), "human").Inc()
	if s.bus != nil {
		s.bus.Publish(events.KindAccessRequestDecided, decided, nil)
	}
	return decided, nil
}

// Revoke withdraws an approved grant. Only approved requests can be revoked.
func (s *AccessService) Revoke(ctx context.Context, actor *models.User, id uint) (*models.AccessRequest, error) {
	if err := policy.Authorize(actor, policy.ActionRevokeRequest); err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	target := models.AccessRequestStatusRevoked
	if !request.Status.CanTransitionTo(target) {
		return nil, models.NewInvalidTransitionError(request.Status, target)
	}

	// The decision attribution (processed_at, processed_by_id or the
	// auto-approval reason) belongs to the first transition out of pending and
	// stays untouched; the revoking admin is recorded in the audit log.
	if err := s.requestRepo.UpdateTransition(ctx, id, request.Status, target, nil); err != nil {
		return nil, err
	}
	cache.InvalidateAccessRequest(ctx, request.ReferenceID)

	s.recordAudit(ctx, actor.ID, models.AuditActionRequestRevoked, request, string(request.Status), string(target))

	revoked, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	observability.AccessRequestTransitions.WithLabelValues(string(target), "human").Inc()
	if s.bus != nil {
		s.bus.Publish(events.KindAccessRequestRevoked, revoked, nil)
	}
	return revoked, nil
}

// GetByReferenceID loads a single request by its external reference.
func (s *AccessService) GetByReferenceID(ctx context.Context, referenceID string) (*models.AccessRequest, error) {
	return s.requestRepo.GetByReferenceID(ctx, referenceID)
}

// ListPending returns all requests awaiting review, oldest first.
func (s *AccessService) ListPending(ctx context.Context) ([]models.AccessRequest, error) {
	return s.requestRepo.ListPending(ctx)
}

// ListByProject returns all requests for a project, newest first.
func (s *AccessService) ListByProject(ctx context.Context, projectID uint) ([]models.AccessRequest, error) {
	return s.requestRepo.ListByProject(ctx, projectID)
}

// ListByContact returns all requests a contact has submitted, newest first.
func (s *AccessService) ListByContact(ctx context.Context, contactID uint) ([]models.AccessRequest, error) {
	return s.requestRepo.ListByContact(ctx, contactID)
}

func (s *AccessService) recordAudit(ctx context.Context, actorID uint, action string, request *models.AccessRequest, prev, next string) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Record(ctx, &models.AuditLog{
		Action:     action,
		ActorID:    actorID,
		TargetType: "access_request",
		TargetID:   request.ID,
		PrevState:  prev,
		NewState:   next,
	}); err != nil {
		middleware.Logger.ErrorContext(ctx, "audit record failed",
			"action", action, "target_id", request.ID, "error", err)
	}
}
