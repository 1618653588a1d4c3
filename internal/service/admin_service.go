package service

import (
	"context"

	"girder/internal/events"
	"girder/internal/middleware"
	"girder/internal/models"
	"girder/internal/policy"
	"girder/internal/repository"
)

// AdminService implements the administrative action surface: account
// activation and deactivation plus audit access.
type AdminService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	bus       *events.Bus
}

// NewAdminService returns a new AdminService.
func NewAdminService(userRepo repository.UserRepository, auditRepo repository.AuditRepository, bus *events.Bus) *AdminService {
	return &AdminService{userRepo: userRepo, auditRepo: auditRepo, bus: bus}
}

// ActivateUser enables a deactivated account. A user already active yields a
// NoOp, not a failure.
func (s *AdminService) ActivateUser(ctx context.Context, actor *models.User, targetID uint) (*models.User, error) {
	return s.setActive(ctx, actor, targetID, true)
}

// DeactivateUser disables an account. Admins may not deactivate themselves;
// self-activation is harmless and falls through to the NoOp report.
func (s *AdminService) DeactivateUser(ctx context.Context, actor *models.User, targetID uint) (*models.User, error) {
	if actor != nil && actor.ID == targetID {
		return nil, models.NewSelfActionForbiddenError("you may not deactivate your own account")
	}
	return s.setActive(ctx, actor, targetID, false)
}

func (s *AdminService) setActive(ctx context.Context, actor *models.User, targetID uint, active bool) (*models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageUsers); err != nil {
		return nil, err
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	changed, err := s.userRepo.SetActive(ctx, targetID, active)
	if err != nil {
		return nil, err
	}
	if !changed {
		state := "deactivated"
		if active {
			state = "active"
		}
		return target, models.NewNoOpError("user is already " + state)
	}

	action := models.AuditActionUserDeactivated
	kind := events.KindUserDeactivated
	prev, next := "active", "inactive"
	if active {
		action = models.AuditActionUserActivated
		kind = events.KindUserActivated
		prev, next = "inactive", "active"
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.Record(ctx, &models.AuditLog{
			Action:     action,
			ActorID:    actor.ID,
			TargetType: "user",
			TargetID:   targetID,
			PrevState:  prev,
			NewState:   next,
		}); err != nil {
			middleware.Logger.ErrorContext(ctx, "audit record failed",
				"action", action, "target_id", targetID, "error", err)
		}
	}

	updated, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(kind, nil, updated)
	}
	return updated, nil
}

// ListUsers pages through all accounts.
func (s *AdminService) ListUsers(ctx context.Context, actor *models.User, limit, offset int) ([]models.User, error) {
	if err := policy.Authorize(actor, policy.ActionManageUsers); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.userRepo.List(ctx, limit, offset)
}

// AuditTrail returns recent audit entries, newest first.
func (s *AdminService) AuditTrail(ctx context.Context, actor *models.User, limit, offset int) ([]models.AuditLog, error) {
	if err := policy.Authorize(actor, policy.ActionViewAuditLog); err != nil {
		return nil, err
	}
	return s.auditRepo.List(ctx, limit, offset)
}
