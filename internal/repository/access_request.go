// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"girder/internal/cache"
	"girder/internal/models"

	"gorm.io/gorm"
)

// AccessRequestRepository defines the interface for access request ledger operations
type AccessRequestRepository interface {
	Create(ctx context.Context, request *models.AccessRequest) error
	GetByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*models.AccessRequest, error)
	FindOpenByPair(ctx context.Context, contactID, projectID uint) (*models.AccessRequest, error)
	UpdateTransition(ctx context.Context, id uint, from, to models.AccessRequestStatus, fields map[string]interface{}) error
	ListByProject(ctx context.Context, projectID uint) ([]models.AccessRequest, error)
	ListByContact(ctx context.Context, contactID uint) ([]models.AccessRequest, error)
	ListPending(ctx context.Context) ([]models.AccessRequest, error)
	HasApprovedForClient(ctx context.Context, contactID uint, clientRef, minRole string, excludeProjectID uint) (bool, error)
}

// accessRequestRepository implements AccessRequestRepository
type accessRequestRepository struct {
	db *gorm.DB
}

// NewAccessRequestRepository creates a new access request repository
func NewAccessRequestRepository(db *gorm.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db}
}

// Create inserts a new ledger record. The partial unique index on open
// (contact, project) pairs turns a duplicate submission into a Conflict.
func (r *accessRequestRepository) Create(ctx context.Context, request *models.AccessRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("an open access request already exists for this contact and project")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accessRequestRepository) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var request models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("Contact").
		Preload("Project").
		Preload("ProcessedBy").
		First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("AccessRequest", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

func (r *accessRequestRepository) GetByReferenceID(ctx context.Context, referenceID string) (*models.AccessRequest, error) {
	var request models.AccessRequest
	key := cache.AccessRequestKey(referenceID)

	err := cache.Aside(ctx, key, &request, cache.AccessRequestTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Contact").
			Preload("Project").
			Preload("ProcessedBy").
			Where("reference_id = ?", referenceID).
			First(&request).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("AccessRequest", referenceID)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// FindOpenByPair returns the open (pending or approved) record for the pair,
// or nil when none exists.
func (r *accessRequestRepository) FindOpenByPair(ctx context.Context, contactID, projectID uint) (*models.AccessRequest, error) {
	var request models.AccessRequest
	if err := r.db.WithContext(ctx).
		Where("contact_id = ? AND project_id = ? AND status IN ?",
			contactID, projectID,
			[]models.AccessRequestStatus{models.AccessRequestStatusPending, models.AccessRequestStatusApproved}).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// UpdateTransition applies a status transition as a compare-and-set. The WHERE
// clause pins the expected predecessor status so two racing transitions cannot
// both succeed; zero rows affected means the record moved under us (or never
// existed) and surfaces as InvalidTransition.
func (r *accessRequestRepository) UpdateTransition(ctx context.Context, id uint, from, to models.AccessRequestStatus, fields map[string]interface{}) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewInvalidTransitionError(from, to)
	}
	return nil
}

func (r *accessRequestRepository) ListByProject(ctx context.Context, projectID uint) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("Contact").
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *accessRequestRepository) ListByContact(ctx context.Context, contactID uint) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("Project").
		Where("contact_id = ?", contactID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

func (r *accessRequestRepository) ListPending(ctx context.Context) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	if err := r.db.WithContext(ctx).
		Preload("Contact").
		Preload("Project").
		Where("status = ?", models.AccessRequestStatusPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return requests, nil
}

// HasApprovedForClient reports whether the contact already holds an approved
// grant of minRole or stronger on some other project of the same client. The
// sibling project grant rule keys on this; a weaker existing grant must not
// approve a stronger request.
func (r *accessRequestRepository) HasApprovedForClient(ctx context.Context, contactID uint, clientRef, minRole string, excludeProjectID uint) (bool, error) {
	roles := models.AccessRolesAtOrAbove(minRole)
	if clientRef == "" || len(roles) == 0 {
		return false, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Joins("JOIN projects p ON p.id = access_requests.project_id").
		Where("access_requests.contact_id = ? AND access_requests.status = ? AND access_requests.requested_role IN ? AND p.client_ref = ? AND p.id != ?",
			contactID, models.AccessRequestStatusApproved, roles, clientRef, excludeProjectID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
