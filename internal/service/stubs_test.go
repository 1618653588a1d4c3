package service

import (
	"context"

	"girder/internal/models"
)

type accessRequestRepoStub struct {
	createFn               func(context.Context, *models.AccessRequest) error
	getByIDFn              func(context.Context, uint) (*models.AccessRequest, error)
	getByReferenceIDFn     func(context.Context, string) (*models.AccessRequest, error)
	findOpenByPairFn       func(context.Context, uint, uint) (*models.AccessRequest, error)
	updateTransitionFn     func(context.Context, uint, models.AccessRequestStatus, models.AccessRequestStatus, map[string]interface{}) error
	listByProjectFn        func(context.Context, uint) ([]models.AccessRequest, error)
	listByContactFn        func(context.Context, uint) ([]models.AccessRequest, error)
	listPendingFn          func(context.Context) ([]models.AccessRequest, error)
	hasApprovedForClientFn func(context.Context, uint, string, string, uint) (bool, error)
}

func (s *accessRequestRepoStub) Create(ctx context.Context, r *models.AccessRequest) error {
	return s.createFn(ctx, r)
}
func (s *accessRequestRepoStub) GetByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *accessRequestRepoStub) GetByReferenceID(ctx context.Context, ref string) (*models.AccessRequest, error) {
	return s.getByReferenceIDFn(ctx, ref)
}
func (s *accessRequestRepoStub) FindOpenByPair(ctx context.Context, contactID, projectID uint) (*models.AccessRequest, error) {
	return s.findOpenByPairFn(ctx, contactID, projectID)
}
func (s *accessRequestRepoStub) UpdateTransition(ctx context.Context, id uint, from, to models.AccessRequestStatus, fields map[string]interface{}) error {
	return s.updateTransitionFn(ctx, id, from, to, fields)
}
func (s *accessRequestRepoStub) ListByProject(ctx context.Context, projectID uint) ([]models.AccessRequest, error) {
	return s.listByProjectFn(ctx, projectID)
}
func (s *accessRequestRepoStub) ListByContact(ctx context.Context, contactID uint) ([]models.AccessRequest, error) {
	return s.listByContactFn(ctx, contactID)
}
func (s *accessRequestRepoStub) ListPending(ctx context.Context) ([]models.AccessRequest, error) {
	return s.listPendingFn(ctx)
}
func (s *accessRequestRepoStub) HasApprovedForClient(ctx context.Context, contactID uint, clientRef, minRole string, excludeProjectID uint) (bool, error) {
	return s.hasApprovedForClientFn(ctx, contactID, clientRef, minRole, excludeProjectID)
}

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	setActiveFn     func(context.Context, uint, bool) (bool, error)
	listFn          func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) SetActive(ctx context.Context, id uint, active bool) (bool, error) {
	return s.setActiveFn(ctx, id, active)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

type projectRepoStub struct {
	createFn      func(context.Context, *models.Project) error
	getByIDFn     func(context.Context, uint) (*models.Project, error)
	getByNumberFn func(context.Context, string) (*models.Project, error)
	listFn        func(context.Context, bool) ([]models.Project, error)
	setArchivedFn func(context.Context, uint, bool) (bool, error)
}

func (s *projectRepoStub) Create(ctx context.Context, p *models.Project) error {
	return s.createFn(ctx, p)
}
func (s *projectRepoStub) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	return s.getByIDFn(ctx, id)
}
func (s *projectRepoStub) GetByNumber(ctx context.Context, number string) (*models.Project, error) {
	return s.getByNumberFn(ctx, number)
}
func (s *projectRepoStub) List(ctx context.Context, includeArchived bool) ([]models.Project, error) {
	return s.listFn(ctx, includeArchived)
}
func (s *projectRepoStub) SetArchived(ctx context.Context, id uint, archived bool) (bool, error) {
	return s.setArchivedFn(ctx, id, archived)
}

type auditRepoStub struct {
	recordFn       func(context.Context, *models.AuditLog) error
	listFn         func(context.Context, int, int) ([]models.AuditLog, error)
	listByTargetFn func(context.Context, string, uint) ([]models.AuditLog, error)
}

func (s *auditRepoStub) Record(ctx context.Context, entry *models.AuditLog) error {
	if s.recordFn == nil {
		return nil
	}
	return s.recordFn(ctx, entry)
}
func (s *auditRepoStub) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *auditRepoStub) ListByTarget(ctx context.Context, targetType string, targetID uint) ([]models.AuditLog, error) {
	return s.listByTargetFn(ctx, targetType, targetID)
}
