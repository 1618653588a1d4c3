package repository

import (
	"context"
	"errors"

	"girder/internal/cache"
	"girder/internal/models"

	"gorm.io/gorm"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (*models.Project, error)
	GetByNumber(ctx context.Context, number string) (*models.Project, error)
	List(ctx context.Context, includeArchived bool) ([]models.Project, error)
	SetArchived(ctx context.Context, id uint, archived bool) (bool, error)
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository returns a new ProjectRepository implementation.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.NewConflictError("Project number already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	key := cache.ProjectKey(id)

	err := cache.Aside(ctx, key, &project, cache.ProjectTTL, func() error {
		if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Project", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) GetByNumber(ctx context.Context, number string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, includeArchived bool) ([]models.Project, error) {
	var projects []models.Project
	query := r.db.WithContext(ctx).Order("number ASC")
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	if err := query.Find(&projects).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return projects, nil
}

func (r *projectRepository) SetArchived(ctx context.Context, id uint, archived bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND archived = ?", id, !archived).
		Update("archived", archived)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	if result.RowsAffected > 0 {
		cache.InvalidateProject(ctx, id)
		return true, nil
	}
	return false, nil
}
