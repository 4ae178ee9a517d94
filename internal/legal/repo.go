package legal

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// Repository exposes persistence helpers for legal documents.
type Repository interface {
	Create(ctx context.Context, doc *models.LegalDocument) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LegalDocument, error)
	List(ctx context.Context, params listDocumentsParams) ([]models.LegalDocument, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a legal documents repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listDocumentsParams struct {
	// Audiences matches any of the listed audiences when non-empty.
	Audiences  []enums.LegalAudience
	ActiveOnly bool
}

func (r *repositoryImpl) Create(ctx context.Context, doc *models.LegalDocument) error {
	return r.db.WithContext(ctx).Select("*").Create(doc).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.LegalDocument, error) {
	var doc models.LegalDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listDocumentsParams) ([]models.LegalDocument, error) {
	query := r.db.WithContext(ctx).Model(&models.LegalDocument{})
	if len(params.Audiences) > 0 {
		query = query.Where("target_audience IN ?", params.Audiences)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.LegalDocument
	if err := query.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.LegalDocument{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.LegalDocument{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
