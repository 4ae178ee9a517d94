package members

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the member mirror.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, member *models.Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindByMemberstackID(ctx context.Context, memberstackID string) (*models.Member, error)
	List(ctx context.Context, params listMembersParams) ([]models.Member, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a members repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listMembersParams struct {
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repositoryImpl) FindByMemberstackID(ctx context.Context, memberstackID string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("memberstack_id = ?", memberstackID).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listMembersParams) ([]models.Member, error) {
	query := r.db.WithContext(ctx).Model(&models.Member{})
	if search := strings.ToLower(strings.TrimSpace(params.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR memberstack_id = ?)",
			like, like, like, params.Search,
		)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.Member
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
