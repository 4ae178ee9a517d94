package communications

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

// Repository exposes persistence helpers for templates and send logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTemplate(ctx context.Context, template *models.CommTemplate) error
	FindTemplate(ctx context.Context, id uuid.UUID) (*models.CommTemplate, error)
	ListTemplates(ctx context.Context, params listTemplatesParams) ([]models.CommTemplate, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ActiveByTrigger(ctx context.Context, trigger enums.CommTrigger) ([]models.CommTemplate, error)
	AppendLog(ctx context.Context, entry *models.CommLog) error
	ListLogs(ctx context.Context, params listLogsParams) ([]models.CommLog, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a communications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listTemplatesParams struct {
	Channel    enums.CommChannel
	Trigger    enums.CommTrigger
	ActiveOnly bool
}

type listLogsParams struct {
	MemberID uuid.UUID
	Channel  enums.CommChannel
	Status   enums.CommLogStatus
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// CreateTemplate selects every column so an explicit is_active=false is not
// replaced by the column default.
func (r *repositoryImpl) CreateTemplate(ctx context.Context, template *models.CommTemplate) error {
	return r.db.WithContext(ctx).Select("*").Create(template).Error
}

func (r *repositoryImpl) FindTemplate(ctx context.Context, id uuid.UUID) (*models.CommTemplate, error) {
	var template models.CommTemplate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&template).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *repositoryImpl) ListTemplates(ctx context.Context, params listTemplatesParams) ([]models.CommTemplate, error) {
	query := r.db.WithContext(ctx).Model(&models.CommTemplate{})
	if params.Channel != "" {
		query = query.Where("channel = ?", params.Channel)
	}
	if params.Trigger != "" {
		query = query.Where(`"trigger" = ?`, params.Trigger)
	}
	if params.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.CommTemplate
	if err := query.Order("name ASC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) UpdateTemplate(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.CommTemplate{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repositoryImpl) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CommTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ActiveByTrigger returns the newest active template per channel.
func (r *repositoryImpl) ActiveByTrigger(ctx context.Context, trigger enums.CommTrigger) ([]models.CommTemplate, error) {
	var rows []models.CommTemplate
	err := r.db.WithContext(ctx).
		Where(`"trigger" = ? AND is_active = ?`, trigger, true).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	seen := map[enums.CommChannel]bool{}
	out := rows[:0]
	for _, row := range rows {
		if seen[row.Channel] {
			continue
		}
		seen[row.Channel] = true
		out = append(out, row)
	}
	return out, nil
}

// AppendLog only ever inserts; comm_logs rows are immutable.
func (r *repositoryImpl) AppendLog(ctx context.Context, entry *models.CommLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) ListLogs(ctx context.Context, params listLogsParams) ([]models.CommLog, error) {
	query := r.db.WithContext(ctx).Model(&models.CommLog{})
	if params.MemberID != uuid.Nil {
		query = query.Where("member_id = ?", params.MemberID)
	}
	if params.Channel != "" {
		query = query.Where("channel = ?", params.Channel)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.CommLog
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
