package payouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

// Repository exposes persistence helpers for ambassador payouts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.AmbassadorPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.AmbassadorPayout, error)
	List(ctx context.Context, params listPayoutsParams) ([]models.AmbassadorPayout, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, change statusUpdate) (bool, error)
	LockAmbassador(ctx context.Context, id uuid.UUID) (*models.Ambassador, error)
	FindAmbassador(ctx context.Context, id uuid.UUID) (*models.Ambassador, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listPayoutsParams struct {
	AmbassadorID uuid.UUID
	Status       enums.PayoutStatus
	Limit        int
	Cursor       *pagination.Cursor
}

type statusUpdate struct {
	Status           enums.PayoutStatus
	ActorID          uuid.UUID
	PaymentReference *string
	FailureReason    *string
	At               time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, payout *models.AmbassadorPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.AmbassadorPayout, error) {
	var payout models.AmbassadorPayout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listPayoutsParams) ([]models.AmbassadorPayout, error) {
	query := r.db.WithContext(ctx).Model(&models.AmbassadorPayout{})
	if params.AmbassadorID != uuid.Nil {
		query = query.Where("ambassador_id = ?", params.AmbassadorID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.AmbassadorPayout
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from enums.PayoutStatus, change statusUpdate) (bool, error) {
	updates := map[string]any{
		"status":     change.Status,
		"updated_at": change.At,
	}
	switch change.Status {
	case enums.PayoutStatusProcessing:
		updates["processed_by"] = change.ActorID
		updates["processed_at"] = change.At
	case enums.PayoutStatusCompleted:
		updates["completed_at"] = change.At
		if from == enums.PayoutStatusPending {
			updates["processed_by"] = change.ActorID
			updates["processed_at"] = change.At
		}
	}
	if change.PaymentReference != nil {
		updates["payment_reference"] = *change.PaymentReference
	}
	if change.FailureReason != nil {
		updates["failure_reason"] = *change.FailureReason
	}
	result := r.db.WithContext(ctx).
		Model(&models.AmbassadorPayout{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected > 0, result.Error
}

// LockAmbassador loads the ambassador row for update so concurrent payout
// requests for the same ambassador serialize on the balance check.
func (r *repositoryImpl) LockAmbassador(ctx context.Context, id uuid.UUID) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&ambassador).Error; err != nil {
		return nil, err
	}
	return &ambassador, nil
}

func (r *repositoryImpl) FindAmbassador(ctx context.Context, id uuid.UUID) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ambassador).Error; err != nil {
		return nil, err
	}
	return &ambassador, nil
}
