package ambassadors

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

// Repository exposes persistence helpers for ambassadors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ambassador *models.Ambassador) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ambassador, error)
	FindByMember(ctx context.Context, memberID uuid.UUID) (*models.Ambassador, error)
	FindApprovedByCode(ctx context.Context, code string) (*models.Ambassador, error)
	ExistsBy(ctx context.Context, field enums.AvailabilityField, value string) (bool, error)
	ReferralCodeTaken(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, params listAmbassadorsParams) ([]models.Ambassador, error)
	ApplyReview(ctx context.Context, id uuid.UUID, from enums.AmbassadorStatus, change reviewUpdate) (bool, error)
	UpdateCommission(ctx context.Context, id uuid.UUID, pct decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearMemberReferrer(ctx context.Context, ambassadorID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an ambassadors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listAmbassadorsParams struct {
	Status enums.AmbassadorStatus
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

type reviewUpdate struct {
	Status          enums.AmbassadorStatus
	RejectionReason *string
	ReferralCode    *string
	ReviewerID      uuid.UUID
	At              time.Time
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, ambassador *models.Ambassador) error {
	return r.db.WithContext(ctx).Create(ambassador).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ambassador).Error; err != nil {
		return nil, err
	}
	return &ambassador, nil
}

func (r *repositoryImpl) FindByMember(ctx context.Context, memberID uuid.UUID) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		First(&ambassador).Error
	if err != nil {
		return nil, err
	}
	return &ambassador, nil
}

func (r *repositoryImpl) FindApprovedByCode(ctx context.Context, code string) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).
		Where("UPPER(referral_code) = ? AND status = ?", strings.ToUpper(code), enums.AmbassadorStatusApproved).
		First(&ambassador).Error
	if err != nil {
		return nil, err
	}
	return &ambassador, nil
}

// ExistsBy compares emails case-insensitively; CURP and RFC are stored
// upper-cased already.
func (r *repositoryImpl) ExistsBy(ctx context.Context, field enums.AvailabilityField, value string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Ambassador{})
	switch field {
	case enums.AvailabilityFieldEmail:
		query = query.Where("LOWER(email) = ?", strings.ToLower(value))
	case enums.AvailabilityFieldCURP:
		query = query.Where("curp = ?", value)
	case enums.AvailabilityFieldRFC:
		query = query.Where("rfc = ?", value)
	default:
		return false, nil
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) ReferralCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Ambassador{}).
		Where("UPPER(referral_code) = ?", strings.ToUpper(code)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listAmbassadorsParams) ([]models.Ambassador, error) {
	query := r.db.WithContext(ctx).Model(&models.Ambassador{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"(LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(paternal_surname) LIKE ? OR LOWER(curp) LIKE ? OR LOWER(referral_code) LIKE ?)",
			like, like, like, like, like,
		)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.Ambassador
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyReview writes an admin decision only while the row is still in from.
func (r *repositoryImpl) ApplyReview(ctx context.Context, id uuid.UUID, from enums.AmbassadorStatus, change reviewUpdate) (bool, error) {
	updates := map[string]any{
		"status":           change.Status,
		"rejection_reason": change.RejectionReason,
		"reviewed_by":      change.ReviewerID,
		"reviewed_at":      change.At,
		"updated_at":       change.At,
	}
	if change.Status == enums.AmbassadorStatusApproved {
		updates["approved_at"] = change.At
	}
	if change.ReferralCode != nil {
		updates["referral_code"] = *change.ReferralCode
	}
	res := r.db.WithContext(ctx).
		Model(&models.Ambassador{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repositoryImpl) UpdateCommission(ctx context.Context, id uuid.UUID, pct decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Ambassador{}).
		Where("id = ?", id).
		Updates(map[string]any{"commission_percentage": pct, "updated_at": time.Now().UTC()}).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Ambassador{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearMemberReferrer drops the weak members.referred_by_ambassador_id link.
func (r *repositoryImpl) ClearMemberReferrer(ctx context.Context, ambassadorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("referred_by_ambassador_id = ?", ambassadorID).
		Update("referred_by_ambassador_id", nil).Error
}
