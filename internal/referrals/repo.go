package referrals

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

// Repository exposes persistence helpers for referrals and the earnings rollup.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, referral *models.Referral) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Referral, error)
	FindByReferredMember(ctx context.Context, memberID uuid.UUID) (*models.Referral, error)
	List(ctx context.Context, params listReferralsParams) ([]models.Referral, error)
	UpdateCommission(ctx context.Context, id uuid.UUID, from enums.CommissionStatus, change commissionUpdate) (bool, error)
	FindApprovedAmbassadorByCode(ctx context.Context, code string) (*models.Ambassador, error)
	FindAmbassador(ctx context.Context, id uuid.UUID) (*models.Ambassador, error)
	SetMemberReferrer(ctx context.Context, memberID, ambassadorID uuid.UUID) error
	CommissionTotals(ctx context.Context, ambassadorID uuid.UUID) ([]statusTotal, error)
	PayoutTotals(ctx context.Context, ambassadorID uuid.UUID) ([]statusTotal, error)
	SettledTotal(ctx context.Context, ambassadorID uuid.UUID) (decimal.Decimal, error)
	ApprovedForSettlement(ctx context.Context, ambassadorID uuid.UUID) ([]models.Referral, error)
	SettleCommission(ctx context.Context, id, payoutID uuid.UUID, at time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listReferralsParams struct {
	AmbassadorID uuid.UUID
	Status       enums.CommissionStatus
	Limit        int
	Cursor       *pagination.Cursor
}

type commissionUpdate struct {
	Status           enums.CommissionStatus
	MembershipAmount *decimal.Decimal
	CommissionAmount *decimal.Decimal
	ActorID          uuid.UUID
	At               time.Time
}

type statusTotal struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *repositoryImpl) FindByReferredMember(ctx context.Context, memberID uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	if err := r.db.WithContext(ctx).Where("referred_member_id = ?", memberID).First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listReferralsParams) ([]models.Referral, error) {
	query := r.db.WithContext(ctx).Model(&models.Referral{})
	if params.AmbassadorID != uuid.Nil {
		query = query.Where("ambassador_id = ?", params.AmbassadorID)
	}
	if params.Status != "" {
		query = query.Where("commission_status = ?", params.Status)
	}
	query = pagination.ApplyCursor(query, params.Cursor, "created_at", "id")

	var rows []models.Referral
	if err := query.Limit(params.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCommission moves a referral out of from; it reports false when the
// referral is no longer in that status.
func (r *repositoryImpl) UpdateCommission(ctx context.Context, id uuid.UUID, from enums.CommissionStatus, change commissionUpdate) (bool, error) {
	updates := map[string]any{
		"commission_status": change.Status,
		"updated_at":        change.At,
	}
	if change.MembershipAmount != nil {
		updates["membership_amount"] = *change.MembershipAmount
	}
	if change.CommissionAmount != nil {
		updates["commission_amount"] = *change.CommissionAmount
	}
	switch change.Status {
	case enums.CommissionStatusApproved:
		updates["approved_at"] = change.At
		updates["approved_by"] = change.ActorID
	case enums.CommissionStatusPaid:
		updates["paid_at"] = change.At
	case enums.CommissionStatusCancelled:
		updates["cancelled_at"] = change.At
	}
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ? AND commission_status = ?", id, from).
		UpdateColumns(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) FindApprovedAmbassadorByCode(ctx context.Context, code string) (*models.Ambassador, error) {
	var ambassador models.Ambassador
	err := r.db.WithContext(ctx).
		Where("UPPER(referral_code) = ? AND status = ?", strings.ToUpper(code), enums.AmbassadorStatusApproved).
		First(&ambassador).Error
	if err != nil {
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

func (r *repositoryImpl) SetMemberReferrer(ctx context.Context, memberID, ambassadorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", memberID).
		UpdateColumn("referred_by_ambassador_id", ambassadorID).Error
}

func (r *repositoryImpl) CommissionTotals(ctx context.Context, ambassadorID uuid.UUID) ([]statusTotal, error) {
	var rows []statusTotal
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select("commission_status AS status, COUNT(*) AS count, COALESCE(SUM(commission_amount), 0) AS total").
		Where("ambassador_id = ?", ambassadorID).
		Group("commission_status").
		Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) PayoutTotals(ctx context.Context, ambassadorID uuid.UUID) ([]statusTotal, error) {
	var rows []statusTotal
	err := r.db.WithContext(ctx).
		Model(&models.AmbassadorPayout{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("ambassador_id = ?", ambassadorID).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// SettledTotal sums the commissions that completed payouts already covered.
func (r *repositoryImpl) SettledTotal(ctx context.Context, ambassadorID uuid.UUID) (decimal.Decimal, error) {
	var row statusTotal
	err := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select("COUNT(*) AS count, COALESCE(SUM(commission_amount), 0) AS total").
		Where("ambassador_id = ? AND commission_status = ? AND payout_id IS NOT NULL", ambassadorID, enums.CommissionStatusPaid).
		Scan(&row).Error
	return row.Total, err
}

func (r *repositoryImpl) ApprovedForSettlement(ctx context.Context, ambassadorID uuid.UUID) ([]models.Referral, error) {
	var rows []models.Referral
	err := r.db.WithContext(ctx).
		Where("ambassador_id = ? AND commission_status = ?", ambassadorID, enums.CommissionStatusApproved).
		Order("approved_at ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// SettleCommission marks an approved commission paid by payoutID; it reports
// false when the commission left approved in the meantime.
func (r *repositoryImpl) SettleCommission(ctx context.Context, id, payoutID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("id = ? AND commission_status = ?", id, enums.CommissionStatusApproved).
		UpdateColumns(map[string]any{
			"commission_status": enums.CommissionStatusPaid,
			"paid_at":           at,
			"payout_id":         payoutID,
			"updated_at":        at,
		})
	return result.RowsAffected > 0, result.Error
}
