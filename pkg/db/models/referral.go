package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// Referral ties a referred member to the ambassador whose code they used.
type Referral struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AmbassadorID     uuid.UUID              `gorm:"column:ambassador_id;type:uuid;not null"`
	ReferredMemberID uuid.UUID              `gorm:"column:referred_member_id;type:uuid;not null;uniqueIndex"`
	ReferralCode     string                 `gorm:"column:referral_code;not null"`
	MembershipPlan   *string                `gorm:"column:membership_plan"`
	CommissionStatus enums.CommissionStatus `gorm:"column:commission_status;type:commission_status;not null;default:'pending'"`
	MembershipAmount decimal.Decimal        `gorm:"column:membership_amount;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	ApprovedBy       *uuid.UUID             `gorm:"column:approved_by;type:uuid"`
	ApprovedAt       *time.Time             `gorm:"column:approved_at"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	CancelledAt      *time.Time             `gorm:"column:cancelled_at"`
	// PayoutID is set when a completed payout settled this commission.
	PayoutID  *uuid.UUID `gorm:"column:payout_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// AmbassadorPayout is a withdrawal request against approved commissions.
type AmbassadorPayout struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AmbassadorID     uuid.UUID          `gorm:"column:ambassador_id;type:uuid;not null"`
	Amount           decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	PaymentReference *string            `gorm:"column:payment_reference"`
	FailureReason    *string            `gorm:"column:failure_reason"`
	ProcessedBy      *uuid.UUID         `gorm:"column:processed_by;type:uuid"`
	ProcessedAt      *time.Time         `gorm:"column:processed_at"`
	CompletedAt      *time.Time         `gorm:"column:completed_at"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
