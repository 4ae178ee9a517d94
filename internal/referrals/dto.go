package referrals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// ReferralDTO exposes a referral to ambassadors and admins.
type ReferralDTO struct {
	ID               uuid.UUID              `json:"id"`
	AmbassadorID     uuid.UUID              `json:"ambassador_id"`
	ReferredMemberID uuid.UUID              `json:"referred_member_id"`
	ReferralCode     string                 `json:"referral_code"`
	MembershipPlan   *string                `json:"membership_plan,omitempty"`
	CommissionStatus enums.CommissionStatus `json:"commission_status"`
	MembershipAmount decimal.Decimal        `json:"membership_amount"`
	CommissionAmount decimal.Decimal        `json:"commission_amount"`
	ApprovedAt       *time.Time             `json:"approved_at,omitempty"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Summary is the ambassador earnings rollup shown on the dashboard.
type Summary struct {
	TotalReferrals    int64           `json:"total_referrals"`
	PendingReferrals  int64           `json:"pending_referrals"`
	ApprovedReferrals int64           `json:"approved_referrals"`
	PaidReferrals     int64           `json:"paid_referrals"`
	PendingAmount     decimal.Decimal `json:"pending_commission"`
	ApprovedAmount    decimal.Decimal `json:"approved_commission"`
	PaidAmount        decimal.Decimal `json:"paid_commission"`
	WithdrawnAmount   decimal.Decimal `json:"withdrawn_amount"`
	ReservedAmount    decimal.Decimal `json:"reserved_amount"`
	AvailableBalance  decimal.Decimal `json:"available_balance"`
}

// RecordInput is what a member submits after signing up with a code.
type RecordInput struct {
	Code             string
	MembershipPlan   string
	MembershipAmount *decimal.Decimal
}

// ListParams configures referral listings.
type ListParams struct {
	AmbassadorID uuid.UUID
	Status       enums.CommissionStatus
	Limit        int
	Cursor       string
}

// FromModel maps a persisted referral into a DTO.
func FromModel(m *models.Referral) *ReferralDTO {
	if m == nil {
		return nil
	}
	return &ReferralDTO{
		ID:               m.ID,
		AmbassadorID:     m.AmbassadorID,
		ReferredMemberID: m.ReferredMemberID,
		ReferralCode:     m.ReferralCode,
		MembershipPlan:   m.MembershipPlan,
		CommissionStatus: m.CommissionStatus,
		MembershipAmount: m.MembershipAmount,
		CommissionAmount: m.CommissionAmount,
		ApprovedAt:       m.ApprovedAt,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
		CreatedAt:        m.CreatedAt,
	}
}
