package ambassadors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// AmbassadorDTO is the admin view of an ambassador profile.
type AmbassadorDTO struct {
	ID                   uuid.UUID              `json:"id"`
	MemberID             *uuid.UUID             `json:"member_id,omitempty"`
	FirstName            string                 `json:"first_name"`
	PaternalSurname      string                 `json:"paternal_surname"`
	MaternalSurname      *string                `json:"maternal_surname,omitempty"`
	Email                string                 `json:"email"`
	Phone                string                 `json:"phone"`
	BirthDate            *time.Time             `json:"birth_date,omitempty"`
	CURP                 string                 `json:"curp"`
	RFC                  *string                `json:"rfc,omitempty"`
	Street               *string                `json:"street,omitempty"`
	City                 *string                `json:"city,omitempty"`
	State                *string                `json:"state,omitempty"`
	PostalCode           *string                `json:"postal_code,omitempty"`
	INEFrontURL          *string                `json:"ine_front_url,omitempty"`
	INEBackURL           *string                `json:"ine_back_url,omitempty"`
	BankName             *string                `json:"bank_name,omitempty"`
	CLABE                *string                `json:"clabe,omitempty"`
	SocialMedia          *string                `json:"social_media,omitempty"`
	Motivation           *string                `json:"motivation,omitempty"`
	Status               enums.AmbassadorStatus `json:"status"`
	RejectionReason      *string                `json:"rejection_reason,omitempty"`
	ReferralCode         *string                `json:"referral_code,omitempty"`
	CommissionPercentage decimal.Decimal        `json:"commission_percentage"`
	ReviewedAt           *time.Time             `json:"reviewed_at,omitempty"`
	ApprovedAt           *time.Time             `json:"approved_at,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// Dashboard is what an ambassador sees on their own panel.
type Dashboard struct {
	Ambassador AmbassadorDTO      `json:"ambassador"`
	Summary    *referrals.Summary `json:"summary,omitempty"`
}

// Availability answers the pre-submission duplicate check.
type Availability struct {
	Field     enums.AvailabilityField `json:"field"`
	Value     string                  `json:"value"`
	Available bool                    `json:"available"`
}

// CodeLookup answers the public referral-code check.
type CodeLookup struct {
	Code           string `json:"code"`
	Valid          bool   `json:"valid"`
	AmbassadorName string `json:"ambassador_name,omitempty"`
}

// ApplyInput is the ambassador application form.
type ApplyInput struct {
	FirstName       string
	PaternalSurname string
	MaternalSurname string
	Email           string
	Phone           string
	BirthDate       *time.Time
	CURP            string
	RFC             string
	Street          string
	City            string
	State           string
	PostalCode      string
	BankName        string
	CLABE           string
	SocialMedia     string
	Motivation      string
	INEFront        *uploads.File
	INEBack         *uploads.File
}

// Applicant identifies the member submitting an application.
type Applicant struct {
	MemberID      uuid.UUID
	MemberstackID string
}

// ReviewInput is an admin PATCH. Nil fields are left untouched.
type ReviewInput struct {
	AmbassadorID         uuid.UUID
	AdminID              uuid.UUID
	Status               *enums.AmbassadorStatus
	RejectionReason      string
	CommissionPercentage *decimal.Decimal
}

// AdminListParams configures the admin ambassador listing.
type AdminListParams struct {
	Status enums.AmbassadorStatus
	Search string
	Limit  int
	Cursor string
}

// FromModel maps a persisted ambassador into a DTO.
func FromModel(m *models.Ambassador) *AmbassadorDTO {
	if m == nil {
		return nil
	}
	return &AmbassadorDTO{
		ID:                   m.ID,
		MemberID:             m.MemberID,
		FirstName:            m.FirstName,
		PaternalSurname:      m.PaternalSurname,
		MaternalSurname:      m.MaternalSurname,
		Email:                m.Email,
		Phone:                m.Phone,
		BirthDate:            m.BirthDate,
		CURP:                 m.CURP,
		RFC:                  m.RFC,
		Street:               m.Street,
		City:                 m.City,
		State:                m.State,
		PostalCode:           m.PostalCode,
		INEFrontURL:          m.INEFrontURL,
		INEBackURL:           m.INEBackURL,
		BankName:             m.BankName,
		CLABE:                m.CLABE,
		SocialMedia:          m.SocialMedia,
		Motivation:           m.Motivation,
		Status:               m.Status,
		RejectionReason:      m.RejectionReason,
		ReferralCode:         m.ReferralCode,
		CommissionPercentage: m.CommissionPercentage,
		ReviewedAt:           m.ReviewedAt,
		ApprovedAt:           m.ApprovedAt,
		CreatedAt:            m.CreatedAt,
	}
}
