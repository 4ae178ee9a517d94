package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// Ambassador is a referral program participant.
type Ambassador struct {
	ID                   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberID             *uuid.UUID             `gorm:"column:member_id;type:uuid"`
	FirstName            string                 `gorm:"column:first_name;not null"`
	PaternalSurname      string                 `gorm:"column:paternal_surname;not null"`
	MaternalSurname      *string                `gorm:"column:maternal_surname"`
	Email                string                 `gorm:"column:email;not null;uniqueIndex"`
	Phone                string                 `gorm:"column:phone;not null"`
	BirthDate            *time.Time             `gorm:"column:birth_date;type:date"`
	CURP                 string                 `gorm:"column:curp;not null;uniqueIndex"`
	RFC                  *string                `gorm:"column:rfc;uniqueIndex"`
	Street               *string                `gorm:"column:street"`
	City                 *string                `gorm:"column:city"`
	State                *string                `gorm:"column:state"`
	PostalCode           *string                `gorm:"column:postal_code"`
	INEFrontURL          *string                `gorm:"column:ine_front_url"`
	INEBackURL           *string                `gorm:"column:ine_back_url"`
	BankName             *string                `gorm:"column:bank_name"`
	CLABE                *string                `gorm:"column:clabe"`
	SocialMedia          *string                `gorm:"column:social_media"`
	Motivation           *string                `gorm:"column:motivation"`
	Status               enums.AmbassadorStatus `gorm:"column:status;type:ambassador_status;not null;default:'pending'"`
	RejectionReason      *string                `gorm:"column:rejection_reason"`
	ReferralCode         *string                `gorm:"column:referral_code;uniqueIndex"`
	CommissionPercentage decimal.Decimal        `gorm:"column:commission_percentage;type:numeric(5,2);not null"`
	LinkedMemberstackID  *string                `gorm:"column:linked_memberstack_id"`
	ReviewedBy           *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt           *time.Time             `gorm:"column:reviewed_at"`
	ApprovedAt           *time.Time             `gorm:"column:approved_at"`
	CreatedAt            time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// DisplayName is what referral-code lookups show to prospective members.
func (a Ambassador) DisplayName() string {
	return a.FirstName + " " + a.PaternalSurname
}
