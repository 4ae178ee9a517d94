package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
)

// PetRegisteredEvent is emitted when a member submits a new pet.
type PetRegisteredEvent struct {
	PetID    uuid.UUID `json:"petId"`
	MemberID uuid.UUID `json:"memberId"`
	PetName  string    `json:"petName"`
}

// PetStatusChangedEvent carries an admin review decision.
type PetStatusChangedEvent struct {
	PetID          uuid.UUID       `json:"petId"`
	MemberID       uuid.UUID       `json:"memberId"`
	PetName        string          `json:"petName"`
	PreviousStatus enums.PetStatus `json:"previousStatus"`
	Status         enums.PetStatus `json:"status"`
	Note           string          `json:"note,omitempty"`
	AdminID        uuid.UUID       `json:"adminId"`
}

// PetAppealSubmittedEvent is emitted when an owner appeals a rejection.
type PetAppealSubmittedEvent struct {
	PetID       uuid.UUID `json:"petId"`
	MemberID    uuid.UUID `json:"memberId"`
	PetName     string    `json:"petName"`
	AppealCount int       `json:"appealCount"`
}

// PetAdminMessageEvent is emitted when an admin writes on a pet's thread.
type PetAdminMessageEvent struct {
	PetID    uuid.UUID `json:"petId"`
	MemberID uuid.UUID `json:"memberId"`
	PetName  string    `json:"petName"`
	Message  string    `json:"message"`
	AdminID  uuid.UUID `json:"adminId"`
}

// PetUpdateSubmittedEvent is emitted when an owner answers an action request.
type PetUpdateSubmittedEvent struct {
	PetID    uuid.UUID `json:"petId"`
	MemberID uuid.UUID `json:"memberId"`
	PetName  string    `json:"petName"`
}

// PetWaitingPeriodCompletedEvent is emitted once per pet when coverage starts.
type PetWaitingPeriodCompletedEvent struct {
	PetID       uuid.UUID `json:"petId"`
	MemberID    uuid.UUID `json:"memberId"`
	PetName     string    `json:"petName"`
	CompletedAt time.Time `json:"completedAt"`
}

// AmbassadorAppliedEvent is emitted when an application is received.
type AmbassadorAppliedEvent struct {
	AmbassadorID uuid.UUID  `json:"ambassadorId"`
	MemberID     *uuid.UUID `json:"memberId,omitempty"`
	Email        string     `json:"email"`
}

// AmbassadorStatusChangedEvent drives the identity sync and the ambassador's
// notification. MemberstackID is empty when no identity is linked.
type AmbassadorStatusChangedEvent struct {
	AmbassadorID   uuid.UUID              `json:"ambassadorId"`
	MemberID       *uuid.UUID             `json:"memberId,omitempty"`
	MemberstackID  string                 `json:"memberstackId,omitempty"`
	Name           string                 `json:"name"`
	Email          string                 `json:"email"`
	Phone          string                 `json:"phone,omitempty"`
	PreviousStatus enums.AmbassadorStatus `json:"previousStatus"`
	Status         enums.AmbassadorStatus `json:"status"`
	Reason         string                 `json:"reason,omitempty"`
	ReferralCode   string                 `json:"referralCode,omitempty"`
}

// ReferralCreatedEvent is emitted when a member records an ambassador code.
type ReferralCreatedEvent struct {
	ReferralID       uuid.UUID  `json:"referralId"`
	AmbassadorID     uuid.UUID  `json:"ambassadorId"`
	AmbassadorMember *uuid.UUID `json:"ambassadorMemberId,omitempty"`
	ReferredMemberID uuid.UUID  `json:"referredMemberId"`
}

// ReferralCommissionChangedEvent is emitted on approve, pay and cancel.
type ReferralCommissionChangedEvent struct {
	ReferralID       uuid.UUID              `json:"referralId"`
	AmbassadorID     uuid.UUID              `json:"ambassadorId"`
	AmbassadorMember *uuid.UUID             `json:"ambassadorMemberId,omitempty"`
	Status           enums.CommissionStatus `json:"status"`
	CommissionAmount decimal.Decimal        `json:"commissionAmount"`
}

// PayoutRequestedEvent is emitted when an ambassador asks for a withdrawal.
type PayoutRequestedEvent struct {
	PayoutID     uuid.UUID       `json:"payoutId"`
	AmbassadorID uuid.UUID       `json:"ambassadorId"`
	Amount       decimal.Decimal `json:"amount"`
}

// PayoutStatusChangedEvent is emitted on every admin payout transition.
type PayoutStatusChangedEvent struct {
	PayoutID         uuid.UUID          `json:"payoutId"`
	AmbassadorID     uuid.UUID          `json:"ambassadorId"`
	AmbassadorMember *uuid.UUID         `json:"ambassadorMemberId,omitempty"`
	Status           enums.PayoutStatus `json:"status"`
	Amount           decimal.Decimal    `json:"amount"`
	FailureReason    string             `json:"failureReason,omitempty"`
}
