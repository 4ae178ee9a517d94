package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregatePet        OutboxAggregateType = "pet"
	AggregateAmbassador OutboxAggregateType = "ambassador"
	AggregateReferral   OutboxAggregateType = "referral"
	AggregatePayout     OutboxAggregateType = "ambassador_payout"
	AggregateMember     OutboxAggregateType = "member"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregatePet,
	AggregateAmbassador,
	AggregateReferral,
	AggregatePayout,
	AggregateMember,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validOutboxAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventPetRegistered             OutboxEventType = "pet_registered"
	EventPetStatusChanged          OutboxEventType = "pet_status_changed"
	EventPetAppealSubmitted        OutboxEventType = "pet_appeal_submitted"
	EventPetAdminMessage           OutboxEventType = "pet_admin_message"
	EventPetUpdateSubmitted        OutboxEventType = "pet_update_submitted"
	EventPetWaitingPeriodCompleted OutboxEventType = "pet_waiting_period_completed"
	EventAmbassadorApplied         OutboxEventType = "ambassador_applied"
	EventAmbassadorStatusChanged   OutboxEventType = "ambassador_status_changed"
	EventReferralCreated           OutboxEventType = "referral_created"
	EventReferralCommissionChanged OutboxEventType = "referral_commission_changed"
	EventPayoutRequested           OutboxEventType = "payout_requested"
	EventPayoutStatusChanged       OutboxEventType = "payout_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPetRegistered,
	EventPetStatusChanged,
	EventPetAppealSubmitted,
	EventPetAdminMessage,
	EventPetUpdateSubmitted,
	EventPetWaitingPeriodCompleted,
	EventAmbassadorApplied,
	EventAmbassadorStatusChanged,
	EventReferralCreated,
	EventReferralCommissionChanged,
	EventPayoutRequested,
	EventPayoutStatusChanged,
}

// OutboxEventTypes lists every event type the publisher must know how to route.
func OutboxEventTypes() []OutboxEventType {
	return append([]OutboxEventType(nil), validOutboxEventTypes...)
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason records why the publisher parked an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: retryable failures exhausted the attempt budget.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the payload or topic can never be published.
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

func ParseOutboxDLQErrorReason(value string) (OutboxDLQErrorReason, error) {
	if r := OutboxDLQErrorReason(value); r.IsValid() {
		return r, nil
	}
	return "", fmt.Errorf("invalid dead letter reason %q", value)
}
