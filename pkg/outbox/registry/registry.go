// Package registry knows, for every outbox event type, which aggregate it
// belongs to, which topic carries it and which payload struct it decodes to.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that can never be published as they are.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

func catalog() []EventDescriptor {
	return []EventDescriptor{
		describe[payloads.PetRegisteredEvent](enums.EventPetRegistered, enums.AggregatePet),
		describe[payloads.PetStatusChangedEvent](enums.EventPetStatusChanged, enums.AggregatePet),
		describe[payloads.PetAppealSubmittedEvent](enums.EventPetAppealSubmitted, enums.AggregatePet),
		describe[payloads.PetAdminMessageEvent](enums.EventPetAdminMessage, enums.AggregatePet),
		describe[payloads.PetUpdateSubmittedEvent](enums.EventPetUpdateSubmitted, enums.AggregatePet),
		describe[payloads.PetWaitingPeriodCompletedEvent](enums.EventPetWaitingPeriodCompleted, enums.AggregatePet),
		describe[payloads.AmbassadorAppliedEvent](enums.EventAmbassadorApplied, enums.AggregateAmbassador),
		describe[payloads.AmbassadorStatusChangedEvent](enums.EventAmbassadorStatusChanged, enums.AggregateAmbassador),
		describe[payloads.ReferralCreatedEvent](enums.EventReferralCreated, enums.AggregateReferral),
		describe[payloads.ReferralCommissionChangedEvent](enums.EventReferralCommissionChanged, enums.AggregateReferral),
		describe[payloads.PayoutRequestedEvent](enums.EventPayoutRequested, enums.AggregatePayout),
		describe[payloads.PayoutStatusChangedEvent](enums.EventPayoutStatusChanged, enums.AggregatePayout),
	}
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every event to the domain topic; the identity and
// notification subscriptions filter on the event_type attribute. It fails
// when an event type has no descriptor.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("registry: domain topic is required")
	}
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, desc := range catalog() {
		desc.Topic = cfg.DomainTopic
		reg.entries[desc.EventType] = desc
	}
	for _, eventType := range enums.OutboxEventTypes() {
		if _, ok := reg.entries[eventType]; !ok {
			return nil, fmt.Errorf("registry: no descriptor for %s", eventType)
		}
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable: the row will not change by waiting.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s aggregates, row has %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s row has no aggregate id", event.EventType)
	}

	env, _, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
