// Package deadletters lets super admins inspect outbox events the publisher
// gave up on and push them back into the queue once the cause is fixed.
package deadletters

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type Service interface {
	List(ctx context.Context, params ListParams) (*pagination.Page[DeadLetterDTO], error)
	Requeue(ctx context.Context, eventID, adminID uuid.UUID) (*DeadLetterDTO, error)
}

type repository interface {
	List(ctx context.Context, filter outbox.DeadLetterFilter) ([]models.OutboxDLQ, error)
	Requeue(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
}

type ListParams struct {
	EventType string
	Reason    string
	Limit     int
	Cursor    string
}

type DeadLetterDTO struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   uuid.UUID                  `json:"aggregate_id"`
	Reason        enums.OutboxDLQErrorReason `json:"reason"`
	ErrorMessage  *string                    `json:"error_message,omitempty"`
	AttemptCount  int                        `json:"attempt_count"`
	FailedAt      time.Time                  `json:"failed_at"`
	Payload       json.RawMessage            `json:"payload"`
}

func fromModel(m models.OutboxDLQ) DeadLetterDTO {
	return DeadLetterDTO{
		ID:            m.ID,
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		Reason:        m.ErrorReason,
		ErrorMessage:  m.ErrorMessage,
		AttemptCount:  m.AttemptCount,
		FailedAt:      m.FailedAt,
		Payload:       m.Payload,
	}
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dead letter repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[DeadLetterDTO], error) {
	var filter outbox.DeadLetterFilter
	if raw := strings.TrimSpace(params.EventType); raw != "" {
		eventType, err := enums.ParseOutboxEventType(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type").
				WithDetails(map[string]string{"event_type": "unknown event type"})
		}
		filter.EventType = eventType
	}
	if raw := strings.TrimSpace(params.Reason); raw != "" {
		reason, err := enums.ParseOutboxDLQErrorReason(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reason").
				WithDetails(map[string]string{"reason": "must be max_attempts or non_retryable"})
		}
		filter.Reason = reason
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filter.Cursor = cursor
	filter.Limit = pagination.LimitWithBuffer(params.Limit)

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters")
	}
	items := make([]DeadLetterDTO, len(rows))
	for i, row := range rows {
		items[i] = fromModel(row)
	}
	page := pagination.BuildPage(items, params.Limit, func(d DeadLetterDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.FailedAt, ID: d.ID}
	})
	return &page, nil
}

func (s *service) Requeue(ctx context.Context, eventID, adminID uuid.UUID) (*DeadLetterDTO, error) {
	parked, err := s.repo.Requeue(ctx, eventID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requeue dead letter")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"event_id":   eventID.String(),
			"event_type": parked.EventType,
			"admin_id":   adminID.String(),
		}), "outbox.dead_letter_requeued")
	}
	dto := fromModel(*parked)
	return &dto, nil
}
