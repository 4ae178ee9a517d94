package pets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

func (s *service) AdminList(ctx context.Context, params AdminListParams) (*pagination.Page[PetDTO], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listPetsParams{
		Status:   params.Status,
		MemberID: params.MemberID,
		Search:   params.Search,
		Limit:    pagination.LimitWithBuffer(params.Limit),
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pets")
	}

	page := pagination.BuildPage(rows, params.Limit, func(p models.Pet) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	items := make([]PetDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *s.toDTO(&page.Items[i]))
	}
	return &pagination.Page[PetDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) AdminGet(ctx context.Context, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.load(ctx, s.repo, petID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(pet), nil
}

// Decide applies an admin review decision. Rejections and action requests
// need a non-blank note; nothing is written when validation fails.
func (s *service) Decide(ctx context.Context, input DecisionInput) (*PetDTO, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if !input.Status.IsAdminDecision() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved, rejected or action_required").
			WithDetails(map[string]string{"status": "oneof=approved rejected action_required"})
	}
	notes := strings.TrimSpace(input.Notes)
	if input.Status.RequiresNote() && notes == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin notes are required for this status").
			WithDetails(map[string]string{"admin_notes": "required"})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pet, err := s.load(ctx, repo, input.PetID)
		if err != nil {
			return err
		}
		from := pet.Status
		if !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet status transition not allowed").
				WithDetails(map[string]string{"from": from.String(), "to": input.Status.String()})
		}

		now := s.now()
		change := decisionUpdate{Status: input.Status, ReviewedBy: input.AdminID, ReviewedAt: now}
		if notes != "" {
			change.Notes = &notes
		}
		ok, err := repo.ApplyDecision(ctx, pet.ID, from, change)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pet status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet status changed concurrently")
		}

		adminID := input.AdminID
		if input.Status == enums.PetStatusActionRequired {
			if err := repo.AppendLog(ctx, &models.PetAppealLog{
				PetID:      pet.ID,
				AuthorType: enums.AppealAuthorAdminRequest,
				AuthorID:   &adminID,
				Message:    notes,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append admin request")
			}
		}
		if err := repo.AppendLog(ctx, &models.PetAppealLog{
			PetID:      pet.ID,
			AuthorType: enums.AppealAuthorSystem,
			AuthorID:   &adminID,
			Message:    fmt.Sprintf("Estado actualizado de %s a %s", from, input.Status),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status log")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetStatusChanged,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.AdminActor(adminID),
			Data: payloads.PetStatusChangedEvent{
				PetID:          pet.ID,
				MemberID:       pet.MemberID,
				PetName:        pet.Name,
				PreviousStatus: from,
				Status:         input.Status,
				Note:           notes,
				AdminID:        adminID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, input.PetID)
}

// AddAdminMessage appends an admin message to the pet thread and keeps it as
// the pet's latest admin response.
func (s *service) AddAdminMessage(ctx context.Context, petID, adminID uuid.UUID, message string) (*AppealLogDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required").
			WithDetails(map[string]string{"message": "required"})
	}

	var entry models.PetAppealLog
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pet, err := s.load(ctx, repo, petID)
		if err != nil {
			return err
		}
		if err := repo.SetAdminResponse(ctx, pet.ID, message, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store admin response")
		}
		entry = models.PetAppealLog{
			PetID:      pet.ID,
			AuthorType: enums.AppealAuthorAdminRequest,
			AuthorID:   &adminID,
			Message:    message,
		}
		if err := repo.AppendLog(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append admin message")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPetAdminMessage,
			AggregateType: enums.AggregatePet,
			AggregateID:   pet.ID,
			Actor:         outbox.AdminActor(adminID),
			Data: payloads.PetAdminMessageEvent{
				PetID:    pet.ID,
				MemberID: pet.MemberID,
				PetName:  pet.Name,
				Message:  message,
				AdminID:  adminID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	dto := logsFromModels([]models.PetAppealLog{entry})[0]
	return &dto, nil
}

func (s *service) AdminAppealLog(ctx context.Context, petID uuid.UUID) ([]AppealLogDTO, error) {
	pet, err := s.load(ctx, s.repo, petID)
	if err != nil {
		return nil, err
	}
	return s.listLogs(ctx, pet.ID)
}

// NotifyCompletedWaitingPeriods queues one completion event per approved pet
// whose waiting period ended within lookback. Returns the pets examined.
func (s *service) NotifyCompletedWaitingPeriods(ctx context.Context, lookback time.Duration, limit int) (int, error) {
	now := s.now()
	window := waitingWindow{
		DefaultCutoff: now.Add(-days(s.policy.DefaultDays)),
		ReducedCutoff: now.Add(-days(s.policy.ReducedDays)),
		Lookback:      lookback,
	}

	var examined int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := repo.ListWaitingPeriodComplete(ctx, window, limit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed waiting periods")
		}
		for _, pet := range rows {
			result := s.policy.ForPet(pet, now)
			if !result.IsComplete {
				continue
			}
			examined++
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPetWaitingPeriodCompleted,
				AggregateType: enums.AggregatePet,
				AggregateID:   pet.ID,
				Actor:         outbox.SystemActor(),
				Data: payloads.PetWaitingPeriodCompletedEvent{
					PetID:       pet.ID,
					MemberID:    pet.MemberID,
					PetName:     pet.Name,
					CompletedAt: result.CompletesAt,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue waiting period event")
			}
		}
		return nil
	})
	return examined, err
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
