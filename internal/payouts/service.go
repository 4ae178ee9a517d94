// Package payouts handles ambassador withdrawal requests and their admin
// processing.
package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox"
	"github.com/clubpataamiga/pataamiga-backend/pkg/outbox/payloads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type balanceReader interface {
	SummaryTx(ctx context.Context, tx *gorm.DB, ambassadorID uuid.UUID) (*referrals.Summary, error)
	SettleTx(ctx context.Context, tx *gorm.DB, ambassadorID, payoutID uuid.UUID, at time.Time) (int, error)
}

// PayoutDTO exposes a payout request.
type PayoutDTO struct {
	ID               uuid.UUID          `json:"id"`
	AmbassadorID     uuid.UUID          `json:"ambassador_id"`
	Amount           decimal.Decimal    `json:"amount"`
	Status           enums.PayoutStatus `json:"status"`
	PaymentReference *string            `json:"payment_reference,omitempty"`
	FailureReason    *string            `json:"failure_reason,omitempty"`
	ProcessedAt      *time.Time         `json:"processed_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// ListParams configures payout listings.
type ListParams struct {
	AmbassadorID uuid.UUID
	Status       enums.PayoutStatus
	Limit        int
	Cursor       string
}

// Service defines payout operations.
type Service interface {
	Request(ctx context.Context, ambassadorID uuid.UUID, amount decimal.Decimal) (*PayoutDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[PayoutDTO], error)
	Process(ctx context.Context, payoutID, adminID uuid.UUID) (*PayoutDTO, error)
	Complete(ctx context.Context, payoutID, adminID uuid.UUID, paymentReference string) (*PayoutDTO, error)
	Fail(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*PayoutDTO, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	balances balanceReader
	now      func() time.Time
}

// NewService wires the payouts dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, balances balanceReader) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payouts repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if balances == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "balance reader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		balances: balances,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Request opens a withdrawal for an approved ambassador, limited to the
// available balance at the time of the request.
func (s *service) Request(ctx context.Context, ambassadorID uuid.UUID, amount decimal.Decimal) (*PayoutDTO, error) {
	if ambassadorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "ambassador profile required")
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive").
			WithDetails(map[string]string{"amount": "gt=0"})
	}

	var payout *models.AmbassadorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ambassador, err := repo.LockAmbassador(ctx, ambassadorID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ambassador not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
		}
		if ambassador.Status != enums.AmbassadorStatusApproved {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only approved ambassadors can request payouts")
		}
		if ambassador.CLABE == nil || strings.TrimSpace(*ambassador.CLABE) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "bank account required before requesting a payout").
				WithDetails(map[string]string{"clabe": "required"})
		}

		summary, err := s.balances.SummaryTx(ctx, tx, ambassador.ID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(summary.AvailableBalance) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "amount exceeds available balance").
				WithDetails(map[string]string{"available_balance": summary.AvailableBalance.StringFixed(2)})
		}

		payout = &models.AmbassadorPayout{
			AmbassadorID: ambassador.ID,
			Amount:       amount,
			Status:       enums.PayoutStatusPending,
		}
		if err := repo.Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		actor := outbox.MemberActor(uuid.Nil)
		if ambassador.MemberID != nil {
			actor = outbox.MemberActor(*ambassador.MemberID)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         actor,
			Data: payloads.PayoutRequestedEvent{
				PayoutID:     payout.ID,
				AmbassadorID: ambassador.ID,
				Amount:       amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return fromModel(payout), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[PayoutDTO], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payout status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listPayoutsParams{
		AmbassadorID: params.AmbassadorID,
		Status:       params.Status,
		Limit:        pagination.LimitWithBuffer(params.Limit),
		Cursor:       cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	page := pagination.BuildPage(rows, params.Limit, func(p models.AmbassadorPayout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	items := make([]PayoutDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *fromModel(&page.Items[i]))
	}
	return &pagination.Page[PayoutDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) Process(ctx context.Context, payoutID, adminID uuid.UUID) (*PayoutDTO, error) {
	return s.transition(ctx, payoutID, adminID, statusUpdate{Status: enums.PayoutStatusProcessing})
}

func (s *service) Complete(ctx context.Context, payoutID, adminID uuid.UUID, paymentReference string) (*PayoutDTO, error) {
	change := statusUpdate{Status: enums.PayoutStatusCompleted}
	if ref := strings.TrimSpace(paymentReference); ref != "" {
		change.PaymentReference = &ref
	}
	return s.transition(ctx, payoutID, adminID, change)
}

func (s *service) Fail(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*PayoutDTO, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "failure reason is required").
			WithDetails(map[string]string{"reason": "required"})
	}
	return s.transition(ctx, payoutID, adminID, statusUpdate{Status: enums.PayoutStatusFailed, FailureReason: &reason})
}

func (s *service) transition(ctx context.Context, payoutID, adminID uuid.UUID, change statusUpdate) (*PayoutDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	change.ActorID = adminID
	change.At = s.now()

	var updated *models.AmbassadorPayout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payout, err := repo.FindByID(ctx, payoutID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		from := payout.Status
		if !from.CanTransitionTo(change.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout status transition not allowed").
				WithDetails(map[string]string{"from": from.String(), "to": change.Status.String()})
		}
		if change.Status == enums.PayoutStatusCompleted {
			// settlement reads the balance; serialize with Request
			if _, err := repo.LockAmbassador(ctx, payout.AmbassadorID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock ambassador")
			}
		}
		ok, err := repo.UpdateStatus(ctx, payout.ID, from, change)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payout changed concurrently")
		}
		updated, err = repo.FindByID(ctx, payout.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payout")
		}
		ambassador, err := repo.FindAmbassador(ctx, payout.AmbassadorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
		}
		if change.Status == enums.PayoutStatusCompleted {
			if _, err := s.balances.SettleTx(ctx, tx, payout.AmbassadorID, payout.ID, change.At); err != nil {
				return err
			}
		}

		event := payloads.PayoutStatusChangedEvent{
			PayoutID:         payout.ID,
			AmbassadorID:     payout.AmbassadorID,
			AmbassadorMember: ambassador.MemberID,
			Status:           change.Status,
			Amount:           payout.Amount,
		}
		if change.FailureReason != nil {
			event.FailureReason = *change.FailureReason
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutStatusChanged,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         outbox.AdminActor(adminID),
			Data:          event,
		})
	})
	if err != nil {
		return nil, err
	}
	return fromModel(updated), nil
}

func fromModel(m *models.AmbassadorPayout) *PayoutDTO {
	if m == nil {
		return nil
	}
	return &PayoutDTO{
		ID:               m.ID,
		AmbassadorID:     m.AmbassadorID,
		Amount:           m.Amount,
		Status:           m.Status,
		PaymentReference: m.PaymentReference,
		FailureReason:    m.FailureReason,
		ProcessedAt:      m.ProcessedAt,
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
	}
}
