// Package referrals records ambassador referrals, runs the commission
// workflow and computes ambassador earnings.
package referrals

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

// Service defines referral and commission operations.
type Service interface {
	Record(ctx context.Context, memberID uuid.UUID, input RecordInput) (*ReferralDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[ReferralDTO], error)
	Approve(ctx context.Context, referralID, adminID uuid.UUID, membershipAmount *decimal.Decimal) (*ReferralDTO, error)
	MarkPaid(ctx context.Context, referralID, adminID uuid.UUID) (*ReferralDTO, error)
	Cancel(ctx context.Context, referralID, adminID uuid.UUID) (*ReferralDTO, error)
	Summary(ctx context.Context, ambassadorID uuid.UUID) (*Summary, error)
	SummaryTx(ctx context.Context, tx *gorm.DB, ambassadorID uuid.UUID) (*Summary, error)
	SettleTx(ctx context.Context, tx *gorm.DB, ambassadorID, payoutID uuid.UUID, at time.Time) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewService wires the referrals dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "referrals repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if publisher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: publisher,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record links the calling member to the approved ambassador owning code.
// The code is resolved again here; the widget's validation is advisory.
func (s *service) Record(ctx context.Context, memberID uuid.UUID, input RecordInput) (*ReferralDTO, error) {
	if memberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member identity missing")
	}
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is required").
			WithDetails(map[string]string{"code": "required"})
	}
	amount := decimal.Zero
	if input.MembershipAmount != nil {
		if input.MembershipAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "membership amount must not be negative").
				WithDetails(map[string]string{"membership_amount": "gte=0"})
		}
		amount = input.MembershipAmount.Round(2)
	}

	var referral *models.Referral
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ambassador, err := repo.FindApprovedAmbassadorByCode(ctx, code)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "referral code is not valid").
					WithDetails(map[string]string{"code": "invalid"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
		}
		if ambassador.MemberID != nil && *ambassador.MemberID == memberID {
			return pkgerrors.New(pkgerrors.CodeValidation, "ambassadors cannot refer themselves")
		}

		if _, err := repo.FindByReferredMember(ctx, memberID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "member already has a referral")
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
		}

		referral = &models.Referral{
			AmbassadorID:     ambassador.ID,
			ReferredMemberID: memberID,
			ReferralCode:     code,
			CommissionStatus: enums.CommissionStatusPending,
			MembershipAmount: amount,
			CommissionAmount: CalculateCommission(amount, ambassador.CommissionPercentage),
		}
		if plan := strings.TrimSpace(input.MembershipPlan); plan != "" {
			referral.MembershipPlan = &plan
		}
		if err := repo.Create(ctx, referral); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "member already has a referral")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral")
		}
		if err := repo.SetMemberReferrer(ctx, memberID, ambassador.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link member to ambassador")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReferralCreated,
			AggregateType: enums.AggregateReferral,
			AggregateID:   referral.ID,
			Actor:         outbox.MemberActor(memberID),
			Data: payloads.ReferralCreatedEvent{
				ReferralID:       referral.ID,
				AmbassadorID:     ambassador.ID,
				AmbassadorMember: ambassador.MemberID,
				ReferredMemberID: memberID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(referral), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[ReferralDTO], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid commission status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listReferralsParams{
		AmbassadorID: params.AmbassadorID,
		Status:       params.Status,
		Limit:        pagination.LimitWithBuffer(params.Limit),
		Cursor:       cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list referrals")
	}
	page := pagination.BuildPage(rows, params.Limit, func(r models.Referral) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	items := make([]ReferralDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *FromModel(&page.Items[i]))
	}
	return &pagination.Page[ReferralDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// Approve confirms a pending commission. When membershipAmount is given it
// replaces the stored amount and the commission is recalculated from it.
func (s *service) Approve(ctx context.Context, referralID, adminID uuid.UUID, membershipAmount *decimal.Decimal) (*ReferralDTO, error) {
	if membershipAmount != nil && membershipAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "membership amount must not be negative").
			WithDetails(map[string]string{"membership_amount": "gte=0"})
	}
	return s.transition(ctx, referralID, adminID, enums.CommissionStatusApproved, membershipAmount)
}

func (s *service) MarkPaid(ctx context.Context, referralID, adminID uuid.UUID) (*ReferralDTO, error) {
	return s.transition(ctx, referralID, adminID, enums.CommissionStatusPaid, nil)
}

func (s *service) Cancel(ctx context.Context, referralID, adminID uuid.UUID) (*ReferralDTO, error) {
	return s.transition(ctx, referralID, adminID, enums.CommissionStatusCancelled, nil)
}

func (s *service) transition(ctx context.Context, referralID, adminID uuid.UUID, target enums.CommissionStatus, membershipAmount *decimal.Decimal) (*ReferralDTO, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if referralID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral id required")
	}

	var updated *models.Referral
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		referral, err := repo.FindByID(ctx, referralID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "referral not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load referral")
		}
		from := referral.CommissionStatus
		if !from.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commission status transition not allowed").
				WithDetails(map[string]string{"from": from.String(), "to": target.String()})
		}

		ambassador, err := repo.FindAmbassador(ctx, referral.AmbassadorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
		}

		change := commissionUpdate{Status: target, ActorID: adminID, At: s.now()}
		if target == enums.CommissionStatusApproved {
			amount := referral.MembershipAmount
			if membershipAmount != nil {
				amount = membershipAmount.Round(2)
			}
			commission := CalculateCommission(amount, ambassador.CommissionPercentage)
			change.MembershipAmount = &amount
			change.CommissionAmount = &commission
		}
		ok, err := repo.UpdateCommission(ctx, referral.ID, from, change)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "referral changed concurrently")
		}

		updated, err = repo.FindByID(ctx, referral.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload referral")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReferralCommissionChanged,
			AggregateType: enums.AggregateReferral,
			AggregateID:   referral.ID,
			Actor:         outbox.AdminActor(adminID),
			Data: payloads.ReferralCommissionChangedEvent{
				ReferralID:       referral.ID,
				AmbassadorID:     ambassador.ID,
				AmbassadorMember: ambassador.MemberID,
				Status:           target,
				CommissionAmount: updated.CommissionAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Summary(ctx context.Context, ambassadorID uuid.UUID) (*Summary, error) {
	return s.summary(ctx, s.repo, ambassadorID)
}

// SummaryTx computes the rollup inside tx so callers can check the balance
// and write a payout atomically.
func (s *service) SummaryTx(ctx context.Context, tx *gorm.DB, ambassadorID uuid.UUID) (*Summary, error) {
	return s.summary(ctx, s.repo.WithTx(tx), ambassadorID)
}

func (s *service) summary(ctx context.Context, repo Repository, ambassadorID uuid.UUID) (*Summary, error) {
	if ambassadorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ambassador id required")
	}
	commissions, err := repo.CommissionTotals(ctx, ambassadorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum commissions")
	}
	payouts, err := repo.PayoutTotals(ctx, ambassadorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payouts")
	}
	settled, err := repo.SettledTotal(ctx, ambassadorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum settled commissions")
	}
	summary := summarize(commissions, payouts, settled)
	return &summary, nil
}

// SettleTx marks approved commissions paid, oldest first, while completed
// payouts still cover more than they settled. It runs in the payout's
// completion transaction and returns how many commissions it settled.
func (s *service) SettleTx(ctx context.Context, tx *gorm.DB, ambassadorID, payoutID uuid.UUID, at time.Time) (int, error) {
	repo := s.repo.WithTx(tx)
	payouts, err := repo.PayoutTotals(ctx, ambassadorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payouts")
	}
	settled, err := repo.SettledTotal(ctx, ambassadorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum settled commissions")
	}
	credit := decimal.Zero
	for _, row := range payouts {
		if enums.PayoutStatus(row.Status) == enums.PayoutStatusCompleted {
			credit = credit.Add(row.Total)
		}
	}
	credit = credit.Sub(settled)
	if !credit.IsPositive() {
		return 0, nil
	}

	approved, err := repo.ApprovedForSettlement(ctx, ambassadorID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approved commissions")
	}
	count := 0
	for _, referral := range approved {
		if referral.CommissionAmount.GreaterThan(credit) {
			break
		}
		ok, err := repo.SettleCommission(ctx, referral.ID, payoutID, at)
		if err != nil {
			return count, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle commission")
		}
		if !ok {
			continue
		}
		credit = credit.Sub(referral.CommissionAmount)
		count++
	}
	return count, nil
}
