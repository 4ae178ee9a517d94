package ambassadors

import (
	"context"
	"strings"

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

var maxCommission = decimal.NewFromInt(100)

func (s *service) AdminList(ctx context.Context, params AdminListParams) (*pagination.Page[AmbassadorDTO], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid ambassador status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listAmbassadorsParams{
		Status: params.Status,
		Search: params.Search,
		Limit:  pagination.LimitWithBuffer(params.Limit),
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ambassadors")
	}
	page := pagination.BuildPage(rows, params.Limit, func(a models.Ambassador) pagination.Cursor {
		return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
	})
	items := make([]AmbassadorDTO, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, *FromModel(&page.Items[i]))
	}
	return &pagination.Page[AmbassadorDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) AdminGet(ctx context.Context, ambassadorID uuid.UUID) (*AmbassadorDTO, error) {
	ambassador, err := s.load(ctx, s.repo, ambassadorID)
	if err != nil {
		return nil, err
	}
	return FromModel(ambassador), nil
}

// Review applies an admin PATCH: a status decision, a commission change, or
// both. Input is fully validated before anything is written.
func (s *service) Review(ctx context.Context, input ReviewInput) (*AmbassadorDTO, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.Status == nil && input.CommissionPercentage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing to update")
	}
	reason := strings.TrimSpace(input.RejectionReason)
	if input.Status != nil {
		target := *input.Status
		if !target.IsAdminDecision() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved, rejected or suspended").
				WithDetails(map[string]string{"status": "oneof=approved rejected suspended"})
		}
		if target.RequiresNote() && reason == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required").
				WithDetails(map[string]string{"rejection_reason": "required"})
		}
	}
	if pct := input.CommissionPercentage; pct != nil && (pct.IsNegative() || pct.GreaterThan(maxCommission)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission percentage must be between 0 and 100").
			WithDetails(map[string]string{"commission_percentage": "range=0..100"})
	}

	var (
		updated *models.Ambassador
		oldCode *string
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, input.AmbassadorID)
		if err != nil {
			return err
		}
		oldCode = current.ReferralCode

		if input.CommissionPercentage != nil {
			if err := repo.UpdateCommission(ctx, current.ID, input.CommissionPercentage.Round(2)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
			}
		}
		if input.Status != nil {
			if err := s.decide(ctx, tx, repo, current, *input.Status, reason, input.AdminID); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload ambassador")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.codes.forget(oldCode)
	s.codes.forget(updated.ReferralCode)
	return FromModel(updated), nil
}

func (s *service) decide(ctx context.Context, tx *gorm.DB, repo Repository, current *models.Ambassador, target enums.AmbassadorStatus, reason string, adminID uuid.UUID) error {
	from := current.Status
	if !from.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "ambassador status transition not allowed").
			WithDetails(map[string]string{"from": from.String(), "to": target.String()})
	}

	change := reviewUpdate{Status: target, ReviewerID: adminID, At: s.now()}
	if reason != "" && target != enums.AmbassadorStatusApproved {
		change.RejectionReason = &reason
	}
	if target == enums.AmbassadorStatusApproved && (current.ReferralCode == nil || *current.ReferralCode == "") {
		code, err := s.generateCode(ctx, repo, current.FirstName)
		if err != nil {
			return err
		}
		change.ReferralCode = &code
	}

	ok, err := repo.ApplyReview(ctx, current.ID, from, change)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "referral code collision, retry")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ambassador")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "ambassador changed concurrently")
	}

	event := payloads.AmbassadorStatusChangedEvent{
		AmbassadorID:   current.ID,
		MemberID:       current.MemberID,
		Name:           current.DisplayName(),
		Email:          current.Email,
		Phone:          current.Phone,
		PreviousStatus: from,
		Status:         target,
		Reason:         reason,
	}
	if current.LinkedMemberstackID != nil {
		event.MemberstackID = *current.LinkedMemberstackID
	}
	if change.ReferralCode != nil {
		event.ReferralCode = *change.ReferralCode
	} else if current.ReferralCode != nil {
		event.ReferralCode = *current.ReferralCode
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAmbassadorStatusChanged,
		AggregateType: enums.AggregateAmbassador,
		AggregateID:   current.ID,
		Actor:         outbox.AdminActor(adminID),
		Data:          event,
	})
}

// Delete removes an ambassador with its referrals and payouts. Approved
// ambassadors must be suspended first so the identity flag is cleared.
func (s *service) Delete(ctx context.Context, ambassadorID, adminID uuid.UUID) error {
	if adminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	var removed *models.Ambassador
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, ambassadorID)
		if err != nil {
			return err
		}
		if current.Status == enums.AmbassadorStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "suspend the ambassador before deleting")
		}
		if err := repo.ClearMemberReferrer(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink referred members")
		}
		if err := repo.Delete(ctx, current.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ambassador")
		}
		removed = current
		return nil
	})
	if err != nil {
		return err
	}
	s.codes.forget(removed.ReferralCode)
	for _, url := range []*string{removed.INEFrontURL, removed.INEBackURL} {
		if url != nil {
			_ = s.files.Remove(ctx, *url)
		}
	}
	return nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Ambassador, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ambassador id required")
	}
	ambassador, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ambassador not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ambassador")
	}
	return ambassador, nil
}
