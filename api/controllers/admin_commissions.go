package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/payouts"
	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

func AdminListReferrals(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := referrals.ListParams{Limit: limit, Cursor: cursor}
		if params.AmbassadorID, err = parseUUIDQuery(r, "ambassadorId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCommissionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", "unknown commission status", err))
				return
			}
			params.Status = status
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type approveReferralRequest struct {
	MembershipAmount *decimal.Decimal `json:"membership_amount"`
}

// AdminApproveReferral approves a commission, optionally overriding the
// membership amount the commission is computed from.
func AdminApproveReferral(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body approveReferralRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		referralAction(w, r, logg, func(referralID, adminID uuid.UUID) (*referrals.ReferralDTO, error) {
			return svc.Approve(r.Context(), referralID, adminID, body.MembershipAmount)
		})
	}
}

func AdminPayReferral(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		referralAction(w, r, logg, func(referralID, adminID uuid.UUID) (*referrals.ReferralDTO, error) {
			return svc.MarkPaid(r.Context(), referralID, adminID)
		})
	}
}

func AdminCancelReferral(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		referralAction(w, r, logg, func(referralID, adminID uuid.UUID) (*referrals.ReferralDTO, error) {
			return svc.Cancel(r.Context(), referralID, adminID)
		})
	}
}

func referralAction(w http.ResponseWriter, r *http.Request, logg *logger.Logger, fn func(referralID, adminID uuid.UUID) (*referrals.ReferralDTO, error)) {
	adminID, err := currentAdmin(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	referralID, err := parseUUIDParam(r, "referralId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	referral, err := fn(referralID, adminID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, referral)
}

func AdminListPayouts(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := payouts.ListParams{Limit: limit, Cursor: cursor}
		if params.AmbassadorID, err = parseUUIDQuery(r, "ambassadorId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", "unknown payout status", err))
				return
			}
			params.Status = status
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type completePayoutRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required,notblank,max=128"`
}

type failPayoutRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

func AdminProcessPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payoutAction(w, r, logg, func(payoutID, adminID uuid.UUID) (*payouts.PayoutDTO, error) {
			return svc.Process(r.Context(), payoutID, adminID)
		})
	}
}

func AdminCompletePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body completePayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutAction(w, r, logg, func(payoutID, adminID uuid.UUID) (*payouts.PayoutDTO, error) {
			return svc.Complete(r.Context(), payoutID, adminID, body.PaymentReference)
		})
	}
}

func AdminFailPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body failPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutAction(w, r, logg, func(payoutID, adminID uuid.UUID) (*payouts.PayoutDTO, error) {
			return svc.Fail(r.Context(), payoutID, adminID, body.Reason)
		})
	}
}

func payoutAction(w http.ResponseWriter, r *http.Request, logg *logger.Logger, fn func(payoutID, adminID uuid.UUID) (*payouts.PayoutDTO, error)) {
	adminID, err := currentAdmin(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	payoutID, err := parseUUIDParam(r, "payoutId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	payout, err := fn(payoutID, adminID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, payout)
}
