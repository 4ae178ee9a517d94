package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/members"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type petLister interface {
	ListForMember(ctx context.Context, memberID uuid.UUID) ([]pets.PetDTO, error)
}

type ambassadorLookup interface {
	GetForMember(ctx context.Context, memberID uuid.UUID) (*ambassadors.AmbassadorDTO, error)
}

type meResponse struct {
	Member     *members.MemberDTO         `json:"member"`
	Pets       []pets.PetDTO              `json:"pets"`
	Ambassador *ambassadors.AmbassadorDTO `json:"ambassador"`
}

// GetMe returns the member profile, their pets with waiting period progress
// and their ambassador application, if any.
func GetMe(petSvc petLister, ambassadorSvc ambassadorLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		petList, err := petSvc.ListForMember(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ambassador, err := ambassadorSvc.GetForMember(r.Context(), member.ID)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, meResponse{
			Member:     members.FromModel(member),
			Pets:       petList,
			Ambassador: ambassador,
		})
	}
}

type recordReferralRequest struct {
	Code             string           `json:"code" validate:"required,max=32"`
	MembershipPlan   string           `json:"membership_plan" validate:"omitempty,max=64"`
	MembershipAmount *decimal.Decimal `json:"membership_amount"`
}

// RecordReferral stores the referral code a member used at signup.
func RecordReferral(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("referrals"))
			return
		}
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordReferralRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.Record(r.Context(), member.ID, referrals.RecordInput{
			Code:             body.Code,
			MembershipPlan:   body.MembershipPlan,
			MembershipAmount: body.MembershipAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, referral)
	}
}
