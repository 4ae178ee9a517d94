package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/ambassadors"
	"github.com/clubpataamiga/pataamiga-backend/internal/payouts"
	"github.com/clubpataamiga/pataamiga-backend/internal/referrals"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

// ApplyAmbassador accepts the multipart application form with both INE
// images.
func ApplyAmbassador(svc ambassadors.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("ambassadors"))
			return
		}
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		birthDate, err := parseDate("birth_date", validators.FormValue(r, "birth_date"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		files, err := optionalFiles(r, "ine_front", "ine_back")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		form := func(key string) string { return validators.FormValue(r, key) }
		ambassador, err := svc.Apply(r.Context(), ambassadors.Applicant{
			MemberID:      member.ID,
			MemberstackID: member.MemberstackID,
		}, ambassadors.ApplyInput{
			FirstName:       form("first_name"),
			PaternalSurname: form("paternal_surname"),
			MaternalSurname: form("maternal_surname"),
			Email:           form("email"),
			Phone:           form("phone"),
			BirthDate:       birthDate,
			CURP:            form("curp"),
			RFC:             form("rfc"),
			Street:          form("street"),
			City:            form("city"),
			State:           form("state"),
			PostalCode:      form("postal_code"),
			BankName:        form("bank_name"),
			CLABE:           form("clabe"),
			SocialMedia:     form("social_media"),
			Motivation:      form("motivation"),
			INEFront:        files["ine_front"],
			INEBack:         files["ine_back"],
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ambassador)
	}
}

// AmbassadorDashboard returns the caller's profile and, once approved,
// their commission summary.
func AmbassadorDashboard(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dashboard, err := svc.Dashboard(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}

func ListMyReferrals(ambassadorSvc ambassadors.Service, referralSvc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassador, err := ambassadorSvc.GetForMember(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := referralSvc.List(r.Context(), referrals.ListParams{
			AmbassadorID: ambassador.ID,
			Limit:        limit,
			Cursor:       cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ListMyPayouts(ambassadorSvc ambassadors.Service, payoutSvc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassador, err := ambassadorSvc.GetForMember(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := payoutSvc.List(r.Context(), payouts.ListParams{
			AmbassadorID: ambassador.ID,
			Limit:        limit,
			Cursor:       cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type payoutRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RequestPayout asks for a withdrawal of up to the available balance.
func RequestPayout(ambassadorSvc ambassadors.Service, payoutSvc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, err := currentMember(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body payoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassador, err := ambassadorSvc.GetForMember(r.Context(), member.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := payoutSvc.Request(r.Context(), ambassador.ID, body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// CheckAmbassadorAvailability answers whether a CURP, email or RFC is
// still free before the application is submitted.
func CheckAmbassadorAvailability(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		result, err := svc.CheckAvailability(r.Context(), strings.TrimSpace(query.Get("field")), query.Get("value"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ValidateReferralCode(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.ValidateReferralCode(r.Context(), chiParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type ambassadorPatchRequest struct {
	Status               *string          `json:"status" validate:"omitempty,oneof=approved rejected suspended"`
	RejectionReason      string           `json:"rejection_reason" validate:"max=2000"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

func AdminListAmbassadors(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := ambassadors.AdminListParams{
			Search: validators.SearchTerm(r),
			Limit:  limit,
			Cursor: cursor,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseAmbassadorStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", "unknown ambassador status", err))
				return
			}
			params.Status = status
		}
		page, err := svc.AdminList(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminGetAmbassador(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ambassadorID, err := parseUUIDParam(r, "ambassadorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassador, err := svc.AdminGet(r.Context(), ambassadorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ambassador)
	}
}

// AdminPatchAmbassador reviews an ambassador: a status transition, a
// commission change, or both.
func AdminPatchAmbassador(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassadorID, err := parseUUIDParam(r, "ambassadorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body ambassadorPatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ambassadors.ReviewInput{
			AmbassadorID:         ambassadorID,
			AdminID:              adminID,
			RejectionReason:      body.RejectionReason,
			CommissionPercentage: body.CommissionPercentage,
		}
		if body.Status != nil {
			status := enums.AmbassadorStatus(*body.Status)
			input.Status = &status
		}

		ambassador, err := svc.Review(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ambassador)
	}
}

func AdminDeleteAmbassador(svc ambassadors.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ambassadorID, err := parseUUIDParam(r, "ambassadorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), ambassadorID, adminID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
