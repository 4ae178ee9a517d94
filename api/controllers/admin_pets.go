package controllers

import (
	"net/http"
	"strings"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/pets"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type petDecisionRequest struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected action_required"`
	AdminNotes string `json:"admin_notes" validate:"max=2000"`
}

type adminMessageRequest struct {
	Message string `json:"message" validate:"required,notblank"`
}

// AdminListPets returns the review queue filtered by status, owner or search.
func AdminListPets(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pets.AdminListParams{
			Search: validators.SearchTerm(r),
			Limit:  limit,
			Cursor: cursor,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePetStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, invalidField("status", "unknown pet status", err))
				return
			}
			params.Status = status
		}
		if params.MemberID, err = parseUUIDQuery(r, "memberId"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.AdminList(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminGetPet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.AdminGet(r.Context(), petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

// AdminDecidePet applies a review decision. Rejections and action requests
// need a non-blank note, which the service enforces.
func AdminDecidePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body petDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pet, err := svc.Decide(r.Context(), pets.DecisionInput{
			PetID:   petID,
			AdminID: adminID,
			Status:  enums.PetStatus(body.Status),
			Notes:   body.AdminNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func AdminMessagePet(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adminMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.AddAdminMessage(r.Context(), petID, adminID, body.Message)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func AdminListPetAppeals(svc pets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		petID, err := parseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.AdminAppealLog(r.Context(), petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
