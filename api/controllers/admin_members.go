package controllers

import (
	"net/http"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/members"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

func AdminListMembers(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), members.ListParams{
			Search: validators.SearchTerm(r),
			Limit:  limit,
			Cursor: cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminGetMember(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memberID, err := parseUUIDParam(r, "memberId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		member, err := svc.Get(r.Context(), memberID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, members.FromModel(member))
	}
}
