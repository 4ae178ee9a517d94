package controllers

import (
	"net/http"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/internal/deadletters"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

func AdminListDeadLetters(svc deadletters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("dead letters"))
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), deadletters.ListParams{
			EventType: r.URL.Query().Get("event_type"),
			Reason:    r.URL.Query().Get("reason"),
			Limit:     limit,
			Cursor:    cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminRequeueDeadLetter(svc deadletters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("dead letters"))
			return
		}
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		eventID, err := parseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requeued, err := svc.Requeue(r.Context(), eventID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requeued)
	}
}
