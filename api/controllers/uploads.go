package controllers

import (
	"net/http"
	"strings"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

// Upload stores a single member file (field "file") of the given kind and
// returns its public URL.
func Upload(svc uploads.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("uploads"))
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

		kind, err := enums.ParseUploadKind(strings.ToLower(validators.FormValue(r, "kind")))
		if err != nil || kind == enums.UploadKindLegalDocument {
			responses.WriteError(r.Context(), logg, w, invalidField("kind", "oneof=ine_front ine_back pet_photo vet_certificate", err))
			return
		}

		file, err := validators.RequiredFile(r, "file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stored, err := svc.Store(r.Context(), member.ID, kind, *toFile(file))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, stored)
	}
}
