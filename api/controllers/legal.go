package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clubpataamiga/pataamiga-backend/api/responses"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/legal"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

type legalDocumentForm struct {
	Title          string `json:"title" validate:"required,notblank,max=200"`
	TargetAudience string `json:"target_audience" validate:"required,oneof=members ambassadors both"`
}

// PublicLegalDocuments lists the active documents for an audience.
func PublicLegalDocuments(svc legal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := svc.PublicList(r.Context(), strings.TrimSpace(r.URL.Query().Get("audience")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, docs)
	}
}

func AdminListLegalDocuments(svc legal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := svc.AdminList(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, docs)
	}
}

// AdminCreateLegalDocument uploads a PDF (field "file") with its metadata.
func AdminCreateLegalDocument(svc legal.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form := legalDocumentForm{
			Title:          validators.FormValue(r, "title"),
			TargetAudience: strings.ToLower(validators.FormValue(r, "target_audience")),
		}
		if err := validators.ValidateStruct(&form); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isActive, err := formBool(r, "is_active")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.RequiredFile(r, "file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := svc.Create(r.Context(), adminID, legal.CreateInput{
			Title:          form.Title,
			Description:    validators.FormValue(r, "description"),
			TargetAudience: enums.LegalAudience(form.TargetAudience),
			IsActive:       isActive,
			File:           toFile(file),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, doc)
	}
}

// AdminUpdateLegalDocument patches metadata; a new "file" replaces the PDF.
func AdminUpdateLegalDocument(svc legal.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, err := currentAdmin(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		documentID, err := parseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ParseMultipart(w, r, maxBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := legal.UpdateInput{}
		if r.MultipartForm != nil {
			values := r.MultipartForm.Value
			if _, ok := values["title"]; ok {
				title := validators.FormValue(r, "title")
				input.Title = &title
			}
			if _, ok := values["description"]; ok {
				description := validators.FormValue(r, "description")
				input.Description = &description
			}
			if _, ok := values["target_audience"]; ok {
				audience, err := enums.ParseLegalAudience(strings.ToLower(validators.FormValue(r, "target_audience")))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, invalidField("target_audience", "oneof=members ambassadors both", err))
					return
				}
				input.TargetAudience = &audience
			}
		}
		if input.IsActive, err = formBool(r, "is_active"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		file, err := validators.OptionalFile(r, "file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.File = toFile(file)

		doc, err := svc.Update(r.Context(), adminID, documentID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, doc)
	}
}

func AdminDeleteLegalDocument(svc legal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID, err := parseUUIDParam(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), documentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func formBool(r *http.Request, key string) (*bool, error) {
	raw := validators.FormValue(r, key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, invalidField(key, "must be a boolean", err)
	}
	return &value, nil
}
