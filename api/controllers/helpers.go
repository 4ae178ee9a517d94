package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/api/middleware"
	"github.com/clubpataamiga/pataamiga-backend/api/validators"
	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").
			WithDetails(map[string]string{name: "must be a uuid"})
	}
	return id, nil
}

func parseUUIDQuery(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").
			WithDetails(map[string]string{name: "must be a uuid"})
	}
	return id, nil
}

// pageParams reads the cursor pagination query shared by every listing.
func pageParams(r *http.Request) (int, string, error) {
	limit, err := validators.QueryInt(r, "limit", defaultPageSize, 1, maxPageSize)
	if err != nil {
		return 0, "", err
	}
	return limit, strings.TrimSpace(r.URL.Query().Get("cursor")), nil
}

func currentMember(r *http.Request) (*models.Member, error) {
	member := middleware.MemberFromContext(r.Context())
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing")
	}
	return member, nil
}

func currentAdmin(r *http.Request) (uuid.UUID, error) {
	adminID := middleware.AdminIDFromContext(r.Context())
	if adminID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing")
	}
	return adminID, nil
}

func toFile(f *validators.UploadedFile) *uploads.File {
	if f == nil {
		return nil
	}
	return &uploads.File{FileName: f.FileName, Data: f.Data}
}

// optionalFiles reads every named multipart file field that is present.
func optionalFiles(r *http.Request, fields ...string) (map[string]*uploads.File, error) {
	out := make(map[string]*uploads.File, len(fields))
	for _, field := range fields {
		f, err := validators.OptionalFile(r, field)
		if err != nil {
			return nil, err
		}
		out[field] = toFile(f)
	}
	return out, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date").
			WithDetails(map[string]string{field: "must be YYYY-MM-DD"})
	}
	return &parsed, nil
}

func invalidField(field, msg string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).
		WithDetails(map[string]string{field: msg})
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func chiParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}
