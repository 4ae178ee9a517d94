// Package legal manages the legal documents (terms, privacy notices,
// contracts) published to members and ambassadors.
package legal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/internal/uploads"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const maxTitleLen = 200

// DocumentDTO exposes a legal document.
type DocumentDTO struct {
	ID             uuid.UUID           `json:"id"`
	Title          string              `json:"title"`
	Description    *string             `json:"description,omitempty"`
	FileURL        string              `json:"file_url"`
	TargetAudience enums.LegalAudience `json:"target_audience"`
	IsActive       bool                `json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// CreateInput is an admin upload.
type CreateInput struct {
	Title          string
	Description    string
	TargetAudience enums.LegalAudience
	IsActive       *bool
	File           *uploads.File
}

// UpdateInput patches a document; a new File replaces the stored PDF.
type UpdateInput struct {
	Title          *string
	Description    *string
	TargetAudience *enums.LegalAudience
	IsActive       *bool
	File           *uploads.File
}

// Service defines legal document operations.
type Service interface {
	Create(ctx context.Context, adminID uuid.UUID, input CreateInput) (*DocumentDTO, error)
	AdminList(ctx context.Context) ([]DocumentDTO, error)
	Update(ctx context.Context, adminID, documentID uuid.UUID, input UpdateInput) (*DocumentDTO, error)
	Delete(ctx context.Context, documentID uuid.UUID) error
	PublicList(ctx context.Context, audience string) ([]DocumentDTO, error)
}

type service struct {
	repo  Repository
	files uploads.Service
	now   func() time.Time
}

// NewService wires the legal documents dependencies.
func NewService(repo Repository, files uploads.Service) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "legal repository required")
	}
	if files == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "uploads service required")
	}
	return &service{repo: repo, files: files, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, adminID uuid.UUID, input CreateInput) (*DocumentDTO, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	details := map[string]string{}
	if input.Title == "" {
		details["title"] = "required"
	} else if len(input.Title) > maxTitleLen {
		details["title"] = "max=200"
	}
	if !input.TargetAudience.IsValid() {
		details["target_audience"] = "oneof=members ambassadors both"
	}
	if input.File == nil || len(input.File.Data) == 0 {
		details["file"] = "required"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid legal document").WithDetails(details)
	}

	stored, err := s.files.Store(ctx, adminID, enums.UploadKindLegalDocument, *input.File)
	if err != nil {
		return nil, err
	}
	doc := &models.LegalDocument{
		Title:          input.Title,
		FileURL:        stored.URL,
		TargetAudience: input.TargetAudience,
		IsActive:       input.IsActive == nil || *input.IsActive,
	}
	if input.Description != "" {
		doc.Description = &input.Description
	}
	if adminID != uuid.Nil {
		doc.UploadedBy = &adminID
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.files.Remove(ctx, stored.URL)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create legal document")
	}
	return fromModel(doc), nil
}

func (s *service) AdminList(ctx context.Context) ([]DocumentDTO, error) {
	return s.list(ctx, listDocumentsParams{})
}

// PublicList returns active documents for audience plus those marked both.
func (s *service) PublicList(ctx context.Context, audience string) ([]DocumentDTO, error) {
	params := listDocumentsParams{ActiveOnly: true}
	if audience = strings.TrimSpace(audience); audience != "" {
		parsed, err := enums.ParseLegalAudience(strings.ToLower(audience))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid audience").
				WithDetails(map[string]string{"audience": "oneof=members ambassadors both"})
		}
		params.Audiences = []enums.LegalAudience{parsed}
		if parsed != enums.LegalAudienceBoth {
			params.Audiences = append(params.Audiences, enums.LegalAudienceBoth)
		}
	}
	return s.list(ctx, params)
}

func (s *service) Update(ctx context.Context, adminID, documentID uuid.UUID, input UpdateInput) (*DocumentDTO, error) {
	current, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": s.now()}
	details := map[string]string{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			details["title"] = "required"
		} else if len(title) > maxTitleLen {
			details["title"] = "max=200"
		}
		updates["title"] = title
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != "" {
			updates["description"] = desc
		} else {
			updates["description"] = nil
		}
	}
	if input.TargetAudience != nil {
		if !input.TargetAudience.IsValid() {
			details["target_audience"] = "oneof=members ambassadors both"
		}
		updates["target_audience"] = *input.TargetAudience
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid legal document").WithDetails(details)
	}

	var uploaded string
	if input.File != nil {
		stored, err := s.files.Store(ctx, adminID, enums.UploadKindLegalDocument, *input.File)
		if err != nil {
			return nil, err
		}
		uploaded = stored.URL
		updates["file_url"] = uploaded
	}

	if err := s.repo.Update(ctx, current.ID, updates); err != nil {
		if uploaded != "" {
			_ = s.files.Remove(ctx, uploaded)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update legal document")
	}
	if uploaded != "" {
		_ = s.files.Remove(ctx, current.FileURL)
	}
	updated, err := s.load(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	return fromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, documentID uuid.UUID) error {
	current, err := s.load(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, current.ID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "legal document not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete legal document")
	}
	_ = s.files.Remove(ctx, current.FileURL)
	return nil
}

func (s *service) list(ctx context.Context, params listDocumentsParams) ([]DocumentDTO, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list legal documents")
	}
	out := make([]DocumentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.LegalDocument, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document id required")
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "legal document not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load legal document")
	}
	return doc, nil
}

func fromModel(m *models.LegalDocument) *DocumentDTO {
	return &DocumentDTO{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		FileURL:        m.FileURL,
		TargetAudience: m.TargetAudience,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
