package uploads

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/enums"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const megabyte = 1024 * 1024

type objectStore interface {
	Upload(ctx context.Context, object, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, object string) error
	ObjectFromURL(publicURL string) (string, bool)
}

// File is an uploaded file already read into memory.
type File struct {
	FileName string
	Data     []byte
}

// Stored describes a file persisted to object storage.
type Stored struct {
	Kind        enums.UploadKind `json:"kind"`
	URL         string           `json:"url"`
	Object      string           `json:"object"`
	ContentType string           `json:"content_type"`
	SizeBytes   int              `json:"size_bytes"`
}

// Service validates and stores files for members and admins.
type Service interface {
	Store(ctx context.Context, ownerID uuid.UUID, kind enums.UploadKind, file File) (*Stored, error)
	Remove(ctx context.Context, publicURL string) error
}

type service struct {
	store        objectStore
	maxImageSize int
	maxPDFSize   int
}

// NewService builds the upload service with the configured size limits.
func NewService(store objectStore, cfg config.UploadsConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.MaxImageMB <= 0 || cfg.MaxPDFMB <= 0 {
		return nil, fmt.Errorf("upload size limits must be positive")
	}
	return &service{
		store:        store,
		maxImageSize: cfg.MaxImageMB * megabyte,
		maxPDFSize:   cfg.MaxPDFMB * megabyte,
	}, nil
}

func (s *service) Store(ctx context.Context, ownerID uuid.UUID, kind enums.UploadKind, file File) (*Stored, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload owner missing")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid upload kind")
	}
	if len(file.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty").
			WithDetails(map[string]string{"file": "required"})
	}

	found, ok := detect(kind, file.Data)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%s uploads must be %s", kind, acceptedFormats(kind)).
			WithDetails(map[string]string{"file": "unsupported file type"})
	}

	limit := s.maxImageSize
	if found.isPDF() {
		limit = s.maxPDFSize
	}
	if len(file.Data) > limit {
		return nil, pkgerrors.Newf(pkgerrors.CodeTooLarge, "file exceeds %d MB", limit/megabyte)
	}

	object := buildObjectKey(kind, ownerID, file.FileName, found.ext)
	url, err := s.store.Upload(ctx, object, found.mime, file.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload")
	}

	return &Stored{
		Kind:        kind,
		URL:         url,
		Object:      object,
		ContentType: found.mime,
		SizeBytes:   len(file.Data),
	}, nil
}

// Remove deletes a previously stored file. URLs outside the bucket are ignored.
func (s *service) Remove(ctx context.Context, publicURL string) error {
	object, ok := s.store.ObjectFromURL(publicURL)
	if !ok {
		return nil
	}
	if err := s.store.Delete(ctx, object); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete upload")
	}
	return nil
}

// buildObjectKey yields "<kind>/<owner>/<uuid>[-<clean name>]<ext>".
func buildObjectKey(kind enums.UploadKind, ownerID uuid.UUID, fileName, ext string) string {
	id := uuid.NewString()
	clean := sanitizeFileName(fileName)
	if clean == "" {
		clean = id + ext
	} else {
		clean = id + "-" + strings.TrimSuffix(clean, path.Ext(clean)) + ext
	}
	return fmt.Sprintf("%s/%s/%s", kind, ownerID.String(), clean)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_'):
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Trim(b.String(), "-_.")
}
