package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

// UploadedFile is a multipart part read fully into memory.
type UploadedFile struct {
	Field    string
	FileName string
	Data     []byte
}

// ParseMultipart bounds the request body to maxBytes and parses the form.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodeTooLarge, err, "upload exceeds size limit").
				WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormValue returns a trimmed multipart value.
func FormValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

// OptionalFile returns nil when the field was not supplied.
func OptionalFile(r *http.Request, field string) (*UploadedFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file field").
			WithDetails(map[string]any{"field": field})
	}
	defer file.Close()
	return readPart(field, header, file)
}

// RequiredFile fails validation when the field is missing.
func RequiredFile(r *http.Request, field string) (*UploadedFile, error) {
	f, err := OptionalFile(r, field)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
			WithDetails(map[string]string{field: "is required"})
	}
	return f, nil
}

func readPart(field string, header *multipart.FileHeader, file multipart.File) (*UploadedFile, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading upload failed")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty").
			WithDetails(map[string]string{field: "is empty"})
	}
	return &UploadedFile{Field: field, FileName: header.Filename, Data: data}, nil
}
