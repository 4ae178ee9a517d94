package enums

import "fmt"

// UploadKind identifies what an uploaded file is used for.
type UploadKind string

const (
	UploadKindINEFront       UploadKind = "ine_front"
	UploadKindINEBack        UploadKind = "ine_back"
	UploadKindPetPhoto       UploadKind = "pet_photo"
	UploadKindVetCertificate UploadKind = "vet_certificate"
	UploadKindLegalDocument  UploadKind = "legal_document"
)

var validUploadKinds = []UploadKind{
	UploadKindINEFront,
	UploadKindINEBack,
	UploadKindPetPhoto,
	UploadKindVetCertificate,
	UploadKindLegalDocument,
}

// String implements fmt.Stringer.
func (u UploadKind) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UploadKind.
func (u UploadKind) IsValid() bool {
	for _, candidate := range validUploadKinds {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUploadKind converts raw input into UploadKind.
func ParseUploadKind(value string) (UploadKind, error) {
	for _, candidate := range validUploadKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload kind %q", value)
}

// MemberUploadable reports whether members may upload this kind directly.
func (u UploadKind) MemberUploadable() bool {
	return u != UploadKindLegalDocument
}
