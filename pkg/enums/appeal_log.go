package enums

import "fmt"

// AppealAuthorType tags each entry of a pet appeal log.
type AppealAuthorType string

const (
	AppealAuthorUserAppeal   AppealAuthorType = "user_appeal"
	AppealAuthorAdminRequest AppealAuthorType = "admin_request"
	AppealAuthorUserUpdate   AppealAuthorType = "user_update"
	AppealAuthorSystem       AppealAuthorType = "system"
)

var validAppealAuthorTypes = []AppealAuthorType{
	AppealAuthorUserAppeal,
	AppealAuthorAdminRequest,
	AppealAuthorUserUpdate,
	AppealAuthorSystem,
}

// String implements fmt.Stringer.
func (a AppealAuthorType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AppealAuthorType.
func (a AppealAuthorType) IsValid() bool {
	for _, candidate := range validAppealAuthorTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAppealAuthorType converts raw input into AppealAuthorType.
func ParseAppealAuthorType(value string) (AppealAuthorType, error) {
	for _, candidate := range validAppealAuthorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid appeal author type %q", value)
}
