package enums

import "fmt"

// LegalAudience maps to the legal_audience enum in Postgres.
type LegalAudience string

const (
	LegalAudienceMembers     LegalAudience = "members"
	LegalAudienceAmbassadors LegalAudience = "ambassadors"
	LegalAudienceBoth        LegalAudience = "both"
)

var validLegalAudiences = []LegalAudience{
	LegalAudienceMembers,
	LegalAudienceAmbassadors,
	LegalAudienceBoth,
}

// String implements fmt.Stringer.
func (l LegalAudience) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LegalAudience.
func (l LegalAudience) IsValid() bool {
	for _, candidate := range validLegalAudiences {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLegalAudience converts raw input into LegalAudience.
func ParseLegalAudience(value string) (LegalAudience, error) {
	for _, candidate := range validLegalAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid legal audience %q", value)
}
