package enums

import "fmt"

// AmbassadorStatus maps to the ambassador_status enum in Postgres.
type AmbassadorStatus string

const (
	AmbassadorStatusPending   AmbassadorStatus = "pending"
	AmbassadorStatusApproved  AmbassadorStatus = "approved"
	AmbassadorStatusRejected  AmbassadorStatus = "rejected"
	AmbassadorStatusSuspended AmbassadorStatus = "suspended"
)

var validAmbassadorStatuses = []AmbassadorStatus{
	AmbassadorStatusPending,
	AmbassadorStatusApproved,
	AmbassadorStatusRejected,
	AmbassadorStatusSuspended,
}

// String implements fmt.Stringer.
func (a AmbassadorStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AmbassadorStatus.
func (a AmbassadorStatus) IsValid() bool {
	for _, candidate := range validAmbassadorStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAmbassadorStatus converts raw input into AmbassadorStatus.
func ParseAmbassadorStatus(value string) (AmbassadorStatus, error) {
	for _, candidate := range validAmbassadorStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ambassador status %q", value)
}

var ambassadorAdminTransitions = map[AmbassadorStatus][]AmbassadorStatus{
	AmbassadorStatusPending:   {AmbassadorStatusApproved, AmbassadorStatusRejected},
	AmbassadorStatusApproved:  {AmbassadorStatusSuspended},
	AmbassadorStatusRejected:  {AmbassadorStatusApproved},
	AmbassadorStatusSuspended: {AmbassadorStatusApproved},
}

// IsAdminDecision reports whether an admin may submit this status.
func (a AmbassadorStatus) IsAdminDecision() bool {
	switch a {
	case AmbassadorStatusApproved, AmbassadorStatusRejected, AmbassadorStatusSuspended:
		return true
	}
	return false
}

// RequiresNote reports whether moving to this status needs a rejection reason.
func (a AmbassadorStatus) RequiresNote() bool {
	return a == AmbassadorStatusRejected
}

// CanTransitionTo reports whether an admin may move an ambassador from a to target.
func (a AmbassadorStatus) CanTransitionTo(target AmbassadorStatus) bool {
	for _, allowed := range ambassadorAdminTransitions[a] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IdentityFlag is the value mirrored into the identity provider's
// is-ambassador custom field. Pending has no mirrored value.
func (a AmbassadorStatus) IdentityFlag() (string, bool) {
	switch a {
	case AmbassadorStatusApproved:
		return "true", true
	case AmbassadorStatusRejected, AmbassadorStatusSuspended:
		return "false", true
	}
	return "", false
}

// AvailabilityField names an ambassador column checked for duplicates before submission.
type AvailabilityField string

const (
	AvailabilityFieldCURP  AvailabilityField = "curp"
	AvailabilityFieldEmail AvailabilityField = "email"
	AvailabilityFieldRFC   AvailabilityField = "rfc"
)

var validAvailabilityFields = []AvailabilityField{
	AvailabilityFieldCURP,
	AvailabilityFieldEmail,
	AvailabilityFieldRFC,
}

// String implements fmt.Stringer.
func (a AvailabilityField) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AvailabilityField.
func (a AvailabilityField) IsValid() bool {
	for _, candidate := range validAvailabilityFields {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAvailabilityField converts raw input into AvailabilityField.
func ParseAvailabilityField(value string) (AvailabilityField, error) {
	for _, candidate := range validAvailabilityFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability field %q", value)
}
