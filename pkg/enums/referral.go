package enums

import "fmt"

// CommissionStatus maps to the commission_status enum in Postgres.
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusApproved  CommissionStatus = "approved"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusApproved,
	CommissionStatusPaid,
	CommissionStatusCancelled,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionStatus.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionStatusPending:  {CommissionStatusApproved, CommissionStatusCancelled},
	CommissionStatusApproved: {CommissionStatusPaid, CommissionStatusCancelled},
}

// CanTransitionTo reports whether an admin may move a commission from c to target.
func (c CommissionStatus) CanTransitionTo(target CommissionStatus) bool {
	for _, allowed := range commissionTransitions[c] {
		if allowed == target {
			return true
		}
	}
	return false
}
