package enums

import "fmt"

// PetStatus maps to the pet_status enum in Postgres.
type PetStatus string

const (
	PetStatusPending        PetStatus = "pending"
	PetStatusApproved       PetStatus = "approved"
	PetStatusRejected       PetStatus = "rejected"
	PetStatusActionRequired PetStatus = "action_required"
	PetStatusAppealed       PetStatus = "appealed"
)

var validPetStatuses = []PetStatus{
	PetStatusPending,
	PetStatusApproved,
	PetStatusRejected,
	PetStatusActionRequired,
	PetStatusAppealed,
}

// String implements fmt.Stringer.
func (p PetStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PetStatus.
func (p PetStatus) IsValid() bool {
	for _, candidate := range validPetStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePetStatus converts raw input into PetStatus.
func ParsePetStatus(value string) (PetStatus, error) {
	for _, candidate := range validPetStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet status %q", value)
}

var petAdminTransitions = map[PetStatus][]PetStatus{
	PetStatusPending:        {PetStatusApproved, PetStatusRejected, PetStatusActionRequired},
	PetStatusAppealed:       {PetStatusApproved, PetStatusRejected, PetStatusActionRequired},
	PetStatusActionRequired: {PetStatusApproved, PetStatusRejected, PetStatusActionRequired},
	PetStatusRejected:       {PetStatusApproved, PetStatusActionRequired},
	PetStatusApproved:       {PetStatusRejected, PetStatusActionRequired},
}

// IsAdminDecision reports whether an admin may submit this status as a review outcome.
func (p PetStatus) IsAdminDecision() bool {
	switch p {
	case PetStatusApproved, PetStatusRejected, PetStatusActionRequired:
		return true
	}
	return false
}

// RequiresNote reports whether moving to this status needs admin notes.
func (p PetStatus) RequiresNote() bool {
	return p == PetStatusRejected || p == PetStatusActionRequired
}

// CanTransitionTo reports whether an admin may move a pet from p to target.
func (p PetStatus) CanTransitionTo(target PetStatus) bool {
	for _, allowed := range petAdminTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

// BreedSize maps to the breed_size enum in Postgres.
type BreedSize string

const (
	BreedSizeSmall  BreedSize = "small"
	BreedSizeMedium BreedSize = "medium"
	BreedSizeLarge  BreedSize = "large"
	BreedSizeGiant  BreedSize = "giant"
)

var validBreedSizes = []BreedSize{
	BreedSizeSmall,
	BreedSizeMedium,
	BreedSizeLarge,
	BreedSizeGiant,
}

// String implements fmt.Stringer.
func (b BreedSize) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BreedSize.
func (b BreedSize) IsValid() bool {
	for _, candidate := range validBreedSizes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBreedSize converts raw input into BreedSize.
func ParseBreedSize(value string) (BreedSize, error) {
	for _, candidate := range validBreedSizes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid breed size %q", value)
}

// PetSpecies maps to the pet_species enum in Postgres.
type PetSpecies string

const (
	PetSpeciesDog PetSpecies = "dog"
	PetSpeciesCat PetSpecies = "cat"
)

var validPetSpecieses = []PetSpecies{
	PetSpeciesDog,
	PetSpeciesCat,
}

// String implements fmt.Stringer.
func (p PetSpecies) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PetSpecies.
func (p PetSpecies) IsValid() bool {
	for _, candidate := range validPetSpecieses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePetSpecies converts raw input into PetSpecies.
func ParsePetSpecies(value string) (PetSpecies, error) {
	for _, candidate := range validPetSpecieses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pet species %q", value)
}
