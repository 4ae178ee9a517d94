package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPetTransitionTable(t *testing.T) {
	allowed := map[PetStatus]map[PetStatus]bool{
		PetStatusPending:        {PetStatusApproved: true, PetStatusRejected: true, PetStatusActionRequired: true},
		PetStatusAppealed:       {PetStatusApproved: true, PetStatusRejected: true, PetStatusActionRequired: true},
		PetStatusActionRequired: {PetStatusApproved: true, PetStatusRejected: true, PetStatusActionRequired: true},
		PetStatusRejected:       {PetStatusApproved: true, PetStatusActionRequired: true},
		PetStatusApproved:       {PetStatusRejected: true, PetStatusActionRequired: true},
	}
	for _, from := range validPetStatuses {
		for _, to := range validPetStatuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestPetDecisionsAndNotes(t *testing.T) {
	assert.False(t, PetStatusPending.IsAdminDecision())
	assert.False(t, PetStatusAppealed.IsAdminDecision())
	assert.True(t, PetStatusActionRequired.IsAdminDecision())

	assert.True(t, PetStatusRejected.RequiresNote())
	assert.True(t, PetStatusActionRequired.RequiresNote())
	assert.False(t, PetStatusApproved.RequiresNote())
}

func TestAmbassadorTransitionTable(t *testing.T) {
	allowed := map[AmbassadorStatus]map[AmbassadorStatus]bool{
		AmbassadorStatusPending:   {AmbassadorStatusApproved: true, AmbassadorStatusRejected: true},
		AmbassadorStatusApproved:  {AmbassadorStatusSuspended: true},
		AmbassadorStatusRejected:  {AmbassadorStatusApproved: true},
		AmbassadorStatusSuspended: {AmbassadorStatusApproved: true},
	}
	statuses := []AmbassadorStatus{AmbassadorStatusPending, AmbassadorStatusApproved, AmbassadorStatusRejected, AmbassadorStatusSuspended}
	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestAmbassadorIdentityFlag(t *testing.T) {
	cases := map[AmbassadorStatus]string{
		AmbassadorStatusApproved:  "true",
		AmbassadorStatusRejected:  "false",
		AmbassadorStatusSuspended: "false",
	}
	for status, want := range cases {
		got, ok := status.IdentityFlag()
		require.True(t, ok, status)
		assert.Equal(t, want, got, status)
	}
	_, ok := AmbassadorStatusPending.IdentityFlag()
	assert.False(t, ok)
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	_, err := ParsePetStatus("archived")
	assert.Error(t, err)

	status, err := ParseAmbassadorStatus("suspended")
	require.NoError(t, err)
	assert.Equal(t, AmbassadorStatusSuspended, status)
}
