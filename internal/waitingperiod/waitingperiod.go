// Package waitingperiod computes a pet's coverage waiting period ("carencia").
package waitingperiod

import (
	"math"
	"time"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/db/models"
)

const day = 24 * time.Hour

// Result is the waiting-period progress for one pet at one instant.
type Result struct {
	TotalDays     int       `json:"total_days"`
	DaysPassed    int       `json:"days_passed"`
	DaysRemaining int       `json:"days_remaining"`
	Percentage    int       `json:"percentage"`
	IsComplete    bool      `json:"is_complete"`
	CompletesAt   time.Time `json:"completes_at"`
}

// Calculate returns the progress of a waiting period of totalDays that started at start.
func Calculate(start, now time.Time, totalDays int) Result {
	if totalDays <= 0 {
		return Result{IsComplete: true, Percentage: 100, CompletesAt: start}
	}

	daysPassed := int(math.Floor(float64(now.Sub(start)) / float64(day)))
	if daysPassed < 0 {
		daysPassed = 0
	}

	percentage := int(math.Round(float64(daysPassed) / float64(totalDays) * 100))
	if percentage > 100 {
		percentage = 100
	}

	remaining := totalDays - daysPassed
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		TotalDays:     totalDays,
		DaysPassed:    daysPassed,
		DaysRemaining: remaining,
		Percentage:    percentage,
		IsComplete:    remaining == 0,
		CompletesAt:   start.Add(time.Duration(totalDays) * day),
	}
}

// Policy picks the waiting period length for a pet.
type Policy struct {
	DefaultDays int
	ReducedDays int
}

// NewPolicy reads the membership policy from config.
func NewPolicy(cfg config.MembershipConfig) Policy {
	return Policy{DefaultDays: cfg.WaitingPeriodDays, ReducedDays: cfg.ReducedWaitingPeriodDays}
}

// DaysFor returns the reduced period when the pet has a national registry id.
func (p Policy) DaysFor(pet models.Pet) int {
	if pet.HasRegistryID() && p.ReducedDays > 0 {
		return p.ReducedDays
	}
	return p.DefaultDays
}

// ForPet evaluates the pet's waiting period at now.
func (p Policy) ForPet(pet models.Pet, now time.Time) Result {
	return Calculate(pet.CreatedAt, now, p.DaysFor(pet))
}
