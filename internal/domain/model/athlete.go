package model

import (
	"fmt"
	"strings"
	"time"
)

// Athlete is the identity runs and challenges are keyed by. Staff athletes
// are coaches.
type Athlete struct {
	ID         string
	Username   string
	FirstName  string
	LastName   string
	IsStaff    bool
	DateJoined time.Time
}

// Type reports "coach" for staff and "athlete" otherwise.
func (a Athlete) Type() string {
	if a.IsStaff {
		return AthleteTypeCoach
	}
	return AthleteTypeAthlete
}

const (
	AthleteTypeCoach   = "coach"
	AthleteTypeAthlete = "athlete"
)

// AthleteFilter narrows athlete listings.
type AthleteFilter struct {
	// Type is "", "coach" or "athlete".
	Type string
	// Search matches first or last name, case-insensitive.
	Search string
	Page   Page
}

// Validate rejects unknown type filters.
func (f AthleteFilter) Validate() error {
	switch strings.ToLower(f.Type) {
	case "", AthleteTypeCoach, AthleteTypeAthlete:
		return nil
	default:
		return fmt.Errorf("%w: unknown athlete type %q", ErrValidation, f.Type)
	}
}

// Weight bounds for AthleteInfo, exclusive.
const (
	MinWeight = 0
	MaxWeight = 900
)

// AthleteInfo carries optional profile data for an athlete.
type AthleteInfo struct {
	AthleteID string
	Goals     string
	Weight    *int
}

// Validate checks the weight range when a weight is set.
func (i AthleteInfo) Validate() error {
	if i.Weight != nil && (*i.Weight <= MinWeight || *i.Weight >= MaxWeight) {
		return fmt.Errorf("%w: weight %d out of range (0, 900)", ErrValidation, *i.Weight)
	}
	return nil
}
