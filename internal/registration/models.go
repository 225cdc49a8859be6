// Package registration implements the minor registration flow: the pure
// validation rule set and the orchestrator that turns a validated payload into
// parent and athlete accounts plus their consent records.
package registration

import (
	"fmt"
	"strings"
	"time"

	athletemodels "vigorlog/internal/athlete/models"
	consentmodels "vigorlog/internal/consent/models"
)

// MinorRegistrationData is the transient registration input. It is never
// persisted as-is; the orchestrator derives accounts and records from it.
type MinorRegistrationData struct {
	Athlete  AthleteData
	Parent   ParentData
	Consents ConsentChoices
}

// AthleteData carries the athlete sub-record of a registration.
type AthleteData struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	BirthDate time.Time
	Sport     string
}

// ParentData carries the parent sub-record of a registration. Required only
// when the athlete is under 16.
type ParentData struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// ConsentChoices carries the three consent booleans gathered by the form.
type ConsentChoices struct {
	DataProcessing bool
	MedicalData    bool
	ParentAccess   bool
}

// Result is what a successful registration produced.
type Result struct {
	Parent  *athletemodels.Parent
	Athlete *athletemodels.Athlete
	Records []*consentmodels.Record
}

// ValidationError carries every failing rule of a rejected registration so the
// caller can render all of them at once. It is the only error type RegisterMinor
// returns for invalid input, distinct from persistence failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("registration invalid: %s", strings.Join(e.Errors, "; "))
}
