package registration

import (
	"strings"
	"time"

	"vigorlog/internal/consent/policy"
	"vigorlog/pkg/domain"
)

// Age bounds for this flow. Younger registrants are rejected outright; adults
// use the standard registration path. Ages 16-17 pass validation here even
// though they need no parental consent: for them the parent and consent rules
// below are inert, matching the product's demo scenarios.
const (
	MinRegistrationAge = 12
	AdultAge           = 18
)

// Validation messages, one per rule. Tests and API consumers rely on these
// being distinct per failing field.
const (
	MsgAthleteFirstNameRequired = "athlete first name is required"
	MsgAthleteLastNameRequired  = "athlete last name is required"
	MsgAthleteEmailInvalid      = "athlete email address is invalid"
	MsgBirthDateRequired        = "athlete birth date is required"
	MsgAthleteTooYoung          = "athletes must be at least 12 years old"
	MsgAthleteIsAdult           = "athletes aged 18 or older must use the standard registration"
	MsgParentFirstNameRequired  = "parent first name is required"
	MsgParentLastNameRequired   = "parent last name is required"
	MsgParentEmailInvalid       = "parent email address is invalid"
	MsgDataProcessingRequired   = "data processing consent must be granted"
	MsgMedicalDataRequired      = "medical data consent must be granted"
	MsgParentAccessRequired     = "parent access consent must be granted"
)

// ValidationResult is the pass/fail outcome of a registration validation.
// Valid iff Errors is empty.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateMinorRegistration runs every rule and reports every failure, never
// just the first. Pure and side-effect free; this is the single gate the
// orchestrator calls before creating any records.
//
// The email rule is deliberately a bare "@" containment check, matching the
// product's permissiveness; stricter validation belongs to the transport DTOs.
func ValidateMinorRegistration(data MinorRegistrationData, now time.Time) ValidationResult {
	var errs []string

	if strings.TrimSpace(data.Athlete.FirstName) == "" {
		errs = append(errs, MsgAthleteFirstNameRequired)
	}
	if strings.TrimSpace(data.Athlete.LastName) == "" {
		errs = append(errs, MsgAthleteLastNameRequired)
	}
	if !strings.Contains(data.Athlete.Email, "@") {
		errs = append(errs, MsgAthleteEmailInvalid)
	}

	if data.Athlete.BirthDate.IsZero() {
		errs = append(errs, MsgBirthDateRequired)
	} else {
		age := domain.CalculateAge(data.Athlete.BirthDate, now)
		if age < MinRegistrationAge {
			errs = append(errs, MsgAthleteTooYoung)
		}
		if age >= AdultAge {
			errs = append(errs, MsgAthleteIsAdult)
		}

		// Parent identity and all three consents are required if and only if
		// the athlete is young enough to need parental consent.
		if policy.NeedsParentalConsent(data.Athlete.BirthDate, now) {
			if strings.TrimSpace(data.Parent.FirstName) == "" {
				errs = append(errs, MsgParentFirstNameRequired)
			}
			if strings.TrimSpace(data.Parent.LastName) == "" {
				errs = append(errs, MsgParentLastNameRequired)
			}
			if !strings.Contains(data.Parent.Email, "@") {
				errs = append(errs, MsgParentEmailInvalid)
			}
			if !data.Consents.DataProcessing {
				errs = append(errs, MsgDataProcessingRequired)
			}
			if !data.Consents.MedicalData {
				errs = append(errs, MsgMedicalDataRequired)
			}
			if !data.Consents.ParentAccess {
				errs = append(errs, MsgParentAccessRequired)
			}
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
