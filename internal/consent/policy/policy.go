// Package policy implements the age-based consent rules for data processing of
// minors. The single legal threshold is the German transposition of GDPR
// Art. 8 (BDSG §8): subjects under 16 need parental consent, 16 and over
// consent for themselves.
package policy

import (
	"time"

	athletemodels "vigorlog/internal/athlete/models"
	"vigorlog/pkg/domain"
)

// ConsentAge is the age from which a subject can consent for themselves.
// The boundary is strict: exactly 16 does NOT need parental consent.
const ConsentAge = 16

// LegalBasis is the regulatory justification recorded against a consent grant.
type LegalBasis string

const (
	// LegalBasisArt6 applies to subjects aged 16 or over (own consent).
	LegalBasisArt6 LegalBasis = "art6_1a_gdpr"
	// LegalBasisArt8 applies to subjects under 16 (parental consent).
	LegalBasisArt8 LegalBasis = "art8_gdpr_parental_consent"
)

// NonCompliantReason is the fixed explanation attached to non-compliant reports.
const NonCompliantReason = "parental consent requirements under GDPR Art. 8 / BDSG §8 are not satisfied"

// Required actions accumulated by EvaluateMinorCompliance. Each names exactly
// one gap so dashboards can render them individually.
const (
	ActionSetNeedsConsentFlag    = "set the needsParentalConsent flag for the athlete"
	ActionObtainParentalConsent  = "obtain parental consent for the athlete"
	ActionLinkParent             = "link at least one parent or guardian to the athlete"
	ActionParentDataConsent      = "parent must acknowledge data processing consent"
	ActionParentMedicalConsent   = "parent must acknowledge medical data consent"
)

// NeedsParentalConsent reports whether the subject with the given birth date
// needs parental consent at the reference time. True iff age < 16.
func NeedsParentalConsent(birthDate, now time.Time) bool {
	return domain.CalculateAge(birthDate, now) < ConsentAge
}

// LegalBasisForAge returns the legal basis applicable at the given age.
func LegalBasisForAge(age int) LegalBasis {
	if age < ConsentAge {
		return LegalBasisArt8
	}
	return LegalBasisArt6
}

// ComplianceReport is the advisory result of a compliance evaluation. Callers
// decide whether to block or merely warn; nothing here is an error.
type ComplianceReport struct {
	Compliant       bool
	Reason          string
	RequiredActions []string
}

// EvaluateMinorCompliance checks an athlete (and optionally their parent)
// against the Art. 8 requirements. Subjects aged 16 or over are unconditionally
// compliant regardless of parent presence or flags. For minors, every gap is
// accumulated so the caller sees the full list, not just the first.
func EvaluateMinorCompliance(athlete *athletemodels.Athlete, parent *athletemodels.Parent, now time.Time) ComplianceReport {
	if !NeedsParentalConsent(athlete.BirthDate, now) {
		return ComplianceReport{Compliant: true, RequiredActions: []string{}}
	}

	actions := []string{}
	if !athlete.NeedsParentalConsent {
		actions = append(actions, ActionSetNeedsConsentFlag)
	}
	if !athlete.HasParentalConsent {
		actions = append(actions, ActionObtainParentalConsent)
	}
	if !athlete.HasLinkedParent() {
		actions = append(actions, ActionLinkParent)
	}
	if parent == nil || !parent.HasDataConsent {
		actions = append(actions, ActionParentDataConsent)
	}
	if parent == nil || !parent.HasMedicalConsent {
		actions = append(actions, ActionParentMedicalConsent)
	}

	if len(actions) == 0 {
		return ComplianceReport{Compliant: true, RequiredActions: actions}
	}
	return ComplianceReport{
		Compliant:       false,
		Reason:          NonCompliantReason,
		RequiredActions: actions,
	}
}
