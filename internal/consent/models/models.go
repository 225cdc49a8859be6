// Package models defines consent records and dual-consent requests.
//
// Records are append-only: once created they are never edited, except that a
// revocation stamps RevokedAt on the same record rather than deleting it.
// Compliance is always derived from the current record set, never cached.
package models

import (
	"time"

	"vigorlog/internal/consent/policy"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

// Type labels what a consent grant covers.
type Type string

const (
	TypeDataProcessing   Type = "data_processing"
	TypeMedicalData      Type = "medical_data"
	TypeParentAccess     Type = "parent_access"
	TypeMarketing        Type = "marketing"
	TypeDualConsentMinor Type = "dual_consent_minor"
)

// IsValid reports whether t is one of the known consent types.
func (t Type) IsValid() bool {
	switch t {
	case TypeDataProcessing, TypeMedicalData, TypeParentAccess, TypeMarketing, TypeDualConsentMinor:
		return true
	}
	return false
}

// RequiredMinorConsents is the fixed set a minor registration must cover.
var RequiredMinorConsents = []Type{TypeDataProcessing, TypeMedicalData, TypeParentAccess}

// Record documents that a specific consent type was granted (or later revoked)
// for a specific subject. ParentID is nil for records the subject granted
// themselves (age 16+). DocumentVersion pins the consent text the grant refers to.
type Record struct {
	ID              id.ConsentID
	SubjectID       id.AthleteID
	ParentID        *id.ParentID
	Type            Type
	Granted         bool
	GrantedAt       time.Time
	DocumentVersion string
	IsForMinor      bool
	MinorAge        int
	LegalBasis      policy.LegalBasis
	RevokedAt       *time.Time
}

// NewRecord builds a consent record, stamping the legal basis and minor fields
// from the subject's age at grant time. This is the only construction path;
// records have no update path besides revocation.
func NewRecord(consentID id.ConsentID, subjectID id.AthleteID, parentID *id.ParentID, consentType Type, granted bool, subjectAge int, documentVersion string, grantedAt time.Time) (*Record, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent ID required")
	}
	if subjectID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "subject ID required")
	}
	if parentID != nil && parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "parent ID must not be nil when set")
	}
	if !consentType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid consent type")
	}
	if grantedAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant time required")
	}
	if documentVersion == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent document version required")
	}

	record := &Record{
		ID:              consentID,
		SubjectID:       subjectID,
		ParentID:        parentID,
		Type:            consentType,
		Granted:         granted,
		GrantedAt:       grantedAt,
		DocumentVersion: documentVersion,
		LegalBasis:      policy.LegalBasisForAge(subjectAge),
	}
	if subjectAge < 18 {
		record.IsForMinor = true
		record.MinorAge = subjectAge
	}
	return record, nil
}

// IsRevoked reports whether the record has been revoked.
func (r *Record) IsRevoked() bool {
	return r.RevokedAt != nil
}

// Satisfies reports whether the record currently satisfies a requirement for
// the given subject and type: granted and not revoked. Revoked records never
// satisfy, regardless of when they were granted.
func (r *Record) Satisfies(subjectID id.AthleteID, consentType Type) bool {
	return r.SubjectID == subjectID && r.Type == consentType && r.Granted && !r.IsRevoked()
}

// MissingRequired returns the required minor consent types not covered by a
// granted, unrevoked record for the subject. Subjects who do not need parental
// consent at the reference time are never missing anything.
func MissingRequired(birthDate time.Time, subjectID id.AthleteID, records []*Record, now time.Time) []Type {
	if !policy.NeedsParentalConsent(birthDate, now) {
		return nil
	}
	var missing []Type
	for _, required := range RequiredMinorConsents {
		satisfied := false
		for _, record := range records {
			if record.Satisfies(subjectID, required) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, required)
		}
	}
	return missing
}

// HasAllRequired is the compliance query dashboards call. Safe to call
// repeatedly; reflects revocations immediately because it re-derives from the
// record set on every call.
func HasAllRequired(birthDate time.Time, subjectID id.AthleteID, records []*Record, now time.Time) bool {
	return len(MissingRequired(birthDate, subjectID, records, now)) == 0
}
