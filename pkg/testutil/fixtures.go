package testutil

import (
	"time"

	"github.com/google/uuid"

	athletemodels "vigorlog/internal/athlete/models"
	consentmodels "vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	id "vigorlog/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	AthleteID1 id.AthleteID
	AthleteID2 id.AthleteID
	ParentID1  id.ParentID
	ParentID2  id.ParentID
	ConsentID1 id.ConsentID
	RequestID1 id.RequestID
}{
	AthleteID1: id.AthleteID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	AthleteID2: id.AthleteID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	ParentID1:  id.ParentID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	ParentID2:  id.ParentID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	ConsentID1: id.ConsentID(uuid.MustParse("cccc0000-0000-0000-0000-000000000001")),
	RequestID1: id.RequestID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
}

// AthleteBuilder provides a fluent interface for building test athletes.
type AthleteBuilder struct {
	athlete *athletemodels.Athlete
}

// NewAthleteBuilder creates an AthleteBuilder with sensible defaults: a
// 14-year-old who needs parental consent but has not obtained it yet.
func NewAthleteBuilder() *AthleteBuilder {
	now := time.Now()
	return &AthleteBuilder{
		athlete: &athletemodels.Athlete{
			ID:                   id.AthleteID(uuid.New()),
			FirstName:            "Test",
			LastName:             "Athlete",
			Email:                "athlete@example.com",
			BirthDate:            now.AddDate(-14, 0, 0),
			Sport:                "football",
			NeedsParentalConsent: true,
			CreatedAt:            now,
		},
	}
}

func (b *AthleteBuilder) WithID(athleteID id.AthleteID) *AthleteBuilder {
	b.athlete.ID = athleteID
	return b
}

func (b *AthleteBuilder) WithEmail(email string) *AthleteBuilder {
	b.athlete.Email = email
	return b
}

func (b *AthleteBuilder) WithName(firstName, lastName string) *AthleteBuilder {
	b.athlete.FirstName = firstName
	b.athlete.LastName = lastName
	return b
}

// WithAge sets the birth date so the athlete is exactly the given age today.
func (b *AthleteBuilder) WithAge(age int) *AthleteBuilder {
	return b.WithAgeAt(age, time.Now())
}

// WithAgeAt sets the birth date so the athlete is exactly the given age at the
// reference time. Use with a fixed clock so ages stay deterministic.
func (b *AthleteBuilder) WithAgeAt(age int, now time.Time) *AthleteBuilder {
	b.athlete.BirthDate = now.AddDate(-age, 0, 0)
	b.athlete.NeedsParentalConsent = age < policy.ConsentAge
	return b
}

func (b *AthleteBuilder) WithBirthDate(birthDate time.Time) *AthleteBuilder {
	b.athlete.BirthDate = birthDate
	return b
}

// WithParentalConsent links the parent and marks consent as obtained.
func (b *AthleteBuilder) WithParentalConsent(parentID id.ParentID, at time.Time) *AthleteBuilder {
	b.athlete.ParentIDs = append(b.athlete.ParentIDs, parentID)
	b.athlete.HasParentalConsent = true
	b.athlete.ParentalConsentDate = &at
	b.athlete.ParentalConsentBy = &parentID
	return b
}

func (b *AthleteBuilder) WithParent(parentID id.ParentID) *AthleteBuilder {
	b.athlete.ParentIDs = append(b.athlete.ParentIDs, parentID)
	return b
}

func (b *AthleteBuilder) Build() *athletemodels.Athlete {
	return b.athlete
}

// ParentBuilder provides a fluent interface for building test parents.
type ParentBuilder struct {
	parent *athletemodels.Parent
}

// NewParentBuilder creates a ParentBuilder with sensible defaults: both
// acknowledgement flags set, no children linked.
func NewParentBuilder() *ParentBuilder {
	return &ParentBuilder{
		parent: &athletemodels.Parent{
			ID:                id.ParentID(uuid.New()),
			FirstName:         "Test",
			LastName:          "Parent",
			Email:             "parent@example.com",
			HasDataConsent:    true,
			HasMedicalConsent: true,
			CreatedAt:         time.Now(),
		},
	}
}

func (b *ParentBuilder) WithID(parentID id.ParentID) *ParentBuilder {
	b.parent.ID = parentID
	return b
}

func (b *ParentBuilder) WithEmail(email string) *ParentBuilder {
	b.parent.Email = email
	return b
}

// WithChild links the athlete and authorizes the parent to consent for them.
func (b *ParentBuilder) WithChild(athleteID id.AthleteID) *ParentBuilder {
	b.parent.ChildrenIDs = append(b.parent.ChildrenIDs, athleteID)
	b.parent.CanGiveConsentFor = append(b.parent.CanGiveConsentFor, athleteID)
	return b
}

func (b *ParentBuilder) WithoutAcknowledgements() *ParentBuilder {
	b.parent.HasDataConsent = false
	b.parent.HasMedicalConsent = false
	return b
}

func (b *ParentBuilder) Build() *athletemodels.Parent {
	return b.parent
}

// RecordBuilder provides a fluent interface for building test consent records.
type RecordBuilder struct {
	record *consentmodels.Record
}

// NewRecordBuilder creates a RecordBuilder with sensible defaults: a granted
// parental medical-data consent for a 14-year-old.
func NewRecordBuilder() *RecordBuilder {
	parentID := TestIDs.ParentID1
	return &RecordBuilder{
		record: &consentmodels.Record{
			ID:              id.ConsentID(uuid.New()),
			SubjectID:       TestIDs.AthleteID1,
			ParentID:        &parentID,
			Type:            consentmodels.TypeMedicalData,
			Granted:         true,
			GrantedAt:       time.Now(),
			DocumentVersion: "2026-01",
			IsForMinor:      true,
			MinorAge:        14,
			LegalBasis:      policy.LegalBasisArt8,
		},
	}
}

func (b *RecordBuilder) WithID(consentID id.ConsentID) *RecordBuilder {
	b.record.ID = consentID
	return b
}

func (b *RecordBuilder) WithSubject(subjectID id.AthleteID) *RecordBuilder {
	b.record.SubjectID = subjectID
	return b
}

func (b *RecordBuilder) WithType(consentType consentmodels.Type) *RecordBuilder {
	b.record.Type = consentType
	return b
}

// SelfConsented drops the parent and switches the legal basis to Art. 6.
func (b *RecordBuilder) SelfConsented(age int) *RecordBuilder {
	b.record.ParentID = nil
	b.record.LegalBasis = policy.LegalBasisForAge(age)
	b.record.IsForMinor = age < 18
	b.record.MinorAge = 0
	if b.record.IsForMinor {
		b.record.MinorAge = age
	}
	return b
}

func (b *RecordBuilder) Revoked(at time.Time) *RecordBuilder {
	b.record.RevokedAt = &at
	return b
}

func (b *RecordBuilder) Build() *consentmodels.Record {
	return b.record
}

// Quick helper functions for simple test cases

// NewTestAthlete creates a minor athlete linked to the given parent.
func NewTestAthlete(athleteID id.AthleteID, parentID id.ParentID) *athletemodels.Athlete {
	return NewAthleteBuilder().
		WithID(athleteID).
		WithParent(parentID).
		Build()
}

// NewTestParent creates a parent authorized for the given athlete.
func NewTestParent(parentID id.ParentID, athleteID id.AthleteID) *athletemodels.Parent {
	return NewParentBuilder().
		WithID(parentID).
		WithChild(athleteID).
		Build()
}
