package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigorlog/internal/consent/policy"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func TestNewRecordStampsMinorFields(t *testing.T) {
	parentID := id.NewParentID()
	record, err := NewRecord(id.NewConsentID(), id.NewAthleteID(), &parentID,
		TypeMedicalData, true, 14, "2026-01", testNow)
	require.NoError(t, err)

	assert.Equal(t, policy.LegalBasisArt8, record.LegalBasis)
	assert.True(t, record.IsForMinor)
	assert.Equal(t, 14, record.MinorAge)
	assert.False(t, record.IsRevoked())
}

func TestNewRecordSeventeenIsMinorWithOwnConsent(t *testing.T) {
	record, err := NewRecord(id.NewConsentID(), id.NewAthleteID(), nil,
		TypeDataProcessing, true, 17, "2026-01", testNow)
	require.NoError(t, err)

	assert.Equal(t, policy.LegalBasisArt6, record.LegalBasis)
	assert.True(t, record.IsForMinor, "17 is still a minor even when self-consenting")
	assert.Equal(t, 17, record.MinorAge)
	assert.Nil(t, record.ParentID)
}

func TestNewRecordAdult(t *testing.T) {
	record, err := NewRecord(id.NewConsentID(), id.NewAthleteID(), nil,
		TypeMarketing, true, 21, "2026-01", testNow)
	require.NoError(t, err)
	assert.False(t, record.IsForMinor)
	assert.Zero(t, record.MinorAge)
}

func TestNewRecordInvariants(t *testing.T) {
	subjectID := id.NewAthleteID()
	nilParent := id.ParentID{}

	tests := []struct {
		name string
		fn   func() (*Record, error)
	}{
		{"nil consent ID", func() (*Record, error) {
			return NewRecord(id.ConsentID{}, subjectID, nil, TypeMedicalData, true, 14, "2026-01", testNow)
		}},
		{"nil subject ID", func() (*Record, error) {
			return NewRecord(id.NewConsentID(), id.AthleteID{}, nil, TypeMedicalData, true, 14, "2026-01", testNow)
		}},
		{"nil parent pointer value", func() (*Record, error) {
			return NewRecord(id.NewConsentID(), subjectID, &nilParent, TypeMedicalData, true, 14, "2026-01", testNow)
		}},
		{"unknown type", func() (*Record, error) {
			return NewRecord(id.NewConsentID(), subjectID, nil, Type("telemetry"), true, 14, "2026-01", testNow)
		}},
		{"zero grant time", func() (*Record, error) {
			return NewRecord(id.NewConsentID(), subjectID, nil, TypeMedicalData, true, 14, "2026-01", time.Time{})
		}},
		{"empty document version", func() (*Record, error) {
			return NewRecord(id.NewConsentID(), subjectID, nil, TypeMedicalData, true, 14, "", testNow)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestSatisfies(t *testing.T) {
	subjectID := id.NewAthleteID()
	record, err := NewRecord(id.NewConsentID(), subjectID, nil, TypeMedicalData, true, 17, "2026-01", testNow)
	require.NoError(t, err)

	assert.True(t, record.Satisfies(subjectID, TypeMedicalData))
	assert.False(t, record.Satisfies(subjectID, TypeMarketing))
	assert.False(t, record.Satisfies(id.NewAthleteID(), TypeMedicalData))

	revokedAt := testNow.Add(time.Hour)
	record.RevokedAt = &revokedAt
	assert.False(t, record.Satisfies(subjectID, TypeMedicalData), "revoked records never satisfy")
}

func TestMissingRequired(t *testing.T) {
	subjectID := id.NewAthleteID()
	minorBirth := testNow.AddDate(-14, 0, 0)

	// No records: everything is missing.
	missing := MissingRequired(minorBirth, subjectID, nil, testNow)
	assert.Equal(t, RequiredMinorConsents, missing)

	var records []*Record
	for _, consentType := range RequiredMinorConsents {
		record, err := NewRecord(id.NewConsentID(), subjectID, nil, consentType, true, 14, "2026-01", testNow)
		require.NoError(t, err)
		records = append(records, record)
	}
	assert.Empty(t, MissingRequired(minorBirth, subjectID, records, testNow))
	assert.True(t, HasAllRequired(minorBirth, subjectID, records, testNow))

	// Revoking one flips the result on the next evaluation.
	revokedAt := testNow.Add(time.Hour)
	records[1].RevokedAt = &revokedAt
	missing = MissingRequired(minorBirth, subjectID, records, testNow)
	assert.Equal(t, []Type{records[1].Type}, missing)
	assert.False(t, HasAllRequired(minorBirth, subjectID, records, testNow))
}

func TestMissingRequiredNotAMinor(t *testing.T) {
	subjectID := id.NewAthleteID()
	// 16 and over never have required minor consents.
	assert.Empty(t, MissingRequired(testNow.AddDate(-16, 0, 0), subjectID, nil, testNow))
	assert.True(t, HasAllRequired(testNow.AddDate(-16, 0, 0), subjectID, nil, testNow))
}

func TestMissingRequiredAgesOut(t *testing.T) {
	subjectID := id.NewAthleteID()
	birthDate := testNow.AddDate(-15, -11, 0)

	// Today: still 15, everything missing.
	assert.Len(t, MissingRequired(birthDate, subjectID, nil, testNow), 3)
	// Two months later the athlete turned 16 and the requirement vanishes.
	assert.Empty(t, MissingRequired(birthDate, subjectID, nil, testNow.AddDate(0, 2, 0)))
}
