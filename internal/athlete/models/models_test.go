package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

func TestNewAthleteInvariants(t *testing.T) {
	birthDate := testNow.AddDate(-14, 0, 0)

	_, err := NewAthlete(id.AthleteID{}, "Max", "Mustermann", "max@example.com", birthDate, testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewAthlete(id.NewAthleteID(), "Max", "Mustermann", "max@example.com", time.Time{}, testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	athlete, err := NewAthlete(id.NewAthleteID(), "Max", "Mustermann", "max@example.com", birthDate, testNow)
	require.NoError(t, err)
	assert.False(t, athlete.NeedsParentalConsent, "consent flags are set by registration, not the factory")
	assert.False(t, athlete.HasLinkedParent())
}

func TestNewParentInvariants(t *testing.T) {
	_, err := NewParent(id.ParentID{}, "Maria", "Mustermann", "maria@example.com", testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	parent, err := NewParent(id.NewParentID(), "Maria", "Mustermann", "maria@example.com", testNow)
	require.NoError(t, err)
	assert.False(t, parent.HasDataConsent)
	assert.False(t, parent.HasMedicalConsent)
}

func TestParentCanConsentFor(t *testing.T) {
	parent, err := NewParent(id.NewParentID(), "Maria", "Mustermann", "maria@example.com", testNow)
	require.NoError(t, err)

	childID := id.NewAthleteID()
	assert.False(t, parent.CanConsentFor(childID))

	// A linked child is not automatically an authorized one.
	parent.ChildrenIDs = append(parent.ChildrenIDs, childID)
	assert.False(t, parent.CanConsentFor(childID))

	parent.CanGiveConsentFor = append(parent.CanGiveConsentFor, childID)
	assert.True(t, parent.CanConsentFor(childID))
	assert.False(t, parent.CanConsentFor(id.NewAthleteID()))
}
