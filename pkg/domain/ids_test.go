package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigorlog/pkg/domain-errors"
)

func TestParseAthleteIDRoundTrip(t *testing.T) {
	original := NewAthleteID()
	parsed, err := ParseAthleteID(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	_, err := ParseParentID("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseConsentID("not-a-uuid")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIsNil(t *testing.T) {
	assert.True(t, AthleteID{}.IsNil())
	assert.False(t, NewAthleteID().IsNil())
	assert.True(t, RequestID{}.IsNil())
	assert.False(t, NewRequestID().IsNil())
}
