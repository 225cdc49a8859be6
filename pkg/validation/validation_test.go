package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vigorlog/pkg/domain-errors"
)

type sampleRequest struct {
	AthleteID string `validate:"required,uuid"`
	Email     string `validate:"omitempty,email"`
	Note      string `validate:"omitempty,notblank"`
}

func TestValidateAccepts(t *testing.T) {
	err := Validate(&sampleRequest{
		AthleteID: "11111111-1111-1111-1111-111111111111",
		Email:     "max@example.com",
		Note:      "fine",
	})
	require.NoError(t, err)
}

func TestValidateReportsFirstFailure(t *testing.T) {
	err := Validate(&sampleRequest{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "athlete_id is required")

	err = Validate(&sampleRequest{AthleteID: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "athlete_id must be a valid uuid")

	err = Validate(&sampleRequest{AthleteID: "11111111-1111-1111-1111-111111111111", Email: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email")
}

func TestNotblankRejectsWhitespace(t *testing.T) {
	err := Validate(&sampleRequest{
		AthleteID: "11111111-1111-1111-1111-111111111111",
		Note:      "   ",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "note must not be blank")
}
