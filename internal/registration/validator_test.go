package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateMinorRegistrationValid(t *testing.T) {
	result := ValidateMinorRegistration(validMinorData(14), testNow)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateMinorRegistrationReportsEveryFailure(t *testing.T) {
	data := MinorRegistrationData{
		Athlete: AthleteData{
			Email:     "not-an-email",
			BirthDate: testNow.AddDate(-14, 0, 0),
		},
	}
	result := ValidateMinorRegistration(data, testNow)
	assert.False(t, result.Valid)
	assert.ElementsMatch(t, []string{
		MsgAthleteFirstNameRequired,
		MsgAthleteLastNameRequired,
		MsgAthleteEmailInvalid,
		MsgParentFirstNameRequired,
		MsgParentLastNameRequired,
		MsgParentEmailInvalid,
		MsgDataProcessingRequired,
		MsgMedicalDataRequired,
		MsgParentAccessRequired,
	}, result.Errors)
}

func TestValidateMinorRegistrationSingleMissingConsent(t *testing.T) {
	data := validMinorData(14)
	data.Consents.MedicalData = false

	result := ValidateMinorRegistration(data, testNow)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{MsgMedicalDataRequired}, result.Errors)
}

func TestValidateMinorRegistrationAgeBand(t *testing.T) {
	tests := []struct {
		name    string
		age     int
		wantErr string
	}{
		{"eleven is too young", 11, MsgAthleteTooYoung},
		{"twelve is allowed", 12, ""},
		{"fifteen is allowed", 15, ""},
		{"eighteen is an adult", 18, MsgAthleteIsAdult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMinorRegistration(validMinorData(tt.age), testNow)
			if tt.wantErr == "" {
				assert.True(t, result.Valid)
				return
			}
			assert.False(t, result.Valid)
			assert.Contains(t, result.Errors, tt.wantErr)
		})
	}
}

func TestValidateMinorRegistrationSixteenNeedsNoParent(t *testing.T) {
	// 16-17 pass without parent data or consents: the conditional block is inert.
	data := validMinorData(16)
	data.Parent = ParentData{}
	data.Consents = ConsentChoices{}

	result := ValidateMinorRegistration(data, testNow)
	assert.True(t, result.Valid)

	// One day before the 16th birthday the parent rules still apply.
	almost := validMinorData(16)
	almost.Athlete.BirthDate = almost.Athlete.BirthDate.AddDate(0, 0, 1)
	almost.Parent = ParentData{}
	almost.Consents = ConsentChoices{}
	result = ValidateMinorRegistration(almost, testNow)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, MsgParentFirstNameRequired)
}

func TestValidateMinorRegistrationZeroBirthDate(t *testing.T) {
	data := validMinorData(14)
	data.Athlete.BirthDate = time.Time{}

	result := ValidateMinorRegistration(data, testNow)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, MsgBirthDateRequired)
	// Age and parent rules are skipped without a birth date.
	assert.NotContains(t, result.Errors, MsgAthleteTooYoung)
	assert.NotContains(t, result.Errors, MsgParentFirstNameRequired)
}
