package handler

import (
	"time"

	"vigorlog/internal/registration"
	dErrors "vigorlog/pkg/domain-errors"
)

const birthDateLayout = "2006-01-02"

// RegisterMinorRequest is the payload for POST /registrations/minor. The
// parent and consent blocks are required by the business rules only for
// athletes under 16; the DTO accepts them unconditionally.
type RegisterMinorRequest struct {
	Athlete  AthleteRequest  `json:"athlete" validate:"required"`
	Parent   ParentRequest   `json:"parent"`
	Consents ConsentsRequest `json:"consents"`
}

type AthleteRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	BirthDate string `json:"birth_date" validate:"required"`
	Sport     string `json:"sport"`
}

type ParentRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password" validate:"omitempty,min=8"`
}

type ConsentsRequest struct {
	DataProcessing bool `json:"data_processing"`
	MedicalData    bool `json:"medical_data"`
	ParentAccess   bool `json:"parent_access"`
}

// ToRegistrationData converts the wire payload into the domain input. Only the
// birth date needs parsing; everything else passes through for the rule set to
// judge, so one malformed date does not mask other validation failures.
func (r *RegisterMinorRequest) ToRegistrationData() (registration.MinorRegistrationData, error) {
	birthDate, err := time.Parse(birthDateLayout, r.Athlete.BirthDate)
	if err != nil {
		return registration.MinorRegistrationData{},
			dErrors.New(dErrors.CodeBadRequest, "birth_date must be formatted as YYYY-MM-DD")
	}
	return registration.MinorRegistrationData{
		Athlete: registration.AthleteData{
			FirstName: r.Athlete.FirstName,
			LastName:  r.Athlete.LastName,
			Email:     r.Athlete.Email,
			Password:  r.Athlete.Password,
			BirthDate: birthDate,
			Sport:     r.Athlete.Sport,
		},
		Parent: registration.ParentData{
			FirstName: r.Parent.FirstName,
			LastName:  r.Parent.LastName,
			Email:     r.Parent.Email,
			Phone:     r.Parent.Phone,
			Password:  r.Parent.Password,
		},
		Consents: registration.ConsentChoices{
			DataProcessing: r.Consents.DataProcessing,
			MedicalData:    r.Consents.MedicalData,
			ParentAccess:   r.Consents.ParentAccess,
		},
	}, nil
}
