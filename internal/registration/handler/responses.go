package handler

import (
	"time"

	"vigorlog/internal/registration"
)

// ValidationErrorResponse carries every failing rule of a rejected registration.
type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

// RegisterMinorResponse is the wire form of a completed registration.
type RegisterMinorResponse struct {
	Athlete AthleteResponse   `json:"athlete"`
	Parent  *ParentResponse   `json:"parent,omitempty"`
	Records []ConsentResponse `json:"consent_records"`
}

type AthleteResponse struct {
	ID                   string     `json:"id"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Email                string     `json:"email"`
	Sport                string     `json:"sport,omitempty"`
	NeedsParentalConsent bool       `json:"needs_parental_consent"`
	HasParentalConsent   bool       `json:"has_parental_consent"`
	ParentalConsentDate  *time.Time `json:"parental_consent_date,omitempty"`
}

type ParentResponse struct {
	ID                string `json:"id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	HasDataConsent    bool   `json:"has_data_consent"`
	HasMedicalConsent bool   `json:"has_medical_consent"`
}

type ConsentResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	LegalBasis      string    `json:"legal_basis"`
	DocumentVersion string    `json:"document_version"`
	GrantedAt       time.Time `json:"granted_at"`
}

func toRegisterMinorResponse(result *registration.Result) RegisterMinorResponse {
	response := RegisterMinorResponse{
		Athlete: AthleteResponse{
			ID:                   result.Athlete.ID.String(),
			FirstName:            result.Athlete.FirstName,
			LastName:             result.Athlete.LastName,
			Email:                result.Athlete.Email,
			Sport:                result.Athlete.Sport,
			NeedsParentalConsent: result.Athlete.NeedsParentalConsent,
			HasParentalConsent:   result.Athlete.HasParentalConsent,
			ParentalConsentDate:  result.Athlete.ParentalConsentDate,
		},
		Records: make([]ConsentResponse, 0, len(result.Records)),
	}
	if result.Parent != nil {
		response.Parent = &ParentResponse{
			ID:                result.Parent.ID.String(),
			FirstName:         result.Parent.FirstName,
			LastName:          result.Parent.LastName,
			Email:             result.Parent.Email,
			HasDataConsent:    result.Parent.HasDataConsent,
			HasMedicalConsent: result.Parent.HasMedicalConsent,
		}
	}
	for _, record := range result.Records {
		response.Records = append(response.Records, ConsentResponse{
			ID:              record.ID.String(),
			Type:            string(record.Type),
			LegalBasis:      string(record.LegalBasis),
			DocumentVersion: record.DocumentVersion,
			GrantedAt:       record.GrantedAt,
		})
	}
	return response
}
