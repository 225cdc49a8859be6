package handler

import (
	"time"

	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/service"
)

// RecordResponse is the wire form of a consent record.
type RecordResponse struct {
	ID              string     `json:"id"`
	SubjectID       string     `json:"subject_id"`
	ParentID        string     `json:"parent_id,omitempty"`
	Type            string     `json:"type"`
	Granted         bool       `json:"granted"`
	GrantedAt       time.Time  `json:"granted_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	DocumentVersion string     `json:"document_version"`
	IsForMinor      bool       `json:"is_for_minor"`
	MinorAge        int        `json:"minor_age,omitempty"`
	LegalBasis      string     `json:"legal_basis"`
}

// RequestResponse is the wire form of a dual-consent request. Status is the
// effective status at response time, never a stale stored value.
type RequestResponse struct {
	ID                string    `json:"id"`
	AthleteID         string    `json:"athlete_id"`
	ParentID          string    `json:"parent_id"`
	RequiredConsents  []string  `json:"required_consents"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	NotificationsSent int       `json:"notifications_sent"`
}

// ComplianceResponse is the wire form of a compliance check result.
type ComplianceResponse struct {
	Compliant       bool     `json:"compliant"`
	Reason          string   `json:"reason,omitempty"`
	RequiredActions []string `json:"required_actions,omitempty"`
	MissingConsents []string `json:"missing_consents,omitempty"`
	LegalBasis      string   `json:"legal_basis"`
	Age             int      `json:"age"`
}

type GrantResponse struct {
	Records []RecordResponse `json:"records"`
}

type ListResponse struct {
	Records []RecordResponse `json:"records"`
}

type CreateDualConsentResponse struct {
	Request       RequestResponse `json:"request"`
	ApprovalToken string          `json:"approval_token,omitempty"`
}

type ApproveDualConsentResponse struct {
	Request RequestResponse  `json:"request"`
	Records []RecordResponse `json:"records"`
}

type RequestListResponse struct {
	Requests []RequestResponse `json:"requests"`
}

func toRecordResponse(record *models.Record) RecordResponse {
	response := RecordResponse{
		ID:              record.ID.String(),
		SubjectID:       record.SubjectID.String(),
		Type:            string(record.Type),
		Granted:         record.Granted,
		GrantedAt:       record.GrantedAt,
		RevokedAt:       record.RevokedAt,
		DocumentVersion: record.DocumentVersion,
		IsForMinor:      record.IsForMinor,
		MinorAge:        record.MinorAge,
		LegalBasis:      string(record.LegalBasis),
	}
	if record.ParentID != nil {
		response.ParentID = record.ParentID.String()
	}
	return response
}

func toRecordResponses(records []*models.Record) []RecordResponse {
	responses := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toRecordResponse(record))
	}
	return responses
}

func toRequestResponse(request *models.DualConsentRequest) RequestResponse {
	types := make([]string, 0, len(request.RequiredConsents))
	for _, t := range request.RequiredConsents {
		types = append(types, string(t))
	}
	return RequestResponse{
		ID:                request.ID.String(),
		AthleteID:         request.AthleteID.String(),
		ParentID:          request.ParentID.String(),
		RequiredConsents:  types,
		Status:            string(request.Status),
		CreatedAt:         request.CreatedAt,
		ExpiresAt:         request.ExpiresAt,
		NotificationsSent: request.NotificationsSent,
	}
}

func toRequestResponses(requests []*models.DualConsentRequest) []RequestResponse {
	responses := make([]RequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, toRequestResponse(request))
	}
	return responses
}

func toComplianceResponse(status *service.ComplianceStatus) ComplianceResponse {
	missing := make([]string, 0, len(status.MissingConsents))
	for _, t := range status.MissingConsents {
		missing = append(missing, string(t))
	}
	return ComplianceResponse{
		Compliant:       status.Compliant,
		Reason:          status.Reason,
		RequiredActions: status.RequiredActions,
		MissingConsents: missing,
		LegalBasis:      string(status.LegalBasis),
		Age:             status.Age,
	}
}
