package handler

// GrantRequest is the payload for POST /consents. ParentID is required for
// subjects under 16 and must be absent for older athletes; the service
// enforces that, the DTO only checks shape.
type GrantRequest struct {
	AthleteID string   `json:"athlete_id" validate:"required,uuid"`
	ParentID  string   `json:"parent_id" validate:"omitempty,uuid"`
	Types     []string `json:"types" validate:"required,min=1"`
}

// CreateDualConsentRequest is the payload for POST /dual-consent/requests.
// An empty type list asks for the full required minor set.
type CreateDualConsentRequest struct {
	AthleteID string   `json:"athlete_id" validate:"required,uuid"`
	ParentID  string   `json:"parent_id" validate:"required,uuid"`
	Types     []string `json:"types"`
}

// DecideDualConsentRequest carries the deciding parent for approve/reject.
type DecideDualConsentRequest struct {
	ParentID string `json:"parent_id" validate:"required,uuid"`
}

// TokenApprovalRequest carries the signed token from a parent approval link.
type TokenApprovalRequest struct {
	Token string `json:"token" validate:"required,notblank"`
}
