package models

import (
	"time"

	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

// RequestStatus is the lifecycle state of a dual-consent request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusExpired  RequestStatus = "expired"
)

// IsValid reports whether s is one of the known request states.
func (s RequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// RequestTTL is the fixed approval window for dual-consent requests.
const RequestTTL = 7 * 24 * time.Hour

// DualConsentRequest is the pending approval envelope used when parental
// consent is sought asynchronously rather than inline at registration.
//
// Expiry is computed, not stored: once ExpiresAt has passed the request must be
// treated as expired regardless of the persisted Status field, so a stale row
// can never report itself approvable.
type DualConsentRequest struct {
	ID                id.RequestID
	AthleteID         id.AthleteID
	ParentID          id.ParentID
	RequiredConsents  []Type
	Status            RequestStatus
	CreatedAt         time.Time
	ExpiresAt         time.Time
	NotificationsSent int
}

// NewDualConsentRequest creates a pending request with the fixed 7-day window.
func NewDualConsentRequest(requestID id.RequestID, athleteID id.AthleteID, parentID id.ParentID, consentTypes []Type, now time.Time) (*DualConsentRequest, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request ID required")
	}
	if athleteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "athlete ID required")
	}
	if parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "parent ID required")
	}
	if len(consentTypes) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one consent type required")
	}
	for _, t := range consentTypes {
		if !t.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid consent type")
		}
	}
	return &DualConsentRequest{
		ID:               requestID,
		AthleteID:        athleteID,
		ParentID:         parentID,
		RequiredConsents: consentTypes,
		Status:           StatusPending,
		CreatedAt:        now,
		ExpiresAt:        now.Add(RequestTTL),
	}, nil
}

// IsExpired reports whether the request window has elapsed at the reference
// time. Derived from ExpiresAt on every call, never from the stored status.
func (r *DualConsentRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// ComputeStatus reports the effective state at the reference time: a stored
// pending status flips to expired once the window has passed.
func (r *DualConsentRequest) ComputeStatus(now time.Time) RequestStatus {
	if r.Status == StatusPending && r.IsExpired(now) {
		return StatusExpired
	}
	return r.Status
}

// CanDecide reports whether the request can still be approved or rejected.
func (r *DualConsentRequest) CanDecide(now time.Time) bool {
	return r.ComputeStatus(now) == StatusPending
}
