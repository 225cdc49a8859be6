// Package audit captures the compliance trail: every consent decision, every
// registration, and every compliance check leaves an event.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action labels what happened.
type Action string

const (
	ActionMinorRegistered      Action = "minor_registered"
	ActionConsentGranted       Action = "consent_granted"
	ActionConsentRevoked       Action = "consent_revoked"
	ActionComplianceCheckPass  Action = "compliance_check_passed"
	ActionComplianceCheckFail  Action = "compliance_check_failed"
	ActionDualConsentRequested Action = "dual_consent_requested"
	ActionDualConsentApproved  Action = "dual_consent_approved"
	ActionDualConsentRejected  Action = "dual_consent_rejected"
	ActionDualConsentExpired   Action = "dual_consent_expired"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Action    Action
	ActorID   string
	SubjectID string
	Timestamp time.Time
	Metadata  map[string]string
}
