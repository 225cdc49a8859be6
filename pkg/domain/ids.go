// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "vigorlog/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing an AthleteID where a ParentID is expected.
type (
	AthleteID uuid.UUID
	ParentID  uuid.UUID
	ConsentID uuid.UUID
	RequestID uuid.UUID
)

// New functions - use when minting identifiers for new records.

func NewAthleteID() AthleteID { return AthleteID(uuid.New()) }
func NewParentID() ParentID   { return ParentID(uuid.New()) }
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }
func NewRequestID() RequestID { return RequestID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseAthleteID(s string) (AthleteID, error) {
	id, err := parseUUID(s, "athlete ID")
	return AthleteID(id), err
}

func ParseParentID(s string) (ParentID, error) {
	id, err := parseUUID(s, "parent ID")
	return ParentID(id), err
}

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseUUID(s, "consent ID")
	return ConsentID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

// String methods - for logging and debugging.

func (id AthleteID) String() string { return uuid.UUID(id).String() }
func (id ParentID) String() string  { return uuid.UUID(id).String() }
func (id ConsentID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id AthleteID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ParentID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here; use
// IsNil() at the service layer so store lookups can still return proper
// "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
