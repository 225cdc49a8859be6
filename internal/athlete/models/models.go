// Package models defines the account variants the consent engine operates on.
// VigorLog has four roles; the compliance core only touches athletes and
// parents, so only those two carry full structs.
package models

import (
	"time"

	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

// Role discriminates account variants.
type Role string

const (
	RoleAthlete Role = "athlete"
	RoleParent  Role = "parent"
	RoleCoach   Role = "coach"
	RoleAdmin   Role = "admin"
)

// Athlete is the subject of health monitoring. The two consent flags are
// persisted at registration time: NeedsParentalConsent is derived from age,
// HasParentalConsent records whether consent was actually obtained.
type Athlete struct {
	ID           id.AthleteID
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	BirthDate    time.Time
	Sport        string
	TeamID       string
	ParentIDs    []id.ParentID

	NeedsParentalConsent bool
	HasParentalConsent   bool
	ParentalConsentDate  *time.Time
	ParentalConsentBy    *id.ParentID

	CreatedAt time.Time
}

// HasLinkedParent reports whether at least one guardian is linked.
func (a *Athlete) HasLinkedParent() bool {
	return len(a.ParentIDs) > 0
}

// Parent is a guardian account. HasDataConsent and HasMedicalConsent record the
// parent's own acknowledgement; CanGiveConsentFor lists the athletes this
// parent is authorized to consent for.
type Parent struct {
	ID                id.ParentID
	FirstName         string
	LastName          string
	Email             string
	Phone             string
	PasswordHash      string
	ChildrenIDs       []id.AthleteID
	CanGiveConsentFor []id.AthleteID
	HasDataConsent    bool
	HasMedicalConsent bool

	CreatedAt time.Time
}

// CanConsentFor reports whether the parent is authorized to consent for the athlete.
func (p *Parent) CanConsentFor(athleteID id.AthleteID) bool {
	for _, child := range p.CanGiveConsentFor {
		if child == athleteID {
			return true
		}
	}
	return false
}

// NewAthlete creates an Athlete with domain invariant checks.
func NewAthlete(athleteID id.AthleteID, firstName, lastName, email string, birthDate time.Time, createdAt time.Time) (*Athlete, error) {
	if athleteID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "athlete ID required")
	}
	if birthDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "birth date required")
	}
	return &Athlete{
		ID:        athleteID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		BirthDate: birthDate,
		CreatedAt: createdAt,
	}, nil
}

// NewParent creates a Parent with domain invariant checks.
func NewParent(parentID id.ParentID, firstName, lastName, email string, createdAt time.Time) (*Parent, error) {
	if parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "parent ID required")
	}
	return &Parent{
		ID:        parentID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		CreatedAt: createdAt,
	}, nil
}
