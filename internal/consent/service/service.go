// Package service implements the consent lifecycle: granting and revoking
// consent records, compliance checks, and the asynchronous dual-consent
// approval flow for minors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	athletemodels "vigorlog/internal/athlete/models"
	"vigorlog/internal/audit"
	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	"vigorlog/internal/platform/metrics"
	"vigorlog/pkg/clock"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/sentinel"
)

// RecordStore defines the persistence interface for consent records.
// Error Contract:
// - FindByID and Revoke return sentinel.ErrNotFound when no record exists
// - Other methods return nil on success or wrapped errors on failure
type RecordStore interface {
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.Record, error)
	ListBySubject(ctx context.Context, subjectID id.AthleteID) ([]*models.Record, error)
	Revoke(ctx context.Context, consentID id.ConsentID, revokedAt time.Time) (*models.Record, error)
}

// RequestStore defines the persistence interface for dual-consent requests.
type RequestStore interface {
	Save(ctx context.Context, request *models.DualConsentRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error)
	Update(ctx context.Context, request *models.DualConsentRequest) error
	ListByAthlete(ctx context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error)
	ListPendingByParent(ctx context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error)
}

// AccountStore is the slice of the account store the consent service needs.
type AccountStore interface {
	FindAthleteByID(ctx context.Context, athleteID id.AthleteID) (*athletemodels.Athlete, error)
	FindParentByID(ctx context.Context, parentID id.ParentID) (*athletemodels.Parent, error)
	UpdateAthlete(ctx context.Context, athlete *athletemodels.Athlete) error
}

// ComplianceStatus is the result of a compliance check: the account-level
// report plus the record-level gaps.
type ComplianceStatus struct {
	Compliant       bool
	Reason          string
	RequiredActions []string
	MissingConsents []models.Type
	LegalBasis      policy.LegalBasis
	Age             int
}

const defaultDocumentVersion = "2026-01"

type Option func(*Service)

// Service owns the consent record set and the dual-consent request lifecycle.
type Service struct {
	records         RecordStore
	requests        RequestStore
	accounts        AccountStore
	auditor         *audit.Publisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	clock           clock.Clock
	documentVersion string
}

func NewService(records RecordStore, requests RequestStore, accounts AccountStore, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		records:         records,
		requests:        requests,
		accounts:        accounts,
		auditor:         auditor,
		logger:          logger,
		clock:           clock.Real{},
		documentVersion: defaultDocumentVersion,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.clock == nil {
		svc.clock = clock.Real{}
	}
	return svc
}

// WithMetrics sets the metrics instance for the service
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source. Tests use a fixed clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithDocumentVersion pins the consent document version stamped on new records.
func WithDocumentVersion(version string) Option {
	return func(s *Service) {
		if version != "" {
			s.documentVersion = version
		}
	}
}

// Grant creates consent records for the subject. For minors the granting
// parent must be linked and authorized; for athletes 16 and older parentID
// must be nil because they consent for themselves.
func (s *Service) Grant(ctx context.Context, subjectID id.AthleteID, parentID *id.ParentID, consentTypes []models.Type) ([]*models.Record, error) {
	if len(consentTypes) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "consent types must not be empty")
	}
	for _, consentType := range consentTypes {
		if !consentType.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid consent type: %s", consentType))
		}
	}

	athlete, err := s.accounts.FindAthleteByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "athlete not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read athlete", err)
	}

	now := s.clock.Now()
	age := id.CalculateAge(athlete.BirthDate, now)

	if policy.NeedsParentalConsent(athlete.BirthDate, now) {
		if parentID == nil {
			return nil, dErrors.New(dErrors.CodePolicyViolation, "parental consent required for athletes under 16")
		}
		if err := s.authorizeParent(ctx, *parentID, subjectID); err != nil {
			return nil, err
		}
	} else if parentID != nil {
		return nil, dErrors.New(dErrors.CodePolicyViolation, "athletes 16 and older consent for themselves")
	}

	var granted []*models.Record
	for _, consentType := range consentTypes {
		record, err := models.NewRecord(id.NewConsentID(), subjectID, parentID, consentType, true, age, s.documentVersion, now)
		if err != nil {
			return nil, err
		}
		if err := s.records.Save(ctx, record); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to save consent", err)
		}
		s.emitAudit(ctx, audit.Event{
			Action:    audit.ActionConsentGranted,
			ActorID:   actorID(parentID, subjectID),
			SubjectID: subjectID.String(),
			Timestamp: now,
			Metadata: map[string]string{
				"type":        string(consentType),
				"legal_basis": string(record.LegalBasis),
			},
		})
		s.incrementRecordsCreated(consentType)
		granted = append(granted, record)
	}
	return granted, nil
}

// Revoke stamps RevokedAt on an active record. The record itself is kept so
// the audit trail stays intact.
func (s *Service) Revoke(ctx context.Context, consentID id.ConsentID) (*models.Record, error) {
	now := s.clock.Now()
	record, err := s.records.Revoke(ctx, consentID, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "active consent record not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to revoke consent", err)
	}
	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionConsentRevoked,
		SubjectID: record.SubjectID.String(),
		Timestamp: now,
		Metadata:  map[string]string{"type": string(record.Type)},
	})
	s.incrementRevoked(record.Type)
	return record, nil
}

// List returns all consent records for the subject, revoked ones included.
func (s *Service) List(ctx context.Context, subjectID id.AthleteID) ([]*models.Record, error) {
	records, err := s.records.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list consents", err)
	}
	return records, nil
}

// CheckCompliance re-derives the athlete's compliance from the current record
// set and account state. Never cached: a revocation flips the result on the
// next call.
func (s *Service) CheckCompliance(ctx context.Context, athleteID id.AthleteID) (*ComplianceStatus, error) {
	athlete, err := s.accounts.FindAthleteByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "athlete not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read athlete", err)
	}

	var parent *athletemodels.Parent
	if len(athlete.ParentIDs) > 0 {
		parent, err = s.accounts.FindParentByID(ctx, athlete.ParentIDs[0])
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read parent", err)
		}
	}

	records, err := s.records.ListBySubject(ctx, athleteID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list consents", err)
	}

	now := s.clock.Now()
	report := policy.EvaluateMinorCompliance(athlete, parent, now)
	missing := models.MissingRequired(athlete.BirthDate, athleteID, records, now)
	age := id.CalculateAge(athlete.BirthDate, now)

	status := &ComplianceStatus{
		Compliant:       report.Compliant && len(missing) == 0,
		Reason:          report.Reason,
		RequiredActions: report.RequiredActions,
		MissingConsents: missing,
		LegalBasis:      policy.LegalBasisForAge(age),
		Age:             age,
	}

	action := audit.ActionComplianceCheckPass
	result := "passed"
	if !status.Compliant {
		action = audit.ActionComplianceCheckFail
		result = "failed"
		if status.Reason == "" {
			status.Reason = policy.NonCompliantReason
		}
	}
	s.emitAudit(ctx, audit.Event{
		Action:    action,
		SubjectID: athleteID.String(),
		Timestamp: now,
	})
	s.incrementComplianceChecks(result)
	s.logCompliance(ctx, athleteID, status)
	return status, nil
}

func (s *Service) authorizeParent(ctx context.Context, parentID id.ParentID, athleteID id.AthleteID) error {
	parent, err := s.accounts.FindParentByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "parent not found")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "failed to read parent", err)
	}
	if !parent.CanConsentFor(athleteID) {
		return dErrors.New(dErrors.CodeForbidden, "parent is not authorized to consent for this athlete")
	}
	return nil
}

func actorID(parentID *id.ParentID, subjectID id.AthleteID) string {
	if parentID != nil {
		return parentID.String()
	}
	return subjectID.String()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func (s *Service) incrementRecordsCreated(consentType models.Type) {
	if s.metrics != nil {
		s.metrics.IncrementConsentRecordsCreated(string(consentType))
	}
}

func (s *Service) incrementRevoked(consentType models.Type) {
	if s.metrics != nil {
		s.metrics.IncrementConsentsRevoked(string(consentType))
	}
}

func (s *Service) incrementComplianceChecks(result string) {
	if s.metrics != nil {
		s.metrics.IncrementComplianceChecks(result)
	}
}

func (s *Service) logCompliance(ctx context.Context, athleteID id.AthleteID, status *ComplianceStatus) {
	if s.logger == nil {
		return
	}
	level := slog.LevelInfo
	if !status.Compliant {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "compliance_check",
		"athlete_id", athleteID,
		"compliant", status.Compliant,
		"missing_consents", len(status.MissingConsents),
		"required_actions", len(status.RequiredActions),
	)
}
