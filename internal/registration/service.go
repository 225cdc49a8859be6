package registration

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	athletemodels "vigorlog/internal/athlete/models"
	"vigorlog/internal/audit"
	consentmodels "vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	"vigorlog/internal/platform/metrics"
	"vigorlog/pkg/clock"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/sentinel"
	"vigorlog/pkg/strutil"
)

// AccountStore is the slice of the account store the orchestrator needs.
type AccountStore interface {
	SaveParent(ctx context.Context, parent *athletemodels.Parent) error
	SaveAthlete(ctx context.Context, athlete *athletemodels.Athlete) error
	DeleteParent(ctx context.Context, parentID id.ParentID) error
	DeleteAthlete(ctx context.Context, athleteID id.AthleteID) error
}

// RecordStore is the slice of the consent record store the orchestrator needs.
type RecordStore interface {
	Save(ctx context.Context, record *consentmodels.Record) error
	DeleteBySubject(ctx context.Context, subjectID id.AthleteID) error
}

type Option func(*Service)

// Service is the minor registration orchestrator. A registration either
// produces the complete set (parent account, athlete account, consent records)
// or nothing: failures after a partial write compensate by deleting what was
// already persisted.
type Service struct {
	accounts        AccountStore
	records         RecordStore
	auditor         *audit.Publisher
	metrics         *metrics.Metrics
	logger          *slog.Logger
	clock           clock.Clock
	documentVersion string
	hashCost        int
}

const defaultDocumentVersion = "2026-01"

func NewService(accounts AccountStore, records RecordStore, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		accounts:        accounts,
		records:         records,
		auditor:         auditor,
		logger:          logger,
		clock:           clock.Real{},
		documentVersion: defaultDocumentVersion,
		hashCost:        bcrypt.DefaultCost,
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

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.hashCost = cost
		}
	}
}

// RegisterMinor validates and executes a minor registration. On success it
// returns the created parent, athlete, and consent records. Invalid input
// returns *ValidationError carrying every failing rule.
//
// For athletes aged 16-17 no parent account and no consent records are
// created; the parent sub-record of the payload is ignored.
func (s *Service) RegisterMinor(ctx context.Context, data MinorRegistrationData) (*Result, error) {
	tracer := otel.Tracer("vigorlog/registration")
	ctx, span := tracer.Start(ctx, "registration.RegisterMinor")
	defer span.End()

	start := time.Now()
	s.incrementStarted()

	now := s.clock.Now()
	validation := ValidateMinorRegistration(data, now)
	if !validation.Valid {
		s.incrementRejected()
		span.SetAttributes(attribute.Int("registration.validation_errors", len(validation.Errors)))
		return nil, &ValidationError{Errors: validation.Errors}
	}

	needsConsent := policy.NeedsParentalConsent(data.Athlete.BirthDate, now)
	span.SetAttributes(attribute.Bool("registration.needs_parental_consent", needsConsent))

	var result *Result
	var err error
	if needsConsent {
		result, err = s.registerWithParent(ctx, span, data, now)
	} else {
		result, err = s.registerSelfConsenting(ctx, data, now)
	}
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionMinorRegistered,
		SubjectID: result.Athlete.ID.String(),
		Timestamp: now,
		Metadata: map[string]string{
			"needs_parental_consent": strconv.FormatBool(needsConsent),
			"consent_records":        strconv.Itoa(len(result.Records)),
		},
	})
	s.incrementCompleted()
	s.observeLatency(time.Since(start).Seconds())
	s.logRegistered(ctx, result, needsConsent)
	return result, nil
}

func (s *Service) registerWithParent(ctx context.Context, span trace.Span, data MinorRegistrationData, now time.Time) (*Result, error) {
	parent, err := s.buildParent(data.Parent, now)
	if err != nil {
		return nil, err
	}
	athlete, err := s.buildAthlete(data.Athlete, now)
	if err != nil {
		return nil, err
	}

	// The parent has acknowledged all consents by completing the form.
	parent.HasDataConsent = true
	parent.HasMedicalConsent = true
	parent.ChildrenIDs = []id.AthleteID{athlete.ID}
	parent.CanGiveConsentFor = []id.AthleteID{athlete.ID}

	athlete.NeedsParentalConsent = true
	athlete.HasParentalConsent = true
	athlete.ParentalConsentDate = &now
	athlete.ParentalConsentBy = &parent.ID
	athlete.ParentIDs = []id.ParentID{parent.ID}

	if err := s.accounts.SaveParent(ctx, parent); err != nil {
		return nil, wrapSaveError("parent", err)
	}
	if err := s.accounts.SaveAthlete(ctx, athlete); err != nil {
		s.compensate(ctx, parent.ID, nil, false)
		return nil, wrapSaveError("athlete", err)
	}

	age := id.CalculateAge(data.Athlete.BirthDate, now)
	records := make([]*consentmodels.Record, 0, len(consentmodels.RequiredMinorConsents))
	for _, consentType := range consentmodels.RequiredMinorConsents {
		record, err := consentmodels.NewRecord(id.NewConsentID(), athlete.ID, &parent.ID, consentType, true, age, s.documentVersion, now)
		if err != nil {
			s.compensate(ctx, parent.ID, &athlete.ID, true)
			return nil, err
		}
		if err := s.records.Save(ctx, record); err != nil {
			s.compensate(ctx, parent.ID, &athlete.ID, true)
			return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to save consent record", err)
		}
		s.incrementRecordCreated(consentType)
		records = append(records, record)
	}

	span.SetAttributes(attribute.Int("registration.consent_records", len(records)))
	return &Result{Parent: parent, Athlete: athlete, Records: records}, nil
}

func (s *Service) registerSelfConsenting(ctx context.Context, data MinorRegistrationData, now time.Time) (*Result, error) {
	athlete, err := s.buildAthlete(data.Athlete, now)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SaveAthlete(ctx, athlete); err != nil {
		return nil, wrapSaveError("athlete", err)
	}
	return &Result{Athlete: athlete, Records: []*consentmodels.Record{}}, nil
}

// compensate deletes whatever a failed registration already persisted, so no
// partial account survives. Cleanup errors are logged, never returned: the
// original failure is what the caller needs to see.
func (s *Service) compensate(ctx context.Context, parentID id.ParentID, athleteID *id.AthleteID, dropRecords bool) {
	if athleteID != nil {
		if dropRecords {
			if err := s.records.DeleteBySubject(ctx, *athleteID); err != nil {
				s.logCompensationFailure(ctx, "consent records", err)
			}
		}
		if err := s.accounts.DeleteAthlete(ctx, *athleteID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logCompensationFailure(ctx, "athlete", err)
		}
	}
	if err := s.accounts.DeleteParent(ctx, parentID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logCompensationFailure(ctx, "parent", err)
	}
}

func (s *Service) buildParent(data ParentData, now time.Time) (*athletemodels.Parent, error) {
	hash, err := s.hashPassword(data.Password)
	if err != nil {
		return nil, err
	}
	strutil.TrimStrings(&data.FirstName, &data.LastName, &data.Email, &data.Phone)
	parent, err := athletemodels.NewParent(id.NewParentID(),
		data.FirstName, data.LastName, data.Email, now)
	if err != nil {
		return nil, err
	}
	parent.Phone = data.Phone
	parent.PasswordHash = hash
	return parent, nil
}

func (s *Service) buildAthlete(data AthleteData, now time.Time) (*athletemodels.Athlete, error) {
	hash, err := s.hashPassword(data.Password)
	if err != nil {
		return nil, err
	}
	strutil.TrimStrings(&data.FirstName, &data.LastName, &data.Email, &data.Sport)
	athlete, err := athletemodels.NewAthlete(id.NewAthleteID(),
		data.FirstName, data.LastName, data.Email, data.BirthDate, now)
	if err != nil {
		return nil, err
	}
	athlete.Sport = data.Sport
	athlete.PasswordHash = hash
	return athlete, nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "failed to hash password", err)
	}
	return string(hash), nil
}

func wrapSaveError(entity string, err error) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(dErrors.CodeConflict, entity+" email already registered", err)
	}
	return dErrors.Wrap(dErrors.CodeInternal, "failed to save "+entity, err)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func (s *Service) incrementStarted() {
	if s.metrics != nil {
		s.metrics.IncrementRegistrationsStarted()
	}
}

func (s *Service) incrementCompleted() {
	if s.metrics != nil {
		s.metrics.IncrementRegistrationsCompleted()
	}
}

func (s *Service) incrementRejected() {
	if s.metrics != nil {
		s.metrics.IncrementRegistrationsRejected()
	}
}

func (s *Service) incrementRecordCreated(consentType consentmodels.Type) {
	if s.metrics != nil {
		s.metrics.IncrementConsentRecordsCreated(string(consentType))
	}
}

func (s *Service) observeLatency(seconds float64) {
	if s.metrics != nil {
		s.metrics.ObserveRegistrationLatency(seconds)
	}
}

func (s *Service) logRegistered(ctx context.Context, result *Result, needsConsent bool) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "minor_registered",
		"athlete_id", result.Athlete.ID,
		"needs_parental_consent", needsConsent,
		"consent_records", len(result.Records),
	)
}

func (s *Service) logCompensationFailure(ctx context.Context, entity string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.ErrorContext(ctx, "registration cleanup failed",
		"entity", entity,
		"error", err,
	)
}

