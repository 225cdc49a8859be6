package service

import (
	"context"
	"errors"

	"vigorlog/internal/audit"
	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/sentinel"
)

// CreateRequest opens a dual-consent request asking the parent to approve the
// required consents for the athlete. The approval window is fixed at 7 days.
func (s *Service) CreateRequest(ctx context.Context, athleteID id.AthleteID, parentID id.ParentID, consentTypes []models.Type) (*models.DualConsentRequest, error) {
	athlete, err := s.accounts.FindAthleteByID(ctx, athleteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "athlete not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read athlete", err)
	}

	now := s.clock.Now()
	if !policy.NeedsParentalConsent(athlete.BirthDate, now) {
		return nil, dErrors.New(dErrors.CodePolicyViolation, "athlete does not need parental consent")
	}
	if err := s.authorizeParent(ctx, parentID, athleteID); err != nil {
		return nil, err
	}
	if len(consentTypes) == 0 {
		consentTypes = models.RequiredMinorConsents
	}

	request, err := models.NewDualConsentRequest(id.NewRequestID(), athleteID, parentID, consentTypes, now)
	if err != nil {
		return nil, err
	}
	if err := s.requests.Save(ctx, request); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to save dual-consent request", err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionDualConsentRequested,
		ActorID:   athleteID.String(),
		SubjectID: athleteID.String(),
		Timestamp: now,
		Metadata:  map[string]string{"request_id": request.ID.String()},
	})
	s.incrementRequestTransition(string(models.StatusPending))
	if s.metrics != nil {
		s.metrics.IncrementPendingDualConsents()
	}
	return request, nil
}

// ApproveRequest is the parent's approval of a pending dual-consent request.
// It creates granted records for every required consent type, marks the
// athlete as having parental consent, and closes the request.
//
// Only the parent the request was addressed to can approve it, and only while
// the 7-day window is open. An expired request is persisted as expired the
// first time anyone touches it.
func (s *Service) ApproveRequest(ctx context.Context, requestID id.RequestID, parentID id.ParentID) (*models.DualConsentRequest, []*models.Record, error) {
	request, err := s.loadDecidableRequest(ctx, requestID, parentID)
	if err != nil {
		return nil, nil, err
	}

	athlete, err := s.accounts.FindAthleteByID(ctx, request.AthleteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "athlete not found")
		}
		return nil, nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read athlete", err)
	}

	now := s.clock.Now()
	age := id.CalculateAge(athlete.BirthDate, now)

	var granted []*models.Record
	for _, consentType := range request.RequiredConsents {
		record, err := models.NewRecord(id.NewConsentID(), request.AthleteID, &parentID, consentType, true, age, s.documentVersion, now)
		if err != nil {
			return nil, nil, err
		}
		if err := s.records.Save(ctx, record); err != nil {
			return nil, nil, dErrors.Wrap(dErrors.CodeInternal, "failed to save consent", err)
		}
		s.incrementRecordsCreated(consentType)
		granted = append(granted, record)
	}

	athlete.HasParentalConsent = true
	athlete.ParentalConsentDate = &now
	athlete.ParentalConsentBy = &parentID
	if err := s.accounts.UpdateAthlete(ctx, athlete); err != nil {
		return nil, nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update athlete", err)
	}

	request.Status = models.StatusApproved
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update dual-consent request", err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionDualConsentApproved,
		ActorID:   parentID.String(),
		SubjectID: request.AthleteID.String(),
		Timestamp: now,
		Metadata:  map[string]string{"request_id": request.ID.String()},
	})
	s.incrementRequestTransition(string(models.StatusApproved))
	if s.metrics != nil {
		s.metrics.DecrementPendingDualConsents()
	}
	return request, granted, nil
}

// RejectRequest is the parent's refusal. No consent records are created.
func (s *Service) RejectRequest(ctx context.Context, requestID id.RequestID, parentID id.ParentID) (*models.DualConsentRequest, error) {
	request, err := s.loadDecidableRequest(ctx, requestID, parentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	request.Status = models.StatusRejected
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update dual-consent request", err)
	}

	s.emitAudit(ctx, audit.Event{
		Action:    audit.ActionDualConsentRejected,
		ActorID:   parentID.String(),
		SubjectID: request.AthleteID.String(),
		Timestamp: now,
		Metadata:  map[string]string{"request_id": request.ID.String()},
	})
	s.incrementRequestTransition(string(models.StatusRejected))
	if s.metrics != nil {
		s.metrics.DecrementPendingDualConsents()
	}
	return request, nil
}

// MarkNotified bumps the notification counter for a pending request. Used by
// the reminder sender; decided or expired requests are not renotified.
func (s *Service) MarkNotified(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.CanDecide(s.clock.Now()) {
		return nil, dErrors.New(dErrors.CodeConflict, "request is no longer pending")
	}
	request.NotificationsSent++
	if err := s.requests.Update(ctx, request); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to update dual-consent request", err)
	}
	return request, nil
}

// ListRequestsByAthlete returns the athlete's requests with effective status
// computed at the current time.
func (s *Service) ListRequestsByAthlete(ctx context.Context, athleteID id.AthleteID) ([]*models.DualConsentRequest, error) {
	requests, err := s.requests.ListByAthlete(ctx, athleteID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list dual-consent requests", err)
	}
	now := s.clock.Now()
	for _, request := range requests {
		request.Status = request.ComputeStatus(now)
	}
	return requests, nil
}

// ListPendingForParent returns the parent's open requests. Requests whose
// window has elapsed are filtered out, not shown as pending.
func (s *Service) ListPendingForParent(ctx context.Context, parentID id.ParentID) ([]*models.DualConsentRequest, error) {
	requests, err := s.requests.ListPendingByParent(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to list dual-consent requests", err)
	}
	now := s.clock.Now()
	pending := requests[:0]
	for _, request := range requests {
		if request.CanDecide(now) {
			pending = append(pending, request)
		}
	}
	return pending, nil
}

// loadDecidableRequest fetches a request and verifies it can still be decided
// by the given parent. A request found expired is persisted as expired here,
// so the stored status converges with the computed one.
func (s *Service) loadDecidableRequest(ctx context.Context, requestID id.RequestID, parentID id.ParentID) (*models.DualConsentRequest, error) {
	request, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ParentID != parentID {
		return nil, dErrors.New(dErrors.CodeForbidden, "request is addressed to a different parent")
	}

	now := s.clock.Now()
	switch request.ComputeStatus(now) {
	case models.StatusPending:
		return request, nil
	case models.StatusExpired:
		if request.Status == models.StatusPending {
			request.Status = models.StatusExpired
			if err := s.requests.Update(ctx, request); err != nil {
				return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to expire dual-consent request", err)
			}
			s.emitAudit(ctx, audit.Event{
				Action:    audit.ActionDualConsentExpired,
				SubjectID: request.AthleteID.String(),
				Timestamp: now,
				Metadata:  map[string]string{"request_id": request.ID.String()},
			})
			s.incrementRequestTransition(string(models.StatusExpired))
			if s.metrics != nil {
				s.metrics.DecrementPendingDualConsents()
			}
		}
		return nil, dErrors.New(dErrors.CodeExpired, "dual-consent request has expired")
	default:
		return nil, dErrors.New(dErrors.CodeConflict, "dual-consent request is already decided")
	}
}

func (s *Service) findRequest(ctx context.Context, requestID id.RequestID) (*models.DualConsentRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "dual-consent request not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "failed to read dual-consent request", err)
	}
	return request, nil
}

func (s *Service) incrementRequestTransition(status string) {
	if s.metrics != nil {
		s.metrics.IncrementDualConsentRequests(status)
	}
}
