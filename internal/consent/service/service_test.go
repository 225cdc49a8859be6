package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	athletemodels "vigorlog/internal/athlete/models"
	athletestore "vigorlog/internal/athlete/store"
	"vigorlog/internal/audit"
	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/policy"
	"vigorlog/internal/consent/store"
	"vigorlog/internal/consent/store/request"
	"vigorlog/pkg/clock"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
	"vigorlog/pkg/testutil"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	accounts *athletestore.InMemoryStore
	records  *store.InMemoryStore
	requests *request.InMemoryStore
	auditLog *audit.InMemoryStore
	clock    *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: athletestore.New(),
		records:  store.New(),
		requests: request.New(),
		auditLog: audit.NewInMemoryStore(),
		clock:    clock.NewFixed(testNow),
	}
	f.svc = NewService(f.records, f.requests, f.accounts,
		audit.NewPublisher(f.auditLog), nil,
		WithClock(f.clock),
		WithDocumentVersion("v2.1"),
	)
	return f
}

// seedMinor creates a 14-year-old athlete linked to an authorized parent.
func (f *fixture) seedMinor(t *testing.T) (*athletemodels.Athlete, *athletemodels.Parent) {
	t.Helper()
	ctx := context.Background()

	athleteID := testutil.TestIDs.AthleteID1
	parent := testutil.NewParentBuilder().
		WithID(testutil.TestIDs.ParentID1).
		WithChild(athleteID).
		Build()
	athlete := testutil.NewAthleteBuilder().
		WithID(athleteID).
		WithAgeAt(14, testNow).
		WithParent(parent.ID).
		Build()

	require.NoError(t, f.accounts.SaveParent(ctx, parent))
	require.NoError(t, f.accounts.SaveAthlete(ctx, athlete))
	return athlete, parent
}

// seedSelfConsenting creates a 17-year-old athlete with no parent.
func (f *fixture) seedSelfConsenting(t *testing.T) *athletemodels.Athlete {
	t.Helper()
	athlete := testutil.NewAthleteBuilder().
		WithID(testutil.TestIDs.AthleteID2).
		WithName("Lena", "Schmidt").
		WithEmail("lena@example.com").
		WithAgeAt(17, testNow).
		Build()
	require.NoError(t, f.accounts.SaveAthlete(context.Background(), athlete))
	return athlete
}

func TestGrantMinorRequiresAuthorizedParent(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	// No parent at all
	_, err := f.svc.Grant(ctx, athlete.ID, nil, []models.Type{models.TypeDataProcessing})
	require.True(t, dErrors.HasCode(err, dErrors.CodePolicyViolation))

	// Unauthorized parent
	stranger := testutil.NewParentBuilder().WithEmail("tom@example.com").Build()
	require.NoError(t, f.accounts.SaveParent(ctx, stranger))
	_, err = f.svc.Grant(ctx, athlete.ID, &stranger.ID, []models.Type{models.TypeDataProcessing})
	require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// Authorized parent succeeds
	records, err := f.svc.Grant(ctx, athlete.ID, &parent.ID, []models.Type{models.TypeDataProcessing})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, policy.LegalBasisArt8, records[0].LegalBasis)
	assert.True(t, records[0].IsForMinor)
	assert.Equal(t, 14, records[0].MinorAge)
	assert.Equal(t, "v2.1", records[0].DocumentVersion)
	require.NotNil(t, records[0].ParentID)
	assert.Equal(t, parent.ID, *records[0].ParentID)
}

func TestGrantSelfConsenting(t *testing.T) {
	f := newFixture(t)
	athlete := f.seedSelfConsenting(t)
	ctx := context.Background()

	records, err := f.svc.Grant(ctx, athlete.ID, nil, []models.Type{models.TypeDataProcessing, models.TypeMarketing})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, policy.LegalBasisArt6, records[0].LegalBasis)
	assert.Nil(t, records[0].ParentID)
	assert.True(t, records[0].IsForMinor, "17 is still a minor for record keeping")
	assert.Equal(t, 17, records[0].MinorAge)

	// A 17-year-old consents alone; a parent on the call is a policy error.
	parentID := id.NewParentID()
	_, err = f.svc.Grant(ctx, athlete.ID, &parentID, []models.Type{models.TypeMarketing})
	require.True(t, dErrors.HasCode(err, dErrors.CodePolicyViolation))
}

func TestGrantRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	_, err := f.svc.Grant(ctx, athlete.ID, &parent.ID, nil)
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.svc.Grant(ctx, athlete.ID, &parent.ID, []models.Type{"weird"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = f.svc.Grant(ctx, id.NewAthleteID(), &parent.ID, []models.Type{models.TypeDataProcessing})
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestRevokeFlipsCompliance(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	records, err := f.svc.Grant(ctx, athlete.ID, &parent.ID, models.RequiredMinorConsents)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Athlete account must also carry the consent flags for compliance.
	athlete.HasParentalConsent = true
	require.NoError(t, f.accounts.UpdateAthlete(ctx, athlete))

	status, err := f.svc.CheckCompliance(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, status.Compliant)
	assert.Empty(t, status.MissingConsents)
	assert.Equal(t, policy.LegalBasisArt8, status.LegalBasis)

	// Revoke medical_data; compliance must flip on the next check.
	var medicalID id.ConsentID
	for _, record := range records {
		if record.Type == models.TypeMedicalData {
			medicalID = record.ID
		}
	}
	revoked, err := f.svc.Revoke(ctx, medicalID)
	require.NoError(t, err)
	require.NotNil(t, revoked.RevokedAt)

	status, err = f.svc.CheckCompliance(ctx, athlete.ID)
	require.NoError(t, err)
	assert.False(t, status.Compliant)
	assert.Equal(t, []models.Type{models.TypeMedicalData}, status.MissingConsents)

	// Revoking the same record again is a not-found.
	_, err = f.svc.Revoke(ctx, medicalID)
	require.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestCheckComplianceAdultIsUnconditional(t *testing.T) {
	f := newFixture(t)
	athlete := f.seedSelfConsenting(t)

	status, err := f.svc.CheckCompliance(context.Background(), athlete.ID)
	require.NoError(t, err)
	assert.True(t, status.Compliant, "16+ needs no parental consent and no records")
	assert.Empty(t, status.RequiredActions)
	assert.Empty(t, status.MissingConsents)
	assert.Equal(t, policy.LegalBasisArt6, status.LegalBasis)
}

func TestCheckComplianceAccumulatesAccountGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Minor with no parent, no flags, no records: everything is missing.
	birthDate := testNow.AddDate(-13, 0, 0)
	athlete, err := athletemodels.NewAthlete(id.NewAthleteID(), "Jonas", "Klein", "jonas@example.com", birthDate, testNow)
	require.NoError(t, err)
	require.NoError(t, f.accounts.SaveAthlete(ctx, athlete))

	status, err := f.svc.CheckCompliance(ctx, athlete.ID)
	require.NoError(t, err)
	assert.False(t, status.Compliant)
	assert.Equal(t, policy.NonCompliantReason, status.Reason)
	assert.Len(t, status.RequiredActions, 5)
	assert.Len(t, status.MissingConsents, 3)
}

func TestCheckComplianceWithSeededRecords(t *testing.T) {
	f := newFixture(t)
	athlete, _ := f.seedMinor(t)
	ctx := context.Background()

	athlete.HasParentalConsent = true
	require.NoError(t, f.accounts.UpdateAthlete(ctx, athlete))

	for _, consentType := range models.RequiredMinorConsents {
		record := testutil.NewRecordBuilder().
			WithSubject(athlete.ID).
			WithType(consentType).
			Build()
		require.NoError(t, f.records.Save(ctx, record))
	}
	// An extra record that is already revoked must not disturb the result.
	revoked := testutil.NewRecordBuilder().
		WithSubject(athlete.ID).
		WithType(models.TypeMarketing).
		Revoked(testNow).
		Build()
	require.NoError(t, f.records.Save(ctx, revoked))

	status, err := f.svc.CheckCompliance(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, status.Compliant)
	assert.Empty(t, status.MissingConsents)
}

func TestDualConsentRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	req, err := f.svc.CreateRequest(ctx, athlete.ID, parent.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, models.RequiredMinorConsents, req.RequiredConsents)
	assert.Equal(t, testNow.Add(models.RequestTTL), req.ExpiresAt)

	// Reminder bumps the counter.
	notified, err := f.svc.MarkNotified(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, notified.NotificationsSent)

	// Wrong parent cannot decide.
	_, _, err = f.svc.ApproveRequest(ctx, req.ID, id.NewParentID())
	require.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	pending, err := f.svc.ListPendingForParent(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Approve: records created, athlete flags set, request closed.
	approved, granted, err := f.svc.ApproveRequest(ctx, req.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.Len(t, granted, 3)

	updated, err := f.accounts.FindAthleteByID(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasParentalConsent)
	require.NotNil(t, updated.ParentalConsentBy)
	assert.Equal(t, parent.ID, *updated.ParentalConsentBy)

	// Approving again conflicts.
	_, _, err = f.svc.ApproveRequest(ctx, req.ID, parent.ID)
	require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	pending, err = f.svc.ListPendingForParent(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDualConsentRequestExpiry(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	req, err := f.svc.CreateRequest(ctx, athlete.ID, parent.ID, nil)
	require.NoError(t, err)

	// One second past the window the request can no longer be decided.
	f.clock.Advance(models.RequestTTL + time.Second)

	_, _, err = f.svc.ApproveRequest(ctx, req.ID, parent.ID)
	require.True(t, dErrors.HasCode(err, dErrors.CodeExpired))

	// The stored status converged to expired.
	stored, err := f.requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)

	// No consent records were created and the athlete is untouched.
	records, err := f.svc.List(ctx, athlete.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	unchanged, err := f.accounts.FindAthleteByID(ctx, athlete.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.HasParentalConsent)

	// Listings report the effective status.
	byAthlete, err := f.svc.ListRequestsByAthlete(ctx, athlete.ID)
	require.NoError(t, err)
	require.Len(t, byAthlete, 1)
	assert.Equal(t, models.StatusExpired, byAthlete[0].Status)
}

func TestDualConsentRejectCreatesNoRecords(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	req, err := f.svc.CreateRequest(ctx, athlete.ID, parent.ID, nil)
	require.NoError(t, err)

	rejected, err := f.svc.RejectRequest(ctx, req.ID, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	records, err := f.svc.List(ctx, athlete.ID)
	require.NoError(t, err)
	assert.Empty(t, records)

	// A decided request cannot be renotified.
	_, err = f.svc.MarkNotified(ctx, req.ID)
	require.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestAuditTrailForGrantAndRevoke(t *testing.T) {
	f := newFixture(t)
	athlete, parent := f.seedMinor(t)
	ctx := context.Background()

	records, err := f.svc.Grant(ctx, athlete.ID, &parent.ID, []models.Type{models.TypeDataProcessing})
	require.NoError(t, err)
	_, err = f.svc.Revoke(ctx, records[0].ID)
	require.NoError(t, err)

	events, err := f.auditLog.ListBySubject(ctx, athlete.ID.String())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ActionConsentGranted, events[0].Action)
	assert.Equal(t, parent.ID.String(), events[0].ActorID)
	assert.Equal(t, audit.ActionConsentRevoked, events[1].Action)
}
