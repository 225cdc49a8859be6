//go:build integration

package request_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigorlog/internal/consent/models"
	"vigorlog/internal/consent/store/request"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
	"vigorlog/pkg/testutil/containers"
)

type PostgresRequestSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *request.PostgresStore

	athleteID id.AthleteID
	parentID  id.ParentID
}

func TestPostgresRequestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRequestSuite))
}

func (s *PostgresRequestSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = request.NewPostgres(s.postgres.DB)
}

func (s *PostgresRequestSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateModuleTables(ctx))
	s.athleteID = s.postgres.CreateTestAthlete(ctx, s.T(), time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC))
	s.parentID = s.postgres.CreateTestParent(ctx, s.T())
}

func (s *PostgresRequestSuite) newRequest(createdAt time.Time) *models.DualConsentRequest {
	req, err := models.NewDualConsentRequest(id.NewRequestID(), s.athleteID, s.parentID,
		models.RequiredMinorConsents, createdAt)
	s.Require().NoError(err)
	return req
}

func (s *PostgresRequestSuite) TestRoundTrip() {
	ctx := context.Background()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	req := s.newRequest(createdAt)
	s.Require().NoError(s.store.Save(ctx, req))
	s.ErrorIs(s.store.Save(ctx, req), sentinel.ErrConflict)

	fetched, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(req.AthleteID, fetched.AthleteID)
	s.Equal(req.ParentID, fetched.ParentID)
	s.Equal(models.StatusPending, fetched.Status)
	s.Equal(models.RequiredMinorConsents, fetched.RequiredConsents)
	s.True(fetched.ExpiresAt.Equal(createdAt.Add(models.RequestTTL)))

	_, err = s.store.FindByID(ctx, id.NewRequestID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresRequestSuite) TestUpdateStatusAndNotifications() {
	ctx := context.Background()

	req := s.newRequest(time.Now().UTC())
	s.Require().NoError(s.store.Save(ctx, req))

	req.Status = models.StatusApproved
	req.NotificationsSent = 2
	s.Require().NoError(s.store.Update(ctx, req))

	fetched, err := s.store.FindByID(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, fetched.Status)
	s.Equal(2, fetched.NotificationsSent)

	missing := s.newRequest(time.Now().UTC())
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
}

func (s *PostgresRequestSuite) TestListByAthleteAndPendingByParent() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	first := s.newRequest(base)
	second := s.newRequest(base.Add(time.Minute))
	s.Require().NoError(s.store.Save(ctx, first))
	s.Require().NoError(s.store.Save(ctx, second))

	byAthlete, err := s.store.ListByAthlete(ctx, s.athleteID)
	s.Require().NoError(err)
	s.Require().Len(byAthlete, 2)
	s.Equal(first.ID, byAthlete[0].ID)

	pending, err := s.store.ListPendingByParent(ctx, s.parentID)
	s.Require().NoError(err)
	s.Len(pending, 2)

	// A decided request leaves the parent's pending view but stays in the
	// athlete's history.
	first.Status = models.StatusRejected
	s.Require().NoError(s.store.Update(ctx, first))

	pending, err = s.store.ListPendingByParent(ctx, s.parentID)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.ID, pending[0].ID)

	byAthlete, err = s.store.ListByAthlete(ctx, s.athleteID)
	s.Require().NoError(err)
	s.Len(byAthlete, 2)
}
