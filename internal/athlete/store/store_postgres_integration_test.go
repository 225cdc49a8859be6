//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigorlog/internal/athlete/models"
	"vigorlog/internal/athlete/store"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
	"vigorlog/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(context.Background()))
}

func (s *PostgresStoreSuite) newAthlete(email string) *models.Athlete {
	athlete, err := models.NewAthlete(
		id.NewAthleteID(),
		"Max", "Mustermann", email,
		time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Now().UTC(),
	)
	s.Require().NoError(err)
	athlete.PasswordHash = "hash"
	athlete.Sport = "football"
	athlete.NeedsParentalConsent = true
	return athlete
}

func (s *PostgresStoreSuite) newParent(email string) *models.Parent {
	parent, err := models.NewParent(id.NewParentID(), "Maria", "Mustermann", email, time.Now().UTC())
	s.Require().NoError(err)
	parent.Phone = "+49 151 1234567"
	parent.PasswordHash = "hash"
	return parent
}

func (s *PostgresStoreSuite) TestAthleteRoundTrip() {
	ctx := context.Background()

	parent := s.newParent("maria@example.com")
	s.Require().NoError(s.store.SaveParent(ctx, parent))

	athlete := s.newAthlete("max@example.com")
	athlete.ParentIDs = []id.ParentID{parent.ID}
	athlete.HasParentalConsent = true
	now := time.Now().UTC().Truncate(time.Millisecond)
	athlete.ParentalConsentDate = &now
	athlete.ParentalConsentBy = &parent.ID
	s.Require().NoError(s.store.SaveAthlete(ctx, athlete))

	fetched, err := s.store.FindAthleteByID(ctx, athlete.ID)
	s.Require().NoError(err)
	s.Equal(athlete.Email, fetched.Email)
	s.True(fetched.NeedsParentalConsent)
	s.True(fetched.HasParentalConsent)
	s.Require().NotNil(fetched.ParentalConsentBy)
	s.Equal(parent.ID, *fetched.ParentalConsentBy)
	s.Require().Len(fetched.ParentIDs, 1)
	s.Equal(parent.ID, fetched.ParentIDs[0])

	byEmail, err := s.store.FindAthleteByEmail(ctx, "max@example.com")
	s.Require().NoError(err)
	s.Equal(athlete.ID, byEmail.ID)

	fetchedParent, err := s.store.FindParentByID(ctx, parent.ID)
	s.Require().NoError(err)
	s.True(fetchedParent.CanConsentFor(athlete.ID))
}

func (s *PostgresStoreSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveAthlete(ctx, s.newAthlete("dup@example.com")))
	err := s.store.SaveAthlete(ctx, s.newAthlete("dup@example.com"))
	s.ErrorIs(err, sentinel.ErrConflict)

	s.Require().NoError(s.store.SaveParent(ctx, s.newParent("pdup@example.com")))
	err = s.store.SaveParent(ctx, s.newParent("pdup@example.com"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateAthleteReplacesParentLinks() {
	ctx := context.Background()

	first := s.newParent("first@example.com")
	second := s.newParent("second@example.com")
	s.Require().NoError(s.store.SaveParent(ctx, first))
	s.Require().NoError(s.store.SaveParent(ctx, second))

	athlete := s.newAthlete("links@example.com")
	athlete.ParentIDs = []id.ParentID{first.ID}
	s.Require().NoError(s.store.SaveAthlete(ctx, athlete))

	athlete.ParentIDs = []id.ParentID{second.ID}
	athlete.HasParentalConsent = true
	s.Require().NoError(s.store.UpdateAthlete(ctx, athlete))

	fetched, err := s.store.FindAthleteByID(ctx, athlete.ID)
	s.Require().NoError(err)
	s.True(fetched.HasParentalConsent)
	s.Require().Len(fetched.ParentIDs, 1)
	s.Equal(second.ID, fetched.ParentIDs[0])
}

func (s *PostgresStoreSuite) TestDeleteAndNotFound() {
	ctx := context.Background()

	athlete := s.newAthlete("gone@example.com")
	s.Require().NoError(s.store.SaveAthlete(ctx, athlete))
	s.Require().NoError(s.store.DeleteAthlete(ctx, athlete.ID))

	_, err := s.store.FindAthleteByID(ctx, athlete.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.DeleteAthlete(ctx, id.NewAthleteID()), sentinel.ErrNotFound)
	s.ErrorIs(s.store.DeleteParent(ctx, id.NewParentID()), sentinel.ErrNotFound)
	_, err = s.store.FindParentByEmail(ctx, "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAthletes() {
	ctx := context.Background()

	s.Require().NoError(s.store.SaveAthlete(ctx, s.newAthlete("a@example.com")))
	s.Require().NoError(s.store.SaveAthlete(ctx, s.newAthlete("b@example.com")))

	list, err := s.store.ListAthletes(ctx)
	s.Require().NoError(err)
	s.Len(list, 2)
}
