package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigorlog/internal/athlete/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

func newTestAthlete(t *testing.T, email string) *models.Athlete {
	t.Helper()
	athlete, err := models.NewAthlete(
		id.NewAthleteID(),
		"Max", "Mustermann", email,
		time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		time.Now().UTC(),
	)
	require.NoError(t, err)
	athlete.PasswordHash = "hash"
	athlete.Sport = "football"
	return athlete
}

func newTestParent(t *testing.T, email string) *models.Parent {
	t.Helper()
	parent, err := models.NewParent(
		id.NewParentID(),
		"Maria", "Mustermann", email,
		time.Now().UTC(),
	)
	require.NoError(t, err)
	parent.Phone = "+49 151 1234567"
	parent.PasswordHash = "hash"
	return parent
}

func TestInMemoryStoreAthleteOperations(t *testing.T) {
	store := New()
	ctx := context.Background()

	athlete := newTestAthlete(t, "max@example.com")
	require.NoError(t, store.SaveAthlete(ctx, athlete))

	fetched, err := store.FindAthleteByID(ctx, athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, athlete.ID, fetched.ID)
	assert.Equal(t, athlete.Email, fetched.Email)

	byEmail, err := store.FindAthleteByEmail(ctx, "max@example.com")
	require.NoError(t, err)
	assert.Equal(t, athlete.ID, byEmail.ID)

	// Duplicate email is a conflict
	dup := newTestAthlete(t, "max@example.com")
	require.ErrorIs(t, store.SaveAthlete(ctx, dup), sentinel.ErrConflict)

	// Update
	parentID := id.NewParentID()
	fetched.ParentIDs = append(fetched.ParentIDs, parentID)
	fetched.HasParentalConsent = true
	require.NoError(t, store.UpdateAthlete(ctx, fetched))
	updated, err := store.FindAthleteByID(ctx, athlete.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasParentalConsent)
	require.Len(t, updated.ParentIDs, 1)
	assert.Equal(t, parentID, updated.ParentIDs[0])

	// Copy integrity: mutating a fetched copy never touches stored state
	updated.FirstName = "Changed"
	updated.ParentIDs[0] = id.NewParentID()
	fresh, err := store.FindAthleteByID(ctx, athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, "Max", fresh.FirstName)
	assert.Equal(t, parentID, fresh.ParentIDs[0])

	// List
	list, err := store.ListAthletes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// Find and delete non-existing
	_, err = store.FindAthleteByID(ctx, id.NewAthleteID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	require.ErrorIs(t, store.DeleteAthlete(ctx, id.NewAthleteID()), sentinel.ErrNotFound)

	// Delete
	require.NoError(t, store.DeleteAthlete(ctx, athlete.ID))
	_, err = store.FindAthleteByID(ctx, athlete.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreParentOperations(t *testing.T) {
	store := New()
	ctx := context.Background()

	parent := newTestParent(t, "maria@example.com")
	require.NoError(t, store.SaveParent(ctx, parent))

	fetched, err := store.FindParentByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, fetched.ID)

	byEmail, err := store.FindParentByEmail(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, parent.ID, byEmail.ID)

	dup := newTestParent(t, "maria@example.com")
	require.ErrorIs(t, store.SaveParent(ctx, dup), sentinel.ErrConflict)

	childID := id.NewAthleteID()
	fetched.ChildrenIDs = append(fetched.ChildrenIDs, childID)
	fetched.CanGiveConsentFor = append(fetched.CanGiveConsentFor, childID)
	fetched.HasDataConsent = true
	require.NoError(t, store.UpdateParent(ctx, fetched))

	updated, err := store.FindParentByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.True(t, updated.HasDataConsent)
	assert.True(t, updated.CanConsentFor(childID))

	require.NoError(t, store.DeleteParent(ctx, parent.ID))
	_, err = store.FindParentByID(ctx, parent.ID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
