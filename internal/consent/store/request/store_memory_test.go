package request

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	"vigorlog/pkg/sentinel"
)

func TestInMemoryStoreOperations(t *testing.T) {
	store := New()
	ctx := context.Background()
	now := time.Now().UTC()

	athleteID := id.NewAthleteID()
	parentID := id.NewParentID()

	request, err := models.NewDualConsentRequest(id.NewRequestID(), athleteID, parentID,
		models.RequiredMinorConsents, now)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, request))
	require.ErrorIs(t, store.Save(ctx, request), sentinel.ErrConflict)

	fetched, err := store.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, fetched.Status)
	assert.Equal(t, now.Add(models.RequestTTL), fetched.ExpiresAt)

	// Copy integrity
	fetched.RequiredConsents[0] = models.TypeMarketing
	again, err := store.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TypeDataProcessing, again.RequiredConsents[0])

	pending, err := store.ListPendingByParent(ctx, parentID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	byAthlete, err := store.ListByAthlete(ctx, athleteID)
	require.NoError(t, err)
	require.Len(t, byAthlete, 1)

	// Decided requests leave the pending list
	fetched, err = store.FindByID(ctx, request.ID)
	require.NoError(t, err)
	fetched.Status = models.StatusApproved
	require.NoError(t, store.Update(ctx, fetched))

	pending, err = store.ListPendingByParent(ctx, parentID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	byAthlete, err = store.ListByAthlete(ctx, athleteID)
	require.NoError(t, err)
	require.Len(t, byAthlete, 1)
	assert.Equal(t, models.StatusApproved, byAthlete[0].Status)

	// Unknown IDs
	_, err = store.FindByID(ctx, id.NewRequestID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
	unknown := *request
	unknown.ID = id.NewRequestID()
	require.ErrorIs(t, store.Update(ctx, &unknown), sentinel.ErrNotFound)
}
