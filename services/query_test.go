package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/models"
)

func TestFind_AppliesEveryClause(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, models.RoleOwner)
	a := createArea(t, db, "এ")
	b := createArea(t, db, "বি")
	x := createListing(t, db, owner, a, 1000, models.CategoryRoom, 1)
	y := createListing(t, db, owner, b, 2000, models.CategoryRoom, 2)
	createListing(t, db, owner, b, 3000, models.CategoryFlat, 3)

	got, err := Find[models.Listing](bg, db, ListQuery{
		Eq:       map[string]any{"category": models.CategoryRoom},
		In:       map[string]any{"area_id": []uint{a.ID, b.ID}},
		Gte:      map[string]any{"rent": 500},
		Lte:      map[string]any{"rent": 2500},
		Order:    "rent ASC",
		Limit:    10,
		Preloads: []string{"Area"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, x.ID, got[0].ID)
	assert.Equal(t, y.ID, got[1].ID)
	require.NotNil(t, got[1].Area)
	assert.Equal(t, "বি", got[1].Area.Name)
}

func TestFind_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)

	got, err := Find[models.Listing](bg, db, ListQuery{Eq: map[string]any{"owner_id": "nobody"}})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFind_FailedJoinAbortsRead(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, models.RoleOwner)
	createListing(t, db, owner, createArea(t, db, "সি"), 1000, models.CategoryRoom, 1)

	got, err := Find[models.Listing](bg, db, ListQuery{Preloads: []string{"NoSuchRelation"}})
	assert.ErrorIs(t, err, ErrLoadFailed)
	assert.Nil(t, got)
}
