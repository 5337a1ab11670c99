package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/models"
)

func TestToggleFavorite_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, models.RoleOwner)
	renter := createUser(t, db, models.RoleRenter)
	l := createListing(t, db, owner, createArea(t, db, "বহদ্দারহাট"), 7000, models.CategoryRoom, 1)
	svc := NewFavoriteService(db)

	before, err := svc.IsFavorite(bg, renter.ID, l.ID)
	require.NoError(t, err)
	require.False(t, before)

	on, err := svc.Toggle(bg, renter.ID, l.ID)
	require.NoError(t, err)
	assert.True(t, on)

	favs, err := svc.ListFavorites(bg, renter.ID)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	require.NotNil(t, favs[0].Listing)
	assert.Equal(t, l.ID, favs[0].Listing.ID)

	off, err := svc.Toggle(bg, renter.ID, l.ID)
	require.NoError(t, err)
	assert.False(t, off)

	after, err := svc.IsFavorite(bg, renter.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestToggleFavorite_UnknownListing(t *testing.T) {
	db := newTestDB(t)
	renter := createUser(t, db, models.RoleRenter)

	_, err := NewFavoriteService(db).Toggle(bg, renter.ID, 404)
	assert.ErrorIs(t, err, ErrListingNotFound)
}
