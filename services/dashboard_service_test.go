package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/models"
)

func TestComputeStats(t *testing.T) {
	listings := []models.Listing{
		{Status: models.ListingActive},
		{Status: models.ListingRented},
		{Status: models.ListingActive},
		{Status: models.ListingInactive},
	}
	bookings := []models.Booking{
		{BookingStatus: models.BookingPending},
		{BookingStatus: models.BookingConfirmed},
		{BookingStatus: models.BookingPending},
		{BookingStatus: models.BookingCancelled},
		{BookingStatus: models.BookingPending},
	}

	assert.Equal(t, Stats{
		TotalListings:   4,
		ActiveListings:  2,
		TotalBookings:   5,
		PendingBookings: 3,
	}, ComputeStats(listings, bookings))
	assert.Equal(t, Stats{}, ComputeStats(nil, nil))
}

func newDashboard(t *testing.T) (*DashboardService, *BookingService) {
	t.Helper()
	db := newTestDB(t)
	bookings := NewBookingService(db, SimulatedGateway{}, nil, nil)
	return NewDashboardService(NewListingService(db, nil, nil, nil), bookings, NewFavoriteService(db)), bookings
}

func TestDashboardLoad_Owner(t *testing.T) {
	svc, bookings := newDashboard(t)
	db := bookings.DB
	owner := createUser(t, db, models.RoleOwner)
	renter := createUser(t, db, models.RoleRenter)
	area := createArea(t, db, "অক্সিজেন")
	l := createListing(t, db, owner, area, 6000, models.CategoryRoom, 1)
	createListing(t, db, owner, area, 6000, models.CategoryRoom, 1, withStatus(models.ListingInactive))
	_, err := bookings.CreateBooking(bg, renter, l.ID, testForm)
	require.NoError(t, err)

	d, err := svc.Load(bg, owner)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, d.Role)
	assert.Len(t, d.Listings, 2)
	assert.Len(t, d.Bookings, 1)
	assert.Equal(t, ComputeStats(d.Listings, d.Bookings), d.Stats)
	assert.Equal(t, 1, d.Stats.ActiveListings)
	assert.Equal(t, 1, d.Stats.PendingBookings)
}

func TestDashboardLoad_Renter(t *testing.T) {
	svc, bookings := newDashboard(t)
	db := bookings.DB
	owner := createUser(t, db, models.RoleOwner)
	renter := createUser(t, db, models.RoleRenter)
	l := createListing(t, db, owner, createArea(t, db, "মুরাদপুর"), 6000, models.CategoryRoom, 1)
	_, err := bookings.CreateBooking(bg, renter, l.ID, testForm)
	require.NoError(t, err)

	d, err := svc.Load(bg, renter)
	require.NoError(t, err)
	assert.Empty(t, d.Listings)
	assert.Len(t, d.Bookings, 1)
	assert.NotNil(t, d.Favorites)
	assert.Equal(t, 0, d.Stats.TotalListings)

	_, err = svc.Load(bg, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
