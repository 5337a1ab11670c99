package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"rental-backend/models"
)

type Stats struct {
	TotalListings   int `json:"total_listings"`
	ActiveListings  int `json:"active_listings"`
	TotalBookings   int `json:"total_bookings"`
	PendingBookings int `json:"pending_bookings"`
}

// ComputeStats counts over already-fetched rows.
func ComputeStats(listings []models.Listing, bookings []models.Booking) Stats {
	st := Stats{TotalListings: len(listings), TotalBookings: len(bookings)}
	for _, l := range listings {
		if l.Status == models.ListingActive {
			st.ActiveListings++
		}
	}
	for _, b := range bookings {
		if b.BookingStatus == models.BookingPending {
			st.PendingBookings++
		}
	}
	return st
}

type Dashboard struct {
	Role      models.Role       `json:"role"`
	Profile   *models.User      `json:"profile"`
	Listings  []models.Listing  `json:"listings"`
	Bookings  []models.Booking  `json:"bookings"`
	Favorites []models.Favorite `json:"favorites"`
	Stats     Stats             `json:"stats"`
}

type DashboardService struct {
	Listings  *ListingService
	Bookings  *BookingService
	Favorites *FavoriteService
}

func NewDashboardService(listings *ListingService, bookings *BookingService, favorites *FavoriteService) *DashboardService {
	return &DashboardService{Listings: listings, Bookings: bookings, Favorites: favorites}
}

// Load fetches the role's dashboard. The reads run concurrently and the
// first failure aborts the whole load.
func (s *DashboardService) Load(ctx context.Context, user *CurrentUser) (*Dashboard, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	ctx, span := tracer.Start(ctx, "dashboard.load")
	defer span.End()
	span.SetAttributes(attribute.String("user.role", string(user.Role)))

	d := &Dashboard{
		Role:      user.Role,
		Profile:   user.Profile,
		Listings:  []models.Listing{},
		Bookings:  []models.Booking{},
		Favorites: []models.Favorite{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if user.Role.CanManageListings() {
		g.Go(func() error {
			ls, err := s.Listings.ListOwnerListings(gctx, user.ID)
			d.Listings = ls
			return err
		})
		g.Go(func() error {
			bs, err := s.Bookings.ListOwnerBookings(gctx, user.ID)
			d.Bookings = bs
			return err
		})
	} else {
		g.Go(func() error {
			bs, err := s.Bookings.ListRenterBookings(gctx, user.ID)
			d.Bookings = bs
			return err
		})
	}
	g.Go(func() error {
		fs, err := s.Favorites.ListFavorites(gctx, user.ID)
		d.Favorites = fs
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	d.Stats = ComputeStats(d.Listings, d.Bookings)
	return d, nil
}
