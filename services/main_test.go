package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rental-backend/config"
	"rental-backend/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.ConnectDatabase(config.Settings{
		DBDriver:   "sqlite",
		SQLitePath: ":memory:",
		DBLogLevel: "silent",
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, role models.Role) *CurrentUser {
	t.Helper()
	id := uuid.NewString()
	u := models.User{ID: id, Email: id[:8] + "@example.com", Name: "user " + id[:4], Role: role}
	require.NoError(t, db.Create(&u).Error)
	return &CurrentUser{ID: u.ID, Email: u.Email, Role: role, Profile: &u}
}

func createArea(t *testing.T, db *gorm.DB, name string) models.Area {
	t.Helper()
	a := models.Area{Name: name, City: "চট্টগ্রাম"}
	require.NoError(t, db.Create(&a).Error)
	return a
}

type listingOpt func(*models.Listing)

func withStatus(s models.ListingStatus) listingOpt {
	return func(l *models.Listing) { l.Status = s }
}

func createListing(t *testing.T, db *gorm.DB, owner *CurrentUser, area models.Area, rent float64, cat models.Category, rooms int, opts ...listingOpt) models.Listing {
	t.Helper()
	l := models.Listing{
		OwnerID:    owner.ID,
		Title:      fmt.Sprintf("%s with %d rooms", cat, rooms),
		Rent:       rent,
		Advance:    rent * 2,
		Category:   cat,
		Rooms:      rooms,
		Furnishing: models.Unfurnished,
		AreaID:     area.ID,
		Status:     models.ListingActive,
	}
	for _, o := range opts {
		o(&l)
	}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func ptr[T any](v T) *T { return &v }

func ids(ls []models.Listing) []uint {
	out := make([]uint, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}

var bg = context.Background()
