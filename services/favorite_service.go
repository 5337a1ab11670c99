package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/utils"
)

type FavoriteService struct {
	DB *gorm.DB
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{DB: db}
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID string, listingID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return count > 0, nil
}

// Toggle adds the listing to the user's favorites or removes it, and
// reports the new membership.
func (s *FavoriteService) Toggle(ctx context.Context, userID string, listingID uint) (bool, error) {
	var isFavorite bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.Select("id").First(&listing, listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListingNotFound
			}
			return err
		}

		res := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&models.Favorite{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			isFavorite = false
			return nil
		}
		if err := tx.Create(&models.Favorite{UserID: userID, ListingID: listingID}).Error; err != nil {
			// a concurrent toggle already added it
			if utils.IsDuplicateErr(err) {
				isFavorite = true
				return nil
			}
			return err
		}
		isFavorite = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return isFavorite, nil
}

// ListFavorites returns favorites newest first with listing, area and
// images joined.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID string) ([]models.Favorite, error) {
	return Find[models.Favorite](ctx, s.DB, ListQuery{
		Eq:       map[string]any{"user_id": userID},
		Order:    "created_at DESC, id DESC",
		Preloads: []string{"Listing", "Listing.Area", "Listing.Images"},
	})
}
