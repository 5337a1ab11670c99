package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"rental-backend/events"
	"rental-backend/models"
)

// ListingInput is the editable part of a listing.
type ListingInput struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Rent          float64           `json:"rent"`
	Advance       float64           `json:"advance"`
	Category      models.Category   `json:"category"`
	Rooms         int               `json:"rooms"`
	Bathrooms     int               `json:"bathrooms"`
	Furnishing    models.Furnishing `json:"furnishing"`
	Facilities    []string          `json:"facilities"`
	AreaID        uint              `json:"area_id"`
	Address       string            `json:"address"`
	Size          int               `json:"size"`
	AvailableFrom *time.Time        `json:"available_from"`
	Notes         string            `json:"notes"`
	Latitude      *float64          `json:"lat"`
	Longitude     *float64          `json:"lng"`
}

// Normalize trims text fields, NFC-normalizes and de-duplicates facilities
// and checks every value. Unknown enums never reach the store.
func (in *ListingInput) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.Title == "" {
		return invalid("title", "শিরোনাম আবশ্যক")
	}
	if !in.Category.Valid() {
		return invalid("category", "অবৈধ ক্যাটাগরি")
	}
	if !in.Furnishing.Valid() {
		return invalid("furnishing", "অবৈধ ফার্নিশিং")
	}
	if in.Rent < 0 || in.Advance < 0 {
		return invalid("rent", "ভাড়া বা অগ্রিম ঋণাত্মক হতে পারে না")
	}
	if in.Rooms < 0 || in.Bathrooms < 0 || in.Size < 0 {
		return invalid("rooms", "সংখ্যা ঋণাত্মক হতে পারে না")
	}
	if in.AreaID == 0 {
		return invalid("area_id", "এলাকা নির্বাচন করুন")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return invalid("lat", "অক্ষাংশ ও দ্রাঘিমাংশ দুটোই দিন")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180) {
		return invalid("lat", "অবৈধ অবস্থান")
	}

	seen := map[string]bool{}
	facilities := make([]string, 0, len(in.Facilities))
	for _, f := range in.Facilities {
		f = NormalizeName(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		facilities = append(facilities, f)
	}
	in.Facilities = facilities
	return nil
}

func (in ListingInput) apply(l *models.Listing) {
	l.Title = in.Title
	l.Description = in.Description
	l.Rent = in.Rent
	l.Advance = in.Advance
	l.Category = in.Category
	l.Rooms = in.Rooms
	l.Bathrooms = in.Bathrooms
	l.Furnishing = in.Furnishing
	l.Facilities = in.Facilities
	l.AreaID = in.AreaID
	l.Address = in.Address
	l.Size = in.Size
	l.AvailableFrom = in.AvailableFrom
	l.Notes = in.Notes
	l.Latitude = in.Latitude
	l.Longitude = in.Longitude
}

var listingEditableColumns = []string{
	"Title", "Description", "Rent", "Advance", "Category", "Rooms", "Bathrooms",
	"Furnishing", "Facilities", "AreaID", "Address", "Size", "AvailableFrom",
	"Notes", "Latitude", "Longitude",
}

// ImageUpload is one file from the listing form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func checkImages(images []ImageUpload) error {
	if len(images) > MaxListingImages {
		return invalid("images", fmt.Sprintf("সর্বোচ্চ %d টি ছবি", MaxListingImages))
	}
	for _, img := range images {
		if _, ok := ImageExtension(img.ContentType); !ok {
			return fmt.Errorf("%w: %s", ErrInvalidImage, img.Filename)
		}
		if img.Size > MaxImageBytes {
			return fmt.Errorf("%w: %s is larger than 5 MiB", ErrInvalidImage, img.Filename)
		}
	}
	return nil
}

type ListingEvent struct {
	ListingID uint   `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
}

type ListingService struct {
	DB        *gorm.DB
	Storage   ImageStorage
	Publisher events.Publisher
	Log       *zap.Logger
}

func NewListingService(db *gorm.DB, storage ImageStorage, pub events.Publisher, log *zap.Logger) *ListingService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ListingService{DB: db, Storage: storage, Publisher: pub, Log: log}
}

func (s *ListingService) publish(ctx context.Context, key string, payload any) {
	if err := s.Publisher.Publish(ctx, key, payload); err != nil {
		s.Log.Warn("publish listing event", zap.String("key", key), zap.Error(err))
	}
}

func (s *ListingService) ListAreas(ctx context.Context) ([]models.Area, error) {
	return Find[models.Area](ctx, s.DB, ListQuery{Order: "name ASC"})
}

func (s *ListingService) checkArea(db *gorm.DB, id uint) error {
	var count int64
	if err := db.Model(&models.Area{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check area: %w", err)
	}
	if count == 0 {
		return ErrAreaNotFound
	}
	return nil
}

// GetListing loads one listing with area, images and owner.
func (s *ListingService) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	var l models.Listing
	db := s.DB.WithContext(ctx)
	for _, p := range listingPreloads {
		db = db.Preload(p, orderByID)
	}
	if err := db.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return &l, nil
}

// ListOwnerListings returns every listing of ownerID regardless of status.
func (s *ListingService) ListOwnerListings(ctx context.Context, ownerID string) ([]models.Listing, error) {
	return Find[models.Listing](ctx, s.DB, ListQuery{
		Eq:       map[string]any{"owner_id": ownerID},
		Order:    "created_at DESC, id DESC",
		Preloads: []string{"Area", "Images"},
	})
}

// CreateListing stores the listing and uploads its images concurrently. If
// any upload fails the listing and every stored object are removed.
func (s *ListingService) CreateListing(ctx context.Context, actor *CurrentUser, in ListingInput, images []ImageUpload) (*models.Listing, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.Role.CanManageListings() {
		return nil, ErrForbidden
	}
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	if err := checkImages(images); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := s.checkArea(db, in.AreaID); err != nil {
		return nil, err
	}

	listing := models.Listing{OwnerID: actor.ID, Status: models.ListingActive}
	in.apply(&listing)
	if err := db.Create(&listing).Error; err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	stored, err := s.uploadImages(ctx, listing.ID, images)
	if err == nil && len(stored) > 0 {
		err = db.Create(&stored).Error
	}
	if err != nil {
		s.discard(listing.ID, stored)
		return nil, fmt.Errorf("store images: %w", err)
	}

	s.publish(ctx, events.ListingCreated, ListingEvent{ListingID: listing.ID, OwnerID: actor.ID})
	return s.GetListing(ctx, listing.ID)
}

// uploadImages returns the rows for every object that was stored, even on
// error, so the caller can clean them up.
func (s *ListingService) uploadImages(ctx context.Context, listingID uint, images []ImageUpload) ([]models.ListingImage, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if s.Storage == nil {
		return nil, errors.New("image storage not configured")
	}

	var mu sync.Mutex
	slots := make([]*models.ListingImage, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, img := range images {
		g.Go(func() error {
			ext, _ := ImageExtension(img.ContentType)
			key := fmt.Sprintf("%d/%d%s", listingID, i, ext)
			r, err := img.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", img.Filename, err)
			}
			defer r.Close()
			obj, err := s.Storage.Put(gctx, key, img.ContentType, io.LimitReader(r, MaxImageBytes+1))
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Filename, err)
			}
			mu.Lock()
			slots[i] = &models.ListingImage{ListingID: listingID, ImageURL: obj.URL, StorageKey: obj.Key}
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	out := make([]models.ListingImage, 0, len(slots))
	for _, img := range slots {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out, err
}

// discard undoes a half-created listing. It runs detached from the request
// context so that a cancelled request still cleans up.
func (s *ListingService) discard(listingID uint, stored []models.ListingImage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.deleteObjects(ctx, stored)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", listingID).Delete(&models.ListingImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Listing{}, listingID).Error
	})
	if err != nil {
		s.Log.Error("discard listing", zap.Uint("listing_id", listingID), zap.Error(err))
	}
}

func (s *ListingService) deleteObjects(ctx context.Context, images []models.ListingImage) {
	if s.Storage == nil {
		return
	}
	for _, img := range images {
		if img.StorageKey == "" {
			continue
		}
		if err := s.Storage.Delete(ctx, img.StorageKey); err != nil {
			s.Log.Warn("delete stored image", zap.String("key", img.StorageKey), zap.Error(err))
		}
	}
}

// ownedListing loads a listing the actor may manage.
func (s *ListingService) ownedListing(tx *gorm.DB, actor *CurrentUser, id uint) (*models.Listing, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	var l models.Listing
	if err := tx.First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	if !actor.CanManage(l.OwnerID) {
		return nil, ErrNotListingOwner
	}
	return &l, nil
}

func (s *ListingService) UpdateListing(ctx context.Context, actor *CurrentUser, id uint, in ListingInput) (*models.Listing, error) {
	if err := in.Normalize(); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.ownedListing(tx, actor, id)
		if err != nil {
			return err
		}
		if err := s.checkArea(tx, in.AreaID); err != nil {
			return err
		}
		in.apply(l)
		return tx.Model(l).Select(listingEditableColumns).Updates(l).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetListing(ctx, id)
}

func (s *ListingService) UpdateStatus(ctx context.Context, actor *CurrentUser, id uint, status models.ListingStatus) (*models.Listing, error) {
	if !status.Valid() {
		return nil, invalid("status", "অবৈধ স্ট্যাটাস")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.ownedListing(tx, actor, id)
		if err != nil {
			return err
		}
		return tx.Model(l).Update("status", status).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetListing(ctx, id)
}

// DeleteListing removes the listing with its images, favorites, bookings
// and their payments in one transaction. Stored objects are removed after
// commit.
func (s *ListingService) DeleteListing(ctx context.Context, actor *CurrentUser, id uint) error {
	var images []models.ListingImage
	var ownerID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.ownedListing(tx, actor, id)
		if err != nil {
			return err
		}
		ownerID = l.OwnerID
		if err := tx.Where("listing_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		bookingIDs := tx.Model(&models.Booking{}).Select("id").Where("listing_id = ?", id)
		if err := tx.Where("booking_id IN (?)", bookingIDs).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&models.Booking{}, &models.Favorite{}, &models.ListingImage{}} {
			if err := tx.Where("listing_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Listing{}, id).Error
	})
	if err != nil {
		return err
	}
	s.deleteObjects(ctx, images)
	s.publish(ctx, events.ListingDeleted, ListingEvent{ListingID: id, OwnerID: ownerID})
	return nil
}
