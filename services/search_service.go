package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"rental-backend/models"
)

var tracer = otel.Tracer("rental-backend/services")

const (
	maxSearchLimit = 100
	featuredLimit  = 6
)

var listingPreloads = []string{"Area", "Images", "Owner"}

// NormalizeName trims s and puts it in NFC so that Bangla names typed with
// different code point sequences compare equal.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// SearchFilters are the browse inputs. Zero values mean "no filter".
type SearchFilters struct {
	Query      string
	Location   string
	Category   models.Category
	MinRent    *float64
	MaxRent    *float64
	Rooms      *int
	Furnishing models.Furnishing
	Limit      int
}

func (f SearchFilters) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return invalid("category", "অবৈধ ক্যাটাগরি")
	}
	if f.Furnishing != "" && !f.Furnishing.Valid() {
		return invalid("furnishing", "অবৈধ ফার্নিশিং")
	}
	if f.MinRent != nil && *f.MinRent < 0 {
		return invalid("minRent", "ভাড়া ঋণাত্মক হতে পারে না")
	}
	if f.MaxRent != nil && *f.MaxRent < 0 {
		return invalid("maxRent", "ভাড়া ঋণাত্মক হতে পারে না")
	}
	if f.MinRent != nil && f.MaxRent != nil && *f.MinRent > *f.MaxRent {
		return invalid("minRent", "সর্বনিম্ন ভাড়া সর্বোচ্চ ভাড়ার বেশি")
	}
	if f.Rooms != nil && *f.Rooms < 0 {
		return invalid("rooms", "রুম সংখ্যা ঋণাত্মক হতে পারে না")
	}
	if f.Limit < 0 {
		return invalid("limit", "invalid limit")
	}
	return nil
}

func (f SearchFilters) limit() int {
	if f.Limit <= 0 || f.Limit > maxSearchLimit {
		return maxSearchLimit
	}
	return f.Limit
}

type SearchService struct {
	DB *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{DB: db}
}

// ResolveArea maps an area name to its ids, ignoring case. An unknown name
// gives an empty slice, not an error.
func (s *SearchService) ResolveArea(ctx context.Context, name string) ([]uint, error) {
	var ids []uint
	err := s.DB.WithContext(ctx).Model(&models.Area{}).
		Where("LOWER(name) = ?", strings.ToLower(NormalizeName(name))).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: resolve area: %v", ErrLoadFailed, err)
	}
	return ids, nil
}

// likeEscaper makes user text literal inside a LIKE pattern using '!' as
// the escape character, which needs no quoting on any supported driver.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchResult is one browse page. Truncated reports that more listings
// matched than Limit allowed.
type SearchResult struct {
	Listings  []models.Listing
	Limit     int
	Truncated bool
}

// Search returns active listings matching f, newest first, with area,
// images and owner joined.
func (s *SearchService) Search(ctx context.Context, f SearchFilters) ([]models.Listing, error) {
	res, err := s.SearchPage(ctx, f)
	if err != nil {
		return nil, err
	}
	return res.Listings, nil
}

// SearchPage is Search plus whether the result was cut at the limit.
func (s *SearchService) SearchPage(ctx context.Context, f SearchFilters) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "listings.search")
	defer span.End()

	if err := f.Validate(); err != nil {
		return SearchResult{}, err
	}
	limit := f.limit()
	res := SearchResult{Listings: []models.Listing{}, Limit: limit}

	q := ListQuery{
		Eq:       map[string]any{"status": models.ListingActive},
		In:       map[string]any{},
		Gte:      map[string]any{},
		Lte:      map[string]any{},
		Order:    "created_at DESC, id DESC",
		Limit:    limit + 1,
		Preloads: listingPreloads,
	}

	if loc := NormalizeName(f.Location); loc != "" {
		span.SetAttributes(attribute.String("search.location", loc))
		ids, err := s.ResolveArea(ctx, loc)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return SearchResult{}, err
		}
		if len(ids) == 0 {
			return res, nil
		}
		q.In["area_id"] = ids
	}
	if f.Category != "" {
		q.Eq["category"] = f.Category
	}
	if f.Furnishing != "" {
		q.Eq["furnishing"] = f.Furnishing
	}
	if f.Rooms != nil {
		q.Eq["rooms"] = *f.Rooms
	}
	if f.MinRent != nil {
		q.Gte["rent"] = *f.MinRent
	}
	if f.MaxRent != nil {
		q.Lte["rent"] = *f.MaxRent
	}
	if text := strings.ToLower(NormalizeName(f.Query)); text != "" {
		pattern := "%" + likeEscaper.Replace(text) + "%"
		q.Where = append(q.Where, Predicate{
			SQL:  "(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(address) LIKE ? ESCAPE '!')",
			Args: []any{pattern, pattern, pattern},
		})
	}

	listings, err := Find[models.Listing](ctx, s.DB, q)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return SearchResult{}, err
	}
	if len(listings) > limit {
		listings = listings[:limit]
		res.Truncated = true
	}
	res.Listings = listings
	span.SetAttributes(attribute.Int("search.results", len(listings)), attribute.Bool("search.truncated", res.Truncated))
	return res, nil
}

// Featured returns the newest active listings for the home page.
func (s *SearchService) Featured(ctx context.Context) ([]models.Listing, error) {
	return Find[models.Listing](ctx, s.DB, ListQuery{
		Eq:       map[string]any{"status": models.ListingActive},
		Order:    "created_at DESC, id DESC",
		Limit:    featuredLimit,
		Preloads: listingPreloads,
	})
}
