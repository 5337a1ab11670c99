package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental-backend/dto"
	"rental-backend/middleware"
	"rental-backend/models"
	"rental-backend/services"
	"rental-backend/utils"
)

type ListingController struct {
	Listings *services.ListingService
	Search   *services.SearchService
}

func NewListingController(listings *services.ListingService, search *services.SearchService) *ListingController {
	return &ListingController{Listings: listings, Search: search}
}

func (lc *ListingController) GetAreas(c *gin.Context) {
	areas, err := lc.Listings.ListAreas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, areas)
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(utils.NormalizeDigits(raw), 64)
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "সংখ্যা দিন"}
	}
	return &v, nil
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(utils.NormalizeDigits(raw))
	if err != nil {
		return nil, &services.ValidationError{Field: key, Message: "পূর্ণসংখ্যা দিন"}
	}
	return &v, nil
}

// parseFilters reads q, location, category, minRent, maxRent, rooms,
// furnishing and limit from the query string.
func parseFilters(c *gin.Context) (services.SearchFilters, error) {
	f := services.SearchFilters{
		Query:      c.Query("q"),
		Location:   c.Query("location"),
		Category:   models.Category(strings.TrimSpace(c.Query("category"))),
		Furnishing: models.Furnishing(strings.TrimSpace(c.Query("furnishing"))),
	}
	var err error
	if f.MinRent, err = optionalFloat(c, "minRent"); err != nil {
		return f, err
	}
	if f.MaxRent, err = optionalFloat(c, "maxRent"); err != nil {
		return f, err
	}
	if f.Rooms, err = optionalInt(c, "rooms"); err != nil {
		return f, err
	}
	limit, err := optionalInt(c, "limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}
	return f, nil
}

func (lc *ListingController) Browse(c *gin.Context) {
	f, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := lc.Search.SearchPage(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccessMeta(c, http.StatusOK, dto.NewListingCards(res.Listings), gin.H{
		"count":     len(res.Listings),
		"limit":     res.Limit,
		"truncated": res.Truncated,
	})
}

func (lc *ListingController) Featured(c *gin.Context) {
	listings, err := lc.Search.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, dto.NewListingCards(listings))
}

func (lc *ListingController) GetListing(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	l, err := lc.Listings.GetListing(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, dto.NewListingDetail(*l))
}

func formFloat(form *multipart.Form, key string) (float64, error) {
	raw := strings.TrimSpace(firstValue(form, key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(utils.NormalizeDigits(raw), 64)
	if err != nil {
		return 0, &services.ValidationError{Field: key, Message: "সংখ্যা দিন"}
	}
	return v, nil
}

func formInt(form *multipart.Form, key string) (int, error) {
	v, err := formFloat(form, key)
	return int(v), err
}

func firstValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// listingFromForm reads the multipart listing form. Facilities may be sent
// as repeated fields or one comma separated field.
func listingFromForm(form *multipart.Form) (services.ListingInput, error) {
	in := services.ListingInput{
		Title:       firstValue(form, "title"),
		Description: firstValue(form, "description"),
		Category:    models.Category(firstValue(form, "category")),
		Furnishing:  models.Furnishing(firstValue(form, "furnishing")),
		Address:     firstValue(form, "address"),
		Notes:       firstValue(form, "notes"),
	}
	var err error
	if in.Rent, err = formFloat(form, "rent"); err != nil {
		return in, err
	}
	if in.Advance, err = formFloat(form, "advance"); err != nil {
		return in, err
	}
	if in.Rooms, err = formInt(form, "rooms"); err != nil {
		return in, err
	}
	if in.Bathrooms, err = formInt(form, "bathrooms"); err != nil {
		return in, err
	}
	if in.Size, err = formInt(form, "size"); err != nil {
		return in, err
	}
	area, err := formInt(form, "area_id")
	if err != nil {
		return in, err
	}
	in.AreaID = uint(area)

	for _, raw := range form.Value["facilities"] {
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				in.Facilities = append(in.Facilities, f)
			}
		}
	}
	if raw := strings.TrimSpace(firstValue(form, "available_from")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return in, &services.ValidationError{Field: "available_from", Message: "তারিখ YYYY-MM-DD আকারে দিন"}
		}
		in.AvailableFrom = &t
	}
	if firstValue(form, "lat") != "" || firstValue(form, "lng") != "" {
		lat, err := formFloat(form, "lat")
		if err != nil {
			return in, err
		}
		lng, err := formFloat(form, "lng")
		if err != nil {
			return in, err
		}
		in.Latitude, in.Longitude = &lat, &lng
	}
	return in, nil
}

func imagesFromForm(form *multipart.Form) []services.ImageUpload {
	files := form.File["images"]
	out := make([]services.ImageUpload, 0, len(files))
	for _, fh := range files {
		out = append(out, services.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return out
}

// CreateListing accepts multipart (fields + images[]) or plain JSON without
// images.
func (lc *ListingController) CreateListing(c *gin.Context) {
	u := middleware.CurrentUser(c)

	var in services.ListingInput
	var images []services.ImageUpload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			badRequest(c, "invalid multipart form")
			return
		}
		if in, err = listingFromForm(form); err != nil {
			respondError(c, err)
			return
		}
		images = imagesFromForm(form)
	} else if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload")
		return
	}

	l, err := lc.Listings.CreateListing(c.Request.Context(), u, in, images)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, dto.NewListingDetail(*l))
}

func (lc *ListingController) UpdateListing(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var in services.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	l, err := lc.Listings.UpdateListing(c.Request.Context(), middleware.CurrentUser(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, dto.NewListingDetail(*l))
}

type statusPayload struct {
	Status string `json:"status"`
}

func (lc *ListingController) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var p statusPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	l, err := lc.Listings.UpdateStatus(c.Request.Context(), middleware.CurrentUser(c), id, models.ListingStatus(p.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, dto.NewListingDetail(*l))
}

func (lc *ListingController) DeleteListing(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := lc.Listings.DeleteListing(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"deleted": id})
}
