package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"

	"rental-backend/models"
)

func TestLabelsAreExhaustive(t *testing.T) {
	for _, c := range models.Categories {
		assert.NotEmpty(t, CategoryLabel(c), c)
	}
	for _, f := range models.Furnishings {
		assert.NotEmpty(t, FurnishingLabel(f), f)
	}
	for _, s := range []models.ListingStatus{models.ListingActive, models.ListingInactive, models.ListingRented} {
		assert.NotEmpty(t, StatusLabel(s), s)
	}
	assert.Empty(t, CategoryLabel("castle"))
}

func TestFormatTaka(t *testing.T) {
	cases := map[float64]string{
		0:         "৳০",
		999:       "৳৯৯৯",
		1000:      "৳১,০০০",
		12000:     "৳১২,০০০",
		125000:    "৳১,২৫,০০০",
		12345678:  "৳১,২৩,৪৫,৬৭৮",
		4999.6:    "৳৫,০০০",
		-2500:     "-৳২,৫০০",
		100000000: "৳১০,০০,০০,০০০",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatTaka(in), in)
	}
}

func TestFacilityIcons(t *testing.T) {
	assert.Equal(t,
		[]FacilityIcon{IconParking, IconInternet, IconSecurity},
		FacilityIcons([]string{"নিরাপত্তা", "ইন্টারনেট", " পার্কিং ", "লিফট"}),
	)
	assert.Equal(t, []FacilityIcon{}, FacilityIcons(nil))
	// substrings do not count
	assert.Empty(t, FacilityIcons([]string{"ফ্রি পার্কিং"}))
	// decomposed input still matches
	assert.Equal(t, []FacilityIcon{IconParking}, FacilityIcons([]string{norm.NFD.String(FacilityParking)}))
}

func TestMoreFacilities(t *testing.T) {
	assert.Equal(t, 0, MoreFacilities([]string{"a", "b", "c"}))
	assert.Equal(t, 2, MoreFacilities([]string{"a", "b", "c", "d", "e"}))
}

func TestNewListingDetail(t *testing.T) {
	phone := "01711000000"
	l := models.Listing{
		ID:         7,
		Title:      "ফ্ল্যাট",
		Rent:       125000,
		Advance:    250000,
		Category:   models.CategoryFamilyHouse,
		Furnishing: models.SemiFurnished,
		Facilities: []string{"পার্কিং", "লিফট", "জেনারেটর", "গ্যাস"},
		Status:     models.ListingRented,
		Area:       &models.Area{Name: "খুলশী", City: "চট্টগ্রাম"},
		Images:     []models.ListingImage{{ImageURL: "/a.jpg"}, {ImageURL: "/b.jpg"}},
		Owner:      &models.User{ID: "u1", Name: "মালিক", Phone: &phone},
	}

	d := NewListingDetail(l)
	assert.Equal(t, "৳১,২৫,০০০", d.RentLabel)
	assert.Equal(t, "৳২,৫০,০০০", d.AdvanceLabel)
	assert.Equal(t, "ফ্যামিলি বাসা", d.CategoryLabel)
	assert.Equal(t, "খুলশী, চট্টগ্রাম", d.Location)
	assert.Equal(t, "/a.jpg", d.CoverImage)
	assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, d.Images)
	assert.True(t, d.Rented)
	assert.Equal(t, 1, d.MoreFacilities)
	assert.Equal(t, []FacilityIcon{IconParking}, d.FacilityIcons)
	if assert.NotNil(t, d.Owner) {
		assert.Equal(t, &phone, d.Owner.Phone)
	}
}

func TestLocationLine_NoArea(t *testing.T) {
	assert.Equal(t, City, LocationLine(models.Listing{}))
	card := NewListingCard(models.Listing{})
	assert.Equal(t, []string{}, card.Facilities)
	assert.Empty(t, card.CoverImage)
}
