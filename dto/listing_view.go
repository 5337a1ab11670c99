package dto

import (
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"rental-backend/models"
)

const City = "চট্টগ্রাম"

// CategoryLabel is exhaustive over models.Categories.
func CategoryLabel(c models.Category) string {
	switch c {
	case models.CategoryRoom:
		return "রুম"
	case models.CategoryFlat:
		return "ফ্ল্যাট"
	case models.CategoryFamilyHouse:
		return "ফ্যামিলি বাসা"
	case models.CategoryOffice:
		return "অফিস"
	case models.CategoryHostel:
		return "হোস্টেল"
	}
	return ""
}

func FurnishingLabel(f models.Furnishing) string {
	switch f {
	case models.Furnished:
		return "ফার্নিশড"
	case models.SemiFurnished:
		return "সেমি-ফার্নিশড"
	case models.Unfurnished:
		return "আনফার্নিশড"
	}
	return ""
}

func StatusLabel(s models.ListingStatus) string {
	switch s {
	case models.ListingActive:
		return "সক্রিয়"
	case models.ListingInactive:
		return "নিষ্ক্রিয়"
	case models.ListingRented:
		return "ভাড়া হয়ে গেছে"
	}
	return ""
}

// ToBanglaDigits replaces ASCII digits with Bengali ones.
func ToBanglaDigits(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune('০' + (r - '0'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// groupIndian groups digits as 12,34,567: the last three, then pairs.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(parts, ",") + "," + tail
}

// FormatTaka renders amount rounded to whole taka, e.g. ৳১,২৫,০০০.
func FormatTaka(amount float64) string {
	n := int64(math.Round(math.Abs(amount)))
	sign := ""
	if amount < 0 && n != 0 {
		sign = "-"
	}
	digits := groupIndian(strconv.FormatInt(n, 10))
	return sign + "৳" + ToBanglaDigits(digits)
}

// Facility vocabulary shown as icons.
const (
	FacilityParking  = "পার্কিং"
	FacilityInternet = "ইন্টারনেট"
	FacilitySecurity = "নিরাপত্তা"
)

type FacilityIcon string

const (
	IconParking  FacilityIcon = "parking"
	IconInternet FacilityIcon = "internet"
	IconSecurity FacilityIcon = "security"
)

// FacilityIcons picks the icons whose keyword is exactly in facilities,
// in fixed order.
func FacilityIcons(facilities []string) []FacilityIcon {
	have := make(map[string]bool, len(facilities))
	for _, f := range facilities {
		have[norm.NFC.String(strings.TrimSpace(f))] = true
	}
	icons := []FacilityIcon{}
	if have[FacilityParking] {
		icons = append(icons, IconParking)
	}
	if have[FacilityInternet] {
		icons = append(icons, IconInternet)
	}
	if have[FacilitySecurity] {
		icons = append(icons, IconSecurity)
	}
	return icons
}

// MoreFacilities is the "+N" count shown when a card lists only three.
func MoreFacilities(facilities []string) int {
	if len(facilities) > 3 {
		return len(facilities) - 3
	}
	return 0
}

type OwnerView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

type ListingCard struct {
	ID              uint                 `json:"id"`
	Title           string               `json:"title"`
	Rent            float64              `json:"rent"`
	RentLabel       string               `json:"rent_label"`
	Category        models.Category      `json:"category"`
	CategoryLabel   string               `json:"category_label"`
	Furnishing      models.Furnishing    `json:"furnishing"`
	FurnishingLabel string               `json:"furnishing_label"`
	Rooms           int                  `json:"rooms"`
	Bathrooms       int                  `json:"bathrooms"`
	Location        string               `json:"location"`
	CoverImage      string               `json:"cover_image"`
	Facilities      []string             `json:"facilities"`
	FacilityIcons   []FacilityIcon       `json:"facility_icons"`
	MoreFacilities  int                  `json:"more_facilities"`
	Status          models.ListingStatus `json:"status"`
	Rented          bool                 `json:"rented"`
	CreatedAt       time.Time            `json:"created_at"`
}

type ListingDetail struct {
	ListingCard
	Description   string     `json:"description"`
	Advance       float64    `json:"advance"`
	AdvanceLabel  string     `json:"advance_label"`
	Address       string     `json:"address"`
	Size          int        `json:"size"`
	AvailableFrom *time.Time `json:"available_from,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Latitude      *float64   `json:"lat,omitempty"`
	Longitude     *float64   `json:"lng,omitempty"`
	Images        []string   `json:"images"`
	StatusLabel   string     `json:"status_label"`
	Owner         *OwnerView `json:"owner,omitempty"`
}

// LocationLine is "<area>, চট্টগ্রাম", or the city alone when the area
// was not joined.
func LocationLine(l models.Listing) string {
	if l.Area == nil || l.Area.Name == "" {
		return City
	}
	city := l.Area.City
	if city == "" {
		city = City
	}
	return l.Area.Name + ", " + city
}

func NewListingCard(l models.Listing) ListingCard {
	facilities := l.FacilityList()
	cover := ""
	if len(l.Images) > 0 {
		cover = l.Images[0].ImageURL
	}
	return ListingCard{
		ID:              l.ID,
		Title:           l.Title,
		Rent:            l.Rent,
		RentLabel:       FormatTaka(l.Rent),
		Category:        l.Category,
		CategoryLabel:   CategoryLabel(l.Category),
		Furnishing:      l.Furnishing,
		FurnishingLabel: FurnishingLabel(l.Furnishing),
		Rooms:           l.Rooms,
		Bathrooms:       l.Bathrooms,
		Location:        LocationLine(l),
		CoverImage:      cover,
		Facilities:      facilities,
		FacilityIcons:   FacilityIcons(facilities),
		MoreFacilities:  MoreFacilities(facilities),
		Status:          l.Status,
		Rented:          l.Status == models.ListingRented,
		CreatedAt:       l.CreatedAt,
	}
}

func NewListingCards(ls []models.Listing) []ListingCard {
	out := make([]ListingCard, 0, len(ls))
	for _, l := range ls {
		out = append(out, NewListingCard(l))
	}
	return out
}

// NewListingDetail includes the owner's phone; the detail page is where a
// renter contacts the owner.
func NewListingDetail(l models.Listing) ListingDetail {
	images := make([]string, 0, len(l.Images))
	for _, img := range l.Images {
		images = append(images, img.ImageURL)
	}
	d := ListingDetail{
		ListingCard:   NewListingCard(l),
		Description:   l.Description,
		Advance:       l.Advance,
		AdvanceLabel:  FormatTaka(l.Advance),
		Address:       l.Address,
		Size:          l.Size,
		AvailableFrom: l.AvailableFrom,
		Notes:         l.Notes,
		Latitude:      l.Latitude,
		Longitude:     l.Longitude,
		Images:        images,
		StatusLabel:   StatusLabel(l.Status),
	}
	if l.Owner != nil {
		d.Owner = &OwnerView{ID: l.Owner.ID, Name: l.Owner.Name, Phone: l.Owner.Phone}
	}
	return d
}
