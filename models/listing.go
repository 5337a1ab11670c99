package models

import (
	"time"

	"gorm.io/datatypes"
)

type Category string

const (
	CategoryRoom        Category = "room"
	CategoryFlat        Category = "flat"
	CategoryFamilyHouse Category = "family_house"
	CategoryOffice      Category = "office"
	CategoryHostel      Category = "hostel"
)

var Categories = []Category{CategoryRoom, CategoryFlat, CategoryFamilyHouse, CategoryOffice, CategoryHostel}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Furnishing string

const (
	Furnished     Furnishing = "furnished"
	SemiFurnished Furnishing = "semi_furnished"
	Unfurnished   Furnishing = "unfurnished"
)

var Furnishings = []Furnishing{Furnished, SemiFurnished, Unfurnished}

func (f Furnishing) Valid() bool {
	for _, v := range Furnishings {
		if f == v {
			return true
		}
	}
	return false
}

type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
	ListingRented   ListingStatus = "rented"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingInactive, ListingRented:
		return true
	}
	return false
}

type Listing struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	OwnerID       string                      `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	Title         string                      `gorm:"size:255;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Rent          float64                     `gorm:"index" json:"rent"`
	Advance       float64                     `json:"advance"`
	Category      Category                    `gorm:"type:varchar(32);index" json:"category"`
	Rooms         int                         `gorm:"index" json:"rooms"`
	Bathrooms     int                         `json:"bathrooms"`
	Furnishing    Furnishing                  `gorm:"type:varchar(32)" json:"furnishing"`
	Facilities    datatypes.JSONSlice[string] `json:"facilities"`
	AreaID        uint                        `gorm:"index" json:"area_id"`
	Address       string                      `gorm:"size:255" json:"address"`
	Size          int                         `json:"size"`
	AvailableFrom *time.Time                  `json:"available_from,omitempty"`
	Notes         string                      `gorm:"type:text" json:"notes,omitempty"`
	Latitude      *float64                    `json:"lat,omitempty"`
	Longitude     *float64                    `json:"lng,omitempty"`
	Status        ListingStatus               `gorm:"type:varchar(16);index;default:'active'" json:"status"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`

	Area   *Area          `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Images []ListingImage `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"images"`
	Owner  *User          `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
}

// FacilityList returns the facilities as a plain slice (never nil).
func (l Listing) FacilityList() []string {
	if l.Facilities == nil {
		return []string{}
	}
	return []string(l.Facilities)
}

type ListingImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ListingID  uint      `gorm:"index;not null" json:"listing_id"`
	ImageURL   string    `gorm:"type:text" json:"image_url"`
	StorageKey string    `gorm:"size:255" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
