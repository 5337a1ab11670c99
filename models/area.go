package models

type Area struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:128;uniqueIndex" json:"name"`
	City string `gorm:"size:64" json:"city"`
}
