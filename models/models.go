package models

// All lists every table in parent -> child order for AutoMigrate.
func All() []any {
	return []any{
		&AuthIdentity{},
		&User{},
		&Session{},
		&PhoneVerification{},
		&Area{},
		&Listing{},
		&ListingImage{},
		&Booking{},
		&Payment{},
		&Favorite{},
		&ContactMessage{},
	}
}
