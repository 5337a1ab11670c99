package config

import (
	"errors"

	"rental-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultCity = "চট্টগ্রাম"

// ChattogramAreas is the area lookup the search filter resolves names against.
var ChattogramAreas = []string{
	"আগ্রাবাদ",
	"খুলশী",
	"নাসিরাবাদ",
	"পাঁচলাইশ",
	"হালিশহর",
	"চকবাজার",
	"জামালখান",
	"বহদ্দারহাট",
	"মুরাদপুর",
	"জিইসি মোড়",
	"দেওয়ানহাট",
	"পতেঙ্গা",
	"কোতোয়ালী",
	"লালখান বাজার",
	"অক্সিজেন",
}

// SeedDatabase inserts the area table and a demo admin when they are missing.
func SeedDatabase(db *gorm.DB, log *zap.Logger) error {
	// ---------------- Areas ----------------
	var areaCount int64
	if err := db.Model(&models.Area{}).Count(&areaCount).Error; err != nil {
		return err
	}
	if areaCount == 0 {
		areas := make([]models.Area, 0, len(ChattogramAreas))
		for _, name := range ChattogramAreas {
			areas = append(areas, models.Area{Name: name, City: defaultCity})
		}
		if err := db.Create(&areas).Error; err != nil {
			return err
		}
		log.Info("areas seeded", zap.Int("count", len(areas)))
	}

	// ---------------- Admin ----------------
	const adminEmail = "admin@basha.local"
	var existing models.AuthIdentity
	err := db.Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		log.Warn("failed to hash default admin password", zap.Error(err))
		return nil
	}
	id := uuid.NewString()
	return db.Transaction(func(tx *gorm.DB) error {
		identity := models.AuthIdentity{
			ID:            id,
			Email:         adminEmail,
			PasswordHash:  string(hash),
			Provider:      models.ProviderEmail,
			EmailVerified: true,
			Metadata:      datatypes.NewJSONType(models.SignupMetadata{Name: "Admin", Role: models.RoleAdmin}),
		}
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.User{ID: id, Email: adminEmail, Name: "Admin", Role: models.RoleAdmin}).Error; err != nil {
			return err
		}
		log.Info("default admin seeded", zap.String("email", adminEmail))
		return nil
	})
}
