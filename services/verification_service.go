package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"rental-backend/models"
	"rental-backend/utils"
)

const otpLength = 6

// VerificationProvider proves that a user controls a phone number.
type VerificationProvider interface {
	Send(ctx context.Context, userID, phone string) error
	Verify(ctx context.Context, userID, code string) error
}

// Notifier delivers a short text to a phone.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// LogNotifier writes the message to the log instead of sending an SMS.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, phone, message string) error {
	log := n.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("[MOCK SMS]", zap.String("phone", phone), zap.String("message", message))
	return nil
}

// normalizeOTP accepts exactly six ASCII or Bangla digits.
func normalizeOTP(code string) (string, error) {
	code = strings.TrimSpace(code)
	for _, r := range code {
		if !(r >= '0' && r <= '9') && !(r >= '০' && r <= '৯') {
			return "", invalid("code", "কোড শুধুমাত্র সংখ্যা হতে পারে")
		}
	}
	digits := utils.NormalizeDigits(code)
	if len(digits) != otpLength {
		return "", invalid("code", "৬ সংখ্যার কোড দিন")
	}
	return digits, nil
}

func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	digits := utils.NormalizeDigits(phone)
	if len(digits) < 10 || len(digits) > 15 {
		return "", invalid("phone", "সঠিক ফোন নম্বর দিন")
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + digits, nil
	}
	return digits, nil
}

func markPhoneVerified(tx *gorm.DB, userID, phone string) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{"phone": phone, "phone_verified": true})
	if res.Error != nil {
		return fmt.Errorf("mark phone verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnauthenticated
	}
	return nil
}

// CodeVerifier sends a random code and keeps only its bcrypt hash.
type CodeVerifier struct {
	DB          *gorm.DB
	Notifier    Notifier
	TTL         time.Duration
	MaxAttempts int

	now      func() time.Time
	generate func() (string, error)
}

func NewCodeVerifier(db *gorm.DB, notifier Notifier) *CodeVerifier {
	return &CodeVerifier{
		DB:          db,
		Notifier:    notifier,
		TTL:         5 * time.Minute,
		MaxAttempts: 5,
		now:         time.Now,
		generate:    func() (string, error) { return utils.GenerateNumericCode(otpLength) },
	}
}

func (v *CodeVerifier) Send(ctx context.Context, userID, phone string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	code, err := v.generate()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	rec := models.PhoneVerification{
		UserID:    userID,
		Phone:     phone,
		CodeHash:  string(hash),
		ExpiresAt: v.now().Add(v.TTL),
	}
	if err := v.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	msg := fmt.Sprintf("আপনার যাচাইকরণ কোড: %s", code)
	if err := v.Notifier.Notify(ctx, phone, msg); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}
	return nil
}

func (v *CodeVerifier) Verify(ctx context.Context, userID, code string) error {
	code, err := normalizeOTP(code)
	if err != nil {
		return err
	}
	db := v.DB.WithContext(ctx)

	var rec models.PhoneVerification
	err = db.Where("user_id = ? AND verified_at IS NULL", userID).Order("id DESC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("find code: %w", err)
	}

	now := v.now()
	if !now.Before(rec.ExpiresAt) {
		return ErrCodeExpired
	}
	if rec.Attempts >= v.MaxAttempts {
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		if err := db.Model(&rec).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return fmt.Errorf("count attempt: %w", err)
		}
		return ErrInvalidCode
	}

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PhoneVerification{}).
			Where("id = ? AND verified_at IS NULL", rec.ID).
			Update("verified_at", now)
		if res.Error != nil {
			return fmt.Errorf("mark code used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidCode
		}
		return markPhoneVerified(tx, userID, rec.Phone)
	})
}

// StaticCodeVerifier accepts one fixed code. It is a test and demo double
// selected with OTP_PROVIDER=static.
type StaticCodeVerifier struct {
	DB   *gorm.DB
	Code string
}

const DefaultStaticCode = "123456"

func (v *StaticCodeVerifier) Send(ctx context.Context, userID, phone string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	rec := models.PhoneVerification{UserID: userID, Phone: phone, ExpiresAt: time.Now().Add(24 * time.Hour)}
	if err := v.DB.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	return nil
}

func (v *StaticCodeVerifier) Verify(ctx context.Context, userID, code string) error {
	code, err := normalizeOTP(code)
	if err != nil {
		return err
	}
	want := v.Code
	if want == "" {
		want = DefaultStaticCode
	}
	if code != want {
		return ErrInvalidCode
	}
	return v.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.PhoneVerification
		err := tx.Where("user_id = ? AND verified_at IS NULL", userID).Order("id DESC").First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return fmt.Errorf("find code: %w", err)
		}
		if err := tx.Model(&rec).Update("verified_at", time.Now()).Error; err != nil {
			return fmt.Errorf("mark code used: %w", err)
		}
		return markPhoneVerified(tx, userID, rec.Phone)
	})
}
