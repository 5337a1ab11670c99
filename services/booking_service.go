// services/booking_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rental-backend/events"
	"rental-backend/models"
)

// BookingForm is what the renter fills in on the listing page.
type BookingForm struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Notes     string `json:"notes"`
	CardToken string `json:"card_token"`
}

func (f *BookingForm) normalize() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.TrimSpace(f.Email)
	f.Notes = strings.TrimSpace(f.Notes)
	if f.Name == "" {
		return invalid("name", "নাম আবশ্যক")
	}
	if f.Phone == "" {
		return invalid("phone", "ফোন নম্বর আবশ্যক")
	}
	return nil
}

type BookingEvent struct {
	BookingID uint                 `json:"booking_id"`
	ListingID uint                 `json:"listing_id"`
	RenterID  string               `json:"renter_id"`
	Status    models.BookingStatus `json:"status"`
	Amount    float64              `json:"amount,omitempty"`
}

// BookingService wraps *gorm.DB and the payment gateway for the booking
// workflow.
type BookingService struct {
	DB        *gorm.DB
	Gateway   PaymentGateway
	Publisher events.Publisher
	Log       *zap.Logger
	Currency  string
}

func NewBookingService(db *gorm.DB, gateway PaymentGateway, pub events.Publisher, log *zap.Logger) *BookingService {
	if gateway == nil {
		gateway = SimulatedGateway{}
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{DB: db, Gateway: gateway, Publisher: pub, Log: log}
}

func (s *BookingService) publish(ctx context.Context, key string, ev BookingEvent) {
	if err := s.Publisher.Publish(ctx, key, ev); err != nil {
		s.Log.Warn("publish booking event", zap.String("key", key), zap.Error(err))
	}
}

// CreateBooking books listingID for the renter and charges the advance.
// Booking and payment rows are written in one transaction; a charge that
// cannot be committed is refunded.
func (s *BookingService) CreateBooking(ctx context.Context, actor *CurrentUser, listingID uint, form BookingForm) (*models.Booking, error) {
	ctx, span := tracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(attribute.Int64("listing.id", int64(listingID)))

	if actor == nil || actor.Profile == nil {
		return nil, ErrUnauthenticated
	}
	if err := form.normalize(); err != nil {
		return nil, err
	}
	if form.Email == "" {
		form.Email = actor.Email
	}

	var booking models.Booking
	var charge *ChargeResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.First(&listing, listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrListingNotFound
			}
			return fmt.Errorf("find listing: %w", err)
		}
		if listing.Status != models.ListingActive {
			return ErrListingUnavailable
		}
		if listing.OwnerID == actor.ID {
			return ErrOwnListing
		}

		var open int64
		err := tx.Model(&models.Booking{}).
			Where("listing_id = ? AND renter_id = ? AND booking_status IN ?", listingID, actor.ID,
				[]models.BookingStatus{models.BookingPending, models.BookingConfirmed}).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("check existing booking: %w", err)
		}
		if open > 0 {
			return ErrAlreadyBooked
		}

		booking = models.Booking{
			ListingID:     listing.ID,
			RenterID:      actor.ID,
			BookingDate:   time.Now().UTC(),
			AdvancePaid:   listing.Advance,
			PaymentStatus: models.PaymentPending,
			BookingStatus: models.BookingPending,
			ContactName:   form.Name,
			ContactPhone:  form.Phone,
			ContactEmail:  form.Email,
			Notes:         form.Notes,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		res, err := s.Gateway.Charge(ctx, ChargeRequest{
			BookingID: booking.ID,
			Amount:    listing.Advance,
			Currency:  s.Currency,
			CardToken: form.CardToken,
			Email:     form.Email,
		})
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) || errors.Is(err, ErrPaymentFailed) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
		charge = &res

		payment := models.Payment{
			BookingID:     booking.ID,
			Amount:        listing.Advance,
			Method:        s.Gateway.Name(),
			PaymentStatus: models.PaymentCompleted,
			TransactionID: res.TransactionID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("record payment: %w", err)
		}
		if err := tx.Model(&booking).Update("payment_status", models.PaymentPaid).Error; err != nil {
			return fmt.Errorf("mark booking paid: %w", err)
		}
		booking.PaymentStatus = models.PaymentPaid
		booking.Payment = &payment
		return nil
	})
	if err != nil {
		if charge != nil {
			s.refund(*charge)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.publish(ctx, events.BookingCreated, BookingEvent{
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		RenterID:  booking.RenterID,
		Status:    booking.BookingStatus,
		Amount:    booking.AdvancePaid,
	})
	return &booking, nil
}

func (s *BookingService) refund(charge ChargeResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Gateway.Refund(ctx, charge.TransactionID, charge.Amount); err != nil {
		s.Log.Error("refund after failed booking",
			zap.String("transaction_id", charge.TransactionID), zap.Float64("amount", charge.Amount), zap.Error(err))
		return
	}
	s.Log.Warn("charge refunded after failed booking", zap.String("transaction_id", charge.TransactionID))
}

// refundAdvance returns the advance of a booking that was withdrawn after
// being paid and records the outcome on the booking and payment rows. The
// status change is already committed, so failures are logged and marked as
// refund_failed instead of being returned.
func (s *BookingService) refundAdvance(ctx context.Context, booking *models.Booking) {
	if booking.PaymentStatus != models.PaymentPaid {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	db := s.DB.WithContext(ctx)

	status := models.PaymentRefunded
	var payment models.Payment
	if err := db.Where("booking_id = ?", booking.ID).First(&payment).Error; err != nil {
		s.Log.Error("load payment for refund", zap.Uint("booking_id", booking.ID), zap.Error(err))
		status = models.PaymentRefundFailed
	} else if err := s.Gateway.Refund(ctx, payment.TransactionID, payment.Amount); err != nil {
		s.Log.Error("refund withdrawn booking",
			zap.Uint("booking_id", booking.ID), zap.String("transaction_id", payment.TransactionID),
			zap.Float64("amount", payment.Amount), zap.Error(err))
		status = models.PaymentRefundFailed
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Update("payment_status", status).Error; err != nil {
			return err
		}
		if status != models.PaymentRefunded {
			return nil
		}
		return tx.Model(&payment).Update("payment_status", string(models.PaymentRefunded)).Error
	})
	if err != nil {
		s.Log.Error("record refund outcome", zap.Uint("booking_id", booking.ID),
			zap.String("payment_status", string(status)), zap.Error(err))
	}
	booking.PaymentStatus = status
	if payment.ID != 0 {
		if status == models.PaymentRefunded {
			payment.PaymentStatus = string(models.PaymentRefunded)
		}
		booking.Payment = &payment
	}
}

// ListRenterBookings returns the renter's bookings with listing, area and
// images joined.
func (s *BookingService) ListRenterBookings(ctx context.Context, renterID string) ([]models.Booking, error) {
	return Find[models.Booking](ctx, s.DB, ListQuery{
		Eq:       map[string]any{"renter_id": renterID},
		Order:    "created_at DESC, id DESC",
		Preloads: []string{"Listing", "Listing.Area", "Listing.Images", "Payment"},
	})
}

// ListOwnerBookings returns bookings made on ownerID's listings.
func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID string) ([]models.Booking, error) {
	owned := s.DB.Model(&models.Listing{}).Select("id").Where("owner_id = ?", ownerID)
	return Find[models.Booking](ctx, s.DB, ListQuery{
		Where:    []Predicate{{SQL: "listing_id IN (?)", Args: []any{owned}}},
		Order:    "created_at DESC, id DESC",
		Preloads: []string{"Listing", "Listing.Area", "Renter", "Payment"},
	})
}

// UpdateBookingStatus lets the listing owner (or an admin) confirm or
// reject a pending booking. Confirming marks the listing rented in the same
// transaction; rejecting refunds the advance.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor *CurrentUser, bookingID uint, status models.BookingStatus) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if status != models.BookingConfirmed && status != models.BookingRejected {
		return nil, invalid("status", "অবৈধ স্ট্যাটাস")
	}

	var booking models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Listing").First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("find booking: %w", err)
		}
		if booking.Listing == nil {
			return ErrListingNotFound
		}
		if !actor.CanManage(booking.Listing.OwnerID) {
			return ErrNotListingOwner
		}
		if booking.BookingStatus != models.BookingPending {
			return ErrInvalidTransition
		}

		if status == models.BookingConfirmed {
			res := tx.Model(&models.Listing{}).
				Where("id = ? AND status <> ?", booking.ListingID, models.ListingRented).
				Update("status", models.ListingRented)
			if res.Error != nil {
				return fmt.Errorf("mark listing rented: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrListingUnavailable
			}
			booking.Listing.Status = models.ListingRented
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND booking_status = ?", booking.ID, models.BookingPending).
			Update("booking_status", status)
		if res.Error != nil {
			return fmt.Errorf("update booking: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		booking.BookingStatus = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if status == models.BookingRejected {
		s.refundAdvance(ctx, &booking)
	}

	s.publish(ctx, events.BookingStatusChanged, BookingEvent{
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		RenterID:  booking.RenterID,
		Status:    booking.BookingStatus,
	})
	return &booking, nil
}

// CancelBooking lets a renter withdraw a pending booking and refunds the
// advance.
func (s *BookingService) CancelBooking(ctx context.Context, actor *CurrentUser, bookingID uint) (*models.Booking, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	var booking models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("find booking: %w", err)
		}
		if booking.RenterID != actor.ID && actor.Role != models.RoleAdmin {
			return ErrForbidden
		}
		if booking.BookingStatus != models.BookingPending {
			return ErrInvalidTransition
		}
		if err := tx.Model(&booking).Update("booking_status", models.BookingCancelled).Error; err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		booking.BookingStatus = models.BookingCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.refundAdvance(ctx, &booking)
	s.publish(ctx, events.BookingStatusChanged, BookingEvent{
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		RenterID:  booking.RenterID,
		Status:    booking.BookingStatus,
	})
	return &booking, nil
}
