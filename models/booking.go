package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	// PaymentRefunded and PaymentRefundFailed follow a rejected or
	// cancelled booking that had been paid.
	PaymentRefunded     PaymentStatus = "refunded"
	PaymentRefundFailed PaymentStatus = "refund_failed"
)

type Booking struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	ListingID     uint          `gorm:"index;not null" json:"listing_id"`
	RenterID      string        `gorm:"type:varchar(36);index;not null" json:"renter_id"`
	BookingDate   time.Time     `json:"booking_date"`
	AdvancePaid   float64       `json:"advance_paid"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(16);default:'pending'" json:"payment_status"`
	BookingStatus BookingStatus `gorm:"type:varchar(16);index;default:'pending'" json:"booking_status"`
	ContactName   string        `gorm:"size:255" json:"contact_name,omitempty"`
	ContactPhone  string        `gorm:"size:32" json:"contact_phone"`
	ContactEmail  string        `gorm:"size:255" json:"contact_email,omitempty"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	Renter  *User    `gorm:"foreignKey:RenterID;references:ID" json:"renter,omitempty"`
	Payment *Payment `gorm:"foreignKey:BookingID" json:"payment,omitempty"`
}

// PaymentCompleted is the status recorded on a payment row once the gateway
// accepted the charge.
const PaymentCompleted = "completed"

type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BookingID     uint      `gorm:"uniqueIndex;not null" json:"booking_id"`
	Amount        float64   `json:"amount"`
	Method        string    `gorm:"size:32" json:"method"`
	PaymentStatus string    `gorm:"size:32" json:"payment_status"`
	TransactionID string    `gorm:"size:128;uniqueIndex" json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_favorite_user_listing" json:"user_id"`
	ListingID uint      `gorm:"not null;uniqueIndex:idx_favorite_user_listing" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`

	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}
