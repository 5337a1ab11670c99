package models

import (
	"time"

	"gorm.io/datatypes"
)

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRenter, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// CanManageListings reports whether the role may post and manage listings.
func (r Role) CanManageListings() bool {
	return r == RoleOwner || r == RoleAdmin
}

// User is the marketplace profile. ID is the auth identity id.
type User struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email         string    `gorm:"size:255;index" json:"email"`
	Name          string    `gorm:"size:255" json:"name"`
	Phone         *string   `gorm:"size:32" json:"phone,omitempty"`
	PhoneVerified bool      `gorm:"column:phone_verified;default:false" json:"phone_verified"`
	Role          Role      `gorm:"type:varchar(16);default:'renter'" json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"-"`
}

// SignupMetadata is what the sign-up form asked for; it is applied when the
// profile is first created.
type SignupMetadata struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// AuthIdentity holds credentials. Profiles live in users.
type AuthIdentity struct {
	ID                string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email             string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash      string     `gorm:"size:255" json:"-"` // empty for OAuth-only identities
	Provider          string     `gorm:"size:32;default:'email'" json:"provider"`
	ProviderSubject   string     `gorm:"size:255;index" json:"-"`
	EmailVerified     bool       `gorm:"default:false" json:"email_verified"`
	VerifyToken       *string    `gorm:"size:128;index" json:"-"`
	ResetToken        *string    `gorm:"size:128;index" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`

	Metadata datatypes.JSONType[SignupMetadata] `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Session backs a JWT so that sign-out can revoke it.
type Session struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string     `gorm:"type:varchar(36);index" json:"user_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type PhoneVerification struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     string     `gorm:"type:varchar(36);index" json:"user_id"`
	Phone      string     `gorm:"size:32" json:"phone"`
	CodeHash   string     `gorm:"size:255" json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Attempts   int        `gorm:"default:0" json:"attempts"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
