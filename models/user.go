package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a marketplace account can hold.
const (
	RoleVendor = "vendor"
	RoleClient = "client"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	BusinessName string         `gorm:"size:255" json:"business_name"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Role         string         `gorm:"size:20;default:'client'" json:"role"` // vendor, client
	Country      string         `gorm:"size:2" json:"country"`                // ISO country code
	IsActive     bool           `gorm:"default:true" json:"is_active"`

	// Stripe Connect payout account. Capability flags are cached from the
	// last account retrieval; both must be true before the vendor can collect.
	StripeAccountID string `gorm:"size:255" json:"stripe_account_id"`
	ChargesEnabled  bool   `gorm:"default:false" json:"charges_enabled"`
	PayoutsEnabled  bool   `gorm:"default:false" json:"payouts_enabled"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// DisplayName is what invoices and emails show for the user.
func (u *User) DisplayName() string {
	if u.BusinessName != "" {
		return u.BusinessName
	}
	return u.Name
}

// PayoutReady reports whether the vendor's connected account finished
// onboarding and can both charge and receive payouts.
func (u *User) PayoutReady() bool {
	return u.StripeAccountID != "" && u.ChargesEnabled && u.PayoutsEnabled
}
