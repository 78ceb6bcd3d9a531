package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice statuses. Paid, voided and cancelled are terminal.
const (
	StatusDraft                   = "draft"
	StatusAwaitingClientSignature = "awaiting_client_signature"
	StatusSent                    = "sent"
	StatusPaid                    = "paid"
	StatusPaymentFailed           = "payment_failed"
	StatusVoided                  = "voided"
	StatusCancelled               = "cancelled"
)

// Signature states derived from the two signature timestamp pairs.
const (
	SignatureUnsigned     = "unsigned"
	SignatureVendorSigned = "vendor_signed"
	SignatureClientSigned = "client_signed"
	SignatureBothSigned   = "both_signed"
)

// AmountTolerance is the rounding slack allowed between total and
// subtotal+vat.
const AmountTolerance = 0.01

// statusTransitions is the canonical transition table. Webhook-driven
// terminal updates must only ever move forward through it; in particular a
// paid invoice never reverts.
var statusTransitions = map[string][]string{
	StatusDraft:                   {StatusAwaitingClientSignature, StatusSent, StatusCancelled, StatusVoided},
	StatusAwaitingClientSignature: {StatusSent, StatusCancelled, StatusVoided},
	StatusSent:                    {StatusPaid, StatusPaymentFailed, StatusCancelled, StatusVoided},
	StatusPaymentFailed:           {StatusSent, StatusPaid, StatusCancelled, StatusVoided},
	StatusPaid:                    {},
	StatusVoided:                  {},
	StatusCancelled:               {},
}

// CanTransition reports whether moving an invoice from one status to another
// is allowed by the state machine.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether the status ends the invoice lifecycle.
func IsTerminalStatus(status string) bool {
	return len(statusTransitions[status]) == 0
}

type Invoice struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// LegalInvoiceNumber is the sequential, jurisdiction-compliant identifier.
	// Assigned exactly once on first save and never rewritten.
	InvoiceNumber      string `gorm:"size:50" json:"invoice_number" validate:"required"`
	LegalInvoiceNumber string `gorm:"uniqueIndex;size:50;not null" json:"legal_invoice_number" validate:"required"`

	VendorID uint `gorm:"not null;index" json:"vendor_id" validate:"required"`
	ClientID uint `gorm:"not null;index" json:"client_id" validate:"required"`

	SubtotalAmount float64 `gorm:"not null" json:"subtotal_amount" validate:"gte=0"`
	VATRate        float64 `gorm:"not null" json:"vat_rate" validate:"gte=0"`
	VATAmount      float64 `gorm:"not null" json:"vat_amount" validate:"gte=0"`
	TotalAmount    float64 `gorm:"not null" json:"total_amount" validate:"gte=0"`
	Currency       string  `gorm:"size:10;default:'EUR'" json:"currency"`
	Description    string  `gorm:"type:text" json:"description"`

	Status string `gorm:"size:30;default:'draft'" json:"status" validate:"required,oneof=draft awaiting_client_signature sent paid payment_failed voided cancelled"`

	// Each signature pair is set atomically together and is write-once.
	VendorSignedAt     *time.Time `json:"vendor_signed_at"`
	VendorSignedName   string     `gorm:"size:255" json:"vendor_signed_name"`
	VendorSignatureURL string     `gorm:"size:500" json:"vendor_signature_url"`
	ClientSignedAt     *time.Time `json:"client_signed_at"`
	ClientSignedName   string     `gorm:"size:255" json:"client_signed_name"`
	ClientSignatureURL string     `gorm:"size:500" json:"client_signature_url"`

	// Populated once by the payment bridge, read-only afterwards.
	StripePDFURL           string `gorm:"size:500" json:"stripe_pdf_url"`
	StripeHostedInvoiceURL string `gorm:"size:500" json:"stripe_hosted_invoice_url"`

	IssuedAt time.Time `json:"issued_at"`
	TaxPoint time.Time `json:"tax_point"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// ComputeAmounts fills vat and total from the subtotal and vat rate.
func (i *Invoice) ComputeAmounts() {
	i.VATAmount = round2(i.SubtotalAmount * i.VATRate / 100)
	i.TotalAmount = round2(i.SubtotalAmount + i.VATAmount)
}

// AmountsConsistent checks total == subtotal + vat within tolerance.
func (i *Invoice) AmountsConsistent() bool {
	return math.Abs(i.TotalAmount-(i.SubtotalAmount+i.VATAmount)) <= AmountTolerance
}

// SignatureState derives the signature workflow state from the two
// timestamp pairs.
func (i *Invoice) SignatureState() string {
	switch {
	case i.VendorSignedAt != nil && i.ClientSignedAt != nil:
		return SignatureBothSigned
	case i.VendorSignedAt != nil:
		return SignatureVendorSigned
	case i.ClientSignedAt != nil:
		return SignatureClientSigned
	default:
		return SignatureUnsigned
	}
}

// IsParty reports whether the user is the invoice's vendor or client.
func (i *Invoice) IsParty(userID uint) bool {
	return userID == i.VendorID || userID == i.ClientID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
