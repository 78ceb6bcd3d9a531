package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/vendora/models"
	"gorm.io/gorm"
)

// InvoiceStore is the storage boundary for invoices. All party-ownership
// rules live here so they hold no matter which handler or UI is calling:
// only the vendor row-owner mutates vendor-side fields, only the client
// row-owner mutates client-side fields, and rows are shape-validated on the
// way out.
type InvoiceStore struct {
	db       *gorm.DB
	validate *validator.Validate
}

func NewInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{
		db:       db,
		validate: validator.New(),
	}
}

// Create persists a new draft invoice. The creator must be one of the two
// parties. Amounts are checked for consistency and the legal invoice number
// is assigned inside the same transaction (see numbering.go).
func (s *InvoiceStore) Create(ctx context.Context, inv *models.Invoice, creatorID uint) error {
	if !inv.IsParty(creatorID) {
		return ErrNotInvoiceParty
	}

	if !inv.AmountsConsistent() {
		return fmt.Errorf("%w: total %.2f does not equal subtotal %.2f + vat %.2f",
			ErrCorruptInvoiceRecord, inv.TotalAmount, inv.SubtotalAmount, inv.VATAmount)
	}

	if inv.Status == "" {
		inv.Status = models.StatusDraft
	}

	return s.createWithLegalNumber(ctx, inv)
}

// Get loads and validates a single invoice row. Rows failing shape
// validation are rejected rather than propagated with undefined fields.
func (s *InvoiceStore) Get(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if err := s.validate.Struct(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptInvoiceRecord, err)
	}

	if !inv.AmountsConsistent() {
		return nil, fmt.Errorf("%w: inconsistent amounts", ErrCorruptInvoiceRecord)
	}

	return &inv, nil
}

// GetForParty is Get plus the row-level read rule: only the invoice's vendor
// or client may see it.
func (s *InvoiceStore) GetForParty(ctx context.Context, id string, userID uint) (*models.Invoice, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsParty(userID) {
		return nil, ErrNotInvoiceParty
	}
	return inv, nil
}

// ListForParty returns invoices where the user is vendor or client.
func (s *InvoiceStore) ListForParty(ctx context.Context, userID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.WithContext(ctx).
		Where("vendor_id = ? OR client_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&invoices).Error
	return invoices, err
}

// ApplyVendorSignature sets the vendor signature pair atomically. The actor
// must be the invoice's vendor and the pair is write-once.
func (s *InvoiceStore) ApplyVendorSignature(ctx context.Context, id string, actorID uint, name, signatureURL string) (*models.Invoice, error) {
	return s.applySignature(ctx, id, actorID, name, signatureURL, models.RoleVendor)
}

// ApplyClientSignature is the symmetric client-side write.
func (s *InvoiceStore) ApplyClientSignature(ctx context.Context, id string, actorID uint, name, signatureURL string) (*models.Invoice, error) {
	return s.applySignature(ctx, id, actorID, name, signatureURL, models.RoleClient)
}

func (s *InvoiceStore) applySignature(ctx context.Context, id string, actorID uint, name, signatureURL, role string) (*models.Invoice, error) {
	var signed *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		now := time.Now().UTC()

		switch role {
		case models.RoleVendor:
			if inv.VendorID != actorID {
				return ErrWrongActor
			}
			if inv.VendorSignedAt != nil {
				return ErrAlreadySigned
			}
			inv.VendorSignedAt = &now
			inv.VendorSignedName = name
			inv.VendorSignatureURL = signatureURL
		case models.RoleClient:
			if inv.ClientID != actorID {
				return ErrWrongActor
			}
			if inv.ClientSignedAt != nil {
				return ErrAlreadySigned
			}
			inv.ClientSignedAt = &now
			inv.ClientSignedName = name
			inv.ClientSignatureURL = signatureURL
		default:
			return fmt.Errorf("unknown signing role: %s", role)
		}

		if err := tx.Save(&inv).Error; err != nil {
			return err
		}

		signed = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return signed, nil
}

// SetPaymentURLs records the hosted session URLs. Write-once: a second call
// returns the row untouched so repeated session creation stays idempotent.
func (s *InvoiceStore) SetPaymentURLs(ctx context.Context, id, pdfURL, hostedURL string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		if inv.StripeHostedInvoiceURL != "" {
			return nil
		}

		return tx.Model(&inv).Updates(map[string]interface{}{
			"stripe_pdf_url":            pdfURL,
			"stripe_hosted_invoice_url": hostedURL,
		}).Error
	})
}

// UpdateStatus moves the invoice through the transition table. The
// read-modify-write is transactional so two concurrent transitions cannot
// produce an inconsistent pair.
func (s *InvoiceStore) UpdateStatus(ctx context.Context, id, to string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		if inv.Status == to {
			return nil
		}

		if !models.CanTransition(inv.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, to)
		}

		return tx.Model(&inv).Update("status", to).Error
	})
}

// ApplyTerminalPaymentStatus reconciles a processor webhook outcome.
// Tolerates at-least-once and out-of-order delivery: a duplicate terminal
// status is a no-op and an already-terminal invoice is never reverted.
func (s *InvoiceStore) ApplyTerminalPaymentStatus(ctx context.Context, id, to string) error {
	if to != models.StatusPaid && to != models.StatusPaymentFailed {
		return fmt.Errorf("%w: %s is not a payment outcome", ErrInvalidTransition, to)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := lockForUpdate(tx).First(&inv, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		if inv.Status == to {
			return nil
		}

		// Stale or duplicate delivery after the lifecycle already ended.
		if models.IsTerminalStatus(inv.Status) {
			return nil
		}

		return tx.Model(&inv).Update("status", to).Error
	})
}

// StepDone reports whether a send-saga step already ran for the invoice.
func (s *InvoiceStore) StepDone(ctx context.Context, invoiceID, step string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.InvoiceStep{}).
		Where("invoice_id = ? AND step = ?", invoiceID, step).
		Count(&count).Error
	return count > 0, err
}

// MarkStep durably records a completed saga step. Safe under concurrent
// duplicate invocation: the unique index absorbs the race.
func (s *InvoiceStore) MarkStep(ctx context.Context, invoiceID, step string) error {
	err := s.db.WithContext(ctx).Create(&models.InvoiceStep{
		InvoiceID:   invoiceID,
		Step:        step,
		CompletedAt: time.Now().UTC(),
	}).Error
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

// GetUser loads a user row.
func (s *InvoiceStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SaveUserPayoutStatus caches the connected account capability flags.
func (s *InvoiceStore) SaveUserPayoutStatus(ctx context.Context, userID uint, accountID string, chargesEnabled, payoutsEnabled bool) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"stripe_account_id": accountID,
			"charges_enabled":   chargesEnabled,
			"payouts_enabled":   payoutsEnabled,
		}).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite without error translation
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
