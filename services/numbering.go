package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/vendora/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const legalNumberAttempts = 5

// createWithLegalNumber persists a new invoice, assigning the next
// sequential legal invoice number for the current year when none is set.
// Serialization relies on the unique index on legal_invoice_number: when two
// concurrent creations pick the same candidate, the loser gets a duplicate
// key error and retries with a fresh read. Callers never see the conflict.
//
// Numbers already present are left untouched, so re-running the assignment
// for a numbered invoice is a no-op.
func (s *InvoiceStore) createWithLegalNumber(ctx context.Context, inv *models.Invoice) error {
	now := time.Now().UTC()

	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = now
	}
	if inv.TaxPoint.IsZero() {
		inv.TaxPoint = inv.IssuedAt
	}

	if inv.LegalInvoiceNumber != "" {
		if inv.InvoiceNumber == "" {
			inv.InvoiceNumber = inv.LegalInvoiceNumber
		}
		return s.db.WithContext(ctx).Create(inv).Error
	}

	callerNumber := inv.InvoiceNumber

	var err error
	for attempt := 0; attempt < legalNumberAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seq, err := nextLegalSequence(tx, now.Year())
			if err != nil {
				return err
			}

			inv.LegalInvoiceNumber = formatLegalNumber(now.Year(), seq)
			if inv.InvoiceNumber == "" {
				inv.InvoiceNumber = inv.LegalInvoiceNumber
			}

			return tx.Create(inv).Error
		})
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}

		// lost the race; clear the candidate and try again, keeping any
		// caller-supplied invoice number
		inv.LegalInvoiceNumber = ""
		inv.InvoiceNumber = callerNumber
	}

	return fmt.Errorf("assigning legal invoice number: %w", err)
}

func nextLegalSequence(tx *gorm.DB, year int) (int, error) {
	var last models.Invoice
	prefix := fmt.Sprintf("INV-%d-", year)

	// Length-then-lexicographic ordering yields the numeric max once the
	// sequence grows past four digits. Unscoped: a number held by a deleted
	// invoice stays reserved forever.
	err := tx.Unscoped().
		Where("legal_invoice_number LIKE ?", prefix+"%").
		Order("LENGTH(legal_invoice_number) DESC, legal_invoice_number DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return 0, err
	}

	if last.LegalInvoiceNumber == "" {
		return 1, nil
	}

	var seq int
	if _, err := fmt.Sscanf(last.LegalInvoiceNumber, "INV-%d-%d", &year, &seq); err != nil {
		return 0, fmt.Errorf("malformed legal invoice number %q: %w", last.LegalInvoiceNumber, err)
	}

	return seq + 1, nil
}

func formatLegalNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", year, seq)
}

// lockForUpdate takes a row lock on dialects that support it. sqlite (used
// in tests) has no FOR UPDATE and serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
