package services

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/yourusername/vendora/models"
)

// PaymentBridge connects invoices to the vendor's Stripe Connect account.
// All operations are idempotent keyed on the invoice id: repeated calls for
// the same invoice never create a second hosted session.
type PaymentBridge struct {
	store  *InvoiceStore
	stripe StripeClientInterface
}

func NewPaymentBridge(store *InvoiceStore, stripeClient StripeClientInterface) *PaymentBridge {
	return &PaymentBridge{
		store:  store,
		stripe: stripeClient,
	}
}

// CreateOrGetHostedSession returns the invoice's hosted payment session,
// creating it on the vendor's connected account if it does not exist yet.
// The URLs are persisted on the invoice before being returned.
func (b *PaymentBridge) CreateOrGetHostedSession(ctx context.Context, inv *models.Invoice) (*HostedInvoice, error) {
	if inv.StripeHostedInvoiceURL != "" {
		return &HostedInvoice{PDFURL: inv.StripePDFURL, HostedURL: inv.StripeHostedInvoiceURL}, nil
	}

	vendor, err := b.store.GetUser(ctx, inv.VendorID)
	if err != nil {
		return nil, err
	}

	if vendor.StripeAccountID == "" {
		return nil, ErrStripeSetupRequired
	}

	if !vendor.PayoutReady() {
		// flags may be stale; re-check against the processor before refusing
		status, err := b.stripe.GetAccount(ctx, vendor.StripeAccountID)
		if err != nil {
			return nil, err
		}

		if err := b.store.SaveUserPayoutStatus(ctx, vendor.ID, status.ID, status.ChargesEnabled, status.PayoutsEnabled); err != nil {
			return nil, err
		}

		if !status.ChargesEnabled || !status.PayoutsEnabled {
			return nil, ErrStripeSetupRequired
		}
	}

	client, err := b.store.GetUser(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Email == "" {
		return nil, ErrClientContactNotFound
	}

	session, err := b.stripe.CreateHostedInvoice(ctx, HostedInvoiceRequest{
		AccountID:     vendor.StripeAccountID,
		CustomerEmail: client.Email,
		CustomerName:  client.DisplayName(),
		InvoiceID:     inv.ID,
		LegalNumber:   inv.LegalInvoiceNumber,
		Description:   inv.Description,
		Currency:      inv.Currency,
		AmountCents:   toCents(inv.TotalAmount),
	})
	if err != nil {
		return nil, err
	}

	if err := b.store.SetPaymentURLs(ctx, inv.ID, session.PDFURL, session.HostedURL); err != nil {
		return nil, err
	}

	log.Info().
		Str("invoice_id", inv.ID).
		Str("legal_invoice_number", inv.LegalInvoiceNumber).
		Msg("hosted payment session created")

	return session, nil
}

// OpenPaymentPage returns the hosted payment URL for the client. It prefers
// the URL on the invoice already in hand, falls back to a fresh store
// lookup, and reports a not-found error rather than silently succeeding.
func (b *PaymentBridge) OpenPaymentPage(ctx context.Context, inv *models.Invoice) (string, error) {
	if inv.StripeHostedInvoiceURL != "" {
		return inv.StripeHostedInvoiceURL, nil
	}

	fresh, err := b.store.Get(ctx, inv.ID)
	if err != nil {
		return "", err
	}

	if fresh.StripeHostedInvoiceURL == "" {
		return "", ErrPaymentURLNotAvailable
	}

	return fresh.StripeHostedInvoiceURL, nil
}

// ApplyPaymentEvent reconciles a processor webhook outcome into the store.
func (b *PaymentBridge) ApplyPaymentEvent(ctx context.Context, invoiceID, outcome string) error {
	if err := b.store.ApplyTerminalPaymentStatus(ctx, invoiceID, outcome); err != nil {
		return err
	}

	log.Info().
		Str("invoice_id", invoiceID).
		Str("outcome", outcome).
		Msg("payment outcome reconciled")

	return nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
