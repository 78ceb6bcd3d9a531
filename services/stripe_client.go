package services

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// AccountStatus is the slice of a connected account the invoicing flow
// cares about.
type AccountStatus struct {
	ID             string
	ChargesEnabled bool
	PayoutsEnabled bool
}

// HostedInvoiceRequest describes the hosted payment session to materialize
// on the vendor's connected account.
type HostedInvoiceRequest struct {
	AccountID     string
	CustomerEmail string
	CustomerName  string
	InvoiceID     string
	LegalNumber   string
	Description   string
	Currency      string
	AmountCents   int64
}

// HostedInvoice is the pair of URLs Stripe hands back for a finalized
// hosted invoice.
type HostedInvoice struct {
	PDFURL    string
	HostedURL string
}

// StripeClientInterface wraps the Stripe Connect operations used by the
// payment bridge and the onboarding handlers.
type StripeClientInterface interface {
	CreateAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateHostedInvoice(ctx context.Context, req HostedInvoiceRequest) (*HostedInvoice, error)
	ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error)
}

type StripeClient struct {
	api            *client.API
	webhookSignKey string
}

func NewStripeClient(apiKey, webhookSignKey string) StripeClientInterface {
	api := &client.API{}
	api.Init(apiKey, nil)

	return &StripeClient{
		api:            api,
		webhookSignKey: webhookSignKey,
	}
}

// CreateAccount creates an Express connected account for a vendor.
func (s *StripeClient) CreateAccount(ctx context.Context, email string) (string, error) {
	params := &stripe.AccountParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String(string(stripe.AccountTypeExpress)),
		Email:  stripe.String(email),
	}

	acct, err := s.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create connected account: %w", err)
	}

	return acct.ID, nil
}

// CreateAccountLink returns the onboarding URL for a connected account.
func (s *StripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Params:     stripe.Params{Context: ctx},
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}

	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create onboarding link: %w", err)
	}

	return link.URL, nil
}

// GetAccount retrieves the onboarding capability flags of a connected account.
func (s *StripeClient) GetAccount(ctx context.Context, accountID string) (*AccountStatus, error) {
	params := &stripe.AccountParams{Params: stripe.Params{Context: ctx}}

	acct, err := s.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve connected account: %w", err)
	}

	return &AccountStatus{
		ID:             acct.ID,
		ChargesEnabled: acct.ChargesEnabled,
		PayoutsEnabled: acct.PayoutsEnabled,
	}, nil
}

// CreateHostedInvoice creates and finalizes a send_invoice Stripe invoice on
// the vendor's connected account and returns the hosted page and PDF URLs.
// The idempotency key is derived from the invoice id, so retries for the
// same invoice cannot mint a second session on Stripe's side.
func (s *StripeClient) CreateHostedInvoice(ctx context.Context, req HostedInvoiceRequest) (*HostedInvoice, error) {
	connected := stripe.Params{Context: ctx, StripeAccount: stripe.String(req.AccountID)}

	customer, err := s.api.Customers.New(&stripe.CustomerParams{
		Params: connected,
		Email:  stripe.String(req.CustomerEmail),
		Name:   stripe.String(req.CustomerName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe customer: %w", err)
	}

	itemParams := &stripe.InvoiceItemParams{
		Params:      connected,
		Customer:    stripe.String(customer.ID),
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
	}
	itemParams.IdempotencyKey = stripe.String("invoice-item-" + req.InvoiceID)

	if _, err := s.api.InvoiceItems.New(itemParams); err != nil {
		return nil, fmt.Errorf("failed to create invoice item: %w", err)
	}

	invParams := &stripe.InvoiceParams{
		Params:           connected,
		Customer:         stripe.String(customer.ID),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodSendInvoice)),
		DaysUntilDue:     stripe.Int64(30),
	}
	invParams.IdempotencyKey = stripe.String("invoice-session-" + req.InvoiceID)
	invParams.AddMetadata("invoice_id", req.InvoiceID)
	invParams.AddMetadata("legal_invoice_number", req.LegalNumber)

	inv, err := s.api.Invoices.New(invParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create hosted invoice: %w", err)
	}

	finalized, err := s.api.Invoices.FinalizeInvoice(inv.ID, &stripe.InvoiceFinalizeInvoiceParams{Params: connected})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize hosted invoice: %w", err)
	}

	return &HostedInvoice{
		PDFURL:    finalized.InvoicePDF,
		HostedURL: finalized.HostedInvoiceURL,
	}, nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header and decodes the
// event payload.
func (s *StripeClient) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSignKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	return &event, nil
}
