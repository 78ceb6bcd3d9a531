package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"github.com/yourusername/vendora/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceStep{}))

	return db
}

func seedUsers(t *testing.T, db *gorm.DB) (vendor, client models.User) {
	t.Helper()

	vendor = models.User{
		Email:           "alice@acme.test",
		Name:            "Alice Larsen",
		BusinessName:    "Acme Ltd",
		PasswordHash:    "x",
		Role:            models.RoleVendor,
		StripeAccountID: "acct_test_1",
		ChargesEnabled:  true,
		PayoutsEnabled:  true,
	}
	client = models.User{
		Email:        "bob@client.test",
		Name:         "Bob Keller",
		PasswordHash: "x",
		Role:         models.RoleClient,
	}

	require.NoError(t, db.Create(&vendor).Error)
	require.NoError(t, db.Create(&client).Error)

	return vendor, client
}

func newDraftInvoice(t *testing.T, store *InvoiceStore, vendorID, clientID uint) *models.Invoice {
	t.Helper()

	inv := models.Invoice{
		VendorID:       vendorID,
		ClientID:       clientID,
		SubtotalAmount: 1000.00,
		VATRate:        19,
		Currency:       "EUR",
		Description:    "Consulting services",
	}
	inv.ComputeAmounts()
	require.NoError(t, store.Create(context.Background(), &inv, vendorID))

	return &inv
}

type MockStripeClient struct {
	CreateAccountFunc       func(ctx context.Context, email string) (string, error)
	CreateAccountLinkFunc   func(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccountFunc          func(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateHostedInvoiceFunc func(ctx context.Context, req HostedInvoiceRequest) (*HostedInvoice, error)
	ConstructEventFunc      func(payload []byte, signature string) (*stripe.Event, error)

	HostedInvoiceCalls int
}

func (m *MockStripeClient) CreateAccount(ctx context.Context, email string) (string, error) {
	return m.CreateAccountFunc(ctx, email)
}

func (m *MockStripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return m.CreateAccountLinkFunc(ctx, accountID, refreshURL, returnURL)
}

func (m *MockStripeClient) GetAccount(ctx context.Context, accountID string) (*AccountStatus, error) {
	return m.GetAccountFunc(ctx, accountID)
}

func (m *MockStripeClient) CreateHostedInvoice(ctx context.Context, req HostedInvoiceRequest) (*HostedInvoice, error) {
	m.HostedInvoiceCalls++
	return m.CreateHostedInvoiceFunc(ctx, req)
}

func (m *MockStripeClient) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	return m.ConstructEventFunc(payload, signature)
}

type MockMailer struct {
	SendFunc  func(ctx context.Context, toName, toEmail, subject, htmlBody string) error
	SendCalls int
}

func (m *MockMailer) Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	m.SendCalls++
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, toName, toEmail, subject, htmlBody)
}

func workingStripeMock() *MockStripeClient {
	return &MockStripeClient{
		GetAccountFunc: func(ctx context.Context, accountID string) (*AccountStatus, error) {
			return &AccountStatus{ID: accountID, ChargesEnabled: true, PayoutsEnabled: true}, nil
		},
		CreateHostedInvoiceFunc: func(ctx context.Context, req HostedInvoiceRequest) (*HostedInvoice, error) {
			return &HostedInvoice{
				PDFURL:    "https://stripe.test/invoice.pdf",
				HostedURL: "https://stripe.test/pay/inv_1",
			}, nil
		},
	}
}
