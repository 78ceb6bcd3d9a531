package handlers

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/models"
	"github.com/yourusername/vendora/services"
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

// authAs fakes the JWT middleware for a given user.
func authAs(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}

type MockStripeClient struct {
	CreateAccountFunc       func(ctx context.Context, email string) (string, error)
	CreateAccountLinkFunc   func(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccountFunc          func(ctx context.Context, accountID string) (*services.AccountStatus, error)
	CreateHostedInvoiceFunc func(ctx context.Context, req services.HostedInvoiceRequest) (*services.HostedInvoice, error)
	ConstructEventFunc      func(payload []byte, signature string) (*stripe.Event, error)
}

func (m *MockStripeClient) CreateAccount(ctx context.Context, email string) (string, error) {
	return m.CreateAccountFunc(ctx, email)
}

func (m *MockStripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	return m.CreateAccountLinkFunc(ctx, accountID, refreshURL, returnURL)
}

func (m *MockStripeClient) GetAccount(ctx context.Context, accountID string) (*services.AccountStatus, error) {
	return m.GetAccountFunc(ctx, accountID)
}

func (m *MockStripeClient) CreateHostedInvoice(ctx context.Context, req services.HostedInvoiceRequest) (*services.HostedInvoice, error) {
	return m.CreateHostedInvoiceFunc(ctx, req)
}

func (m *MockStripeClient) ConstructWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	return m.ConstructEventFunc(payload, signature)
}

func workingStripeMock() *MockStripeClient {
	return &MockStripeClient{
		GetAccountFunc: func(ctx context.Context, accountID string) (*services.AccountStatus, error) {
			return &services.AccountStatus{ID: accountID, ChargesEnabled: true, PayoutsEnabled: true}, nil
		},
		CreateHostedInvoiceFunc: func(ctx context.Context, req services.HostedInvoiceRequest) (*services.HostedInvoice, error) {
			return &services.HostedInvoice{
				PDFURL:    "https://stripe.test/invoice.pdf",
				HostedURL: "https://stripe.test/pay/inv_1",
			}, nil
		},
	}
}

type MockMailer struct {
	SendCalls int
}

func (m *MockMailer) Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	m.SendCalls++
	return nil
}

// newTestInvoiceHandler wires an InvoiceHandler with mocked externals.
func newTestInvoiceHandler(db *gorm.DB, cfg *config.Config, stripeMock *MockStripeClient, mailer *MockMailer) *InvoiceHandler {
	store := services.NewInvoiceStore(db)
	bridge := services.NewPaymentBridge(store, stripeMock)
	notifier := services.NewNotifier(store, mailer)

	return &InvoiceHandler{
		config:  cfg,
		store:   store,
		signing: services.NewSigningService(store, bridge, notifier, cfg.ClientSignaturePolicy),
		bridge:  bridge,
	}
}
