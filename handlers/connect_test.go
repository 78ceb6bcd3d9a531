package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/vendora/models"
	"github.com/yourusername/vendora/services"
)

func newTestConnectHandler(t *testing.T, store *services.InvoiceStore, stripeMock *MockStripeClient) *ConnectHandler {
	t.Helper()
	return &ConnectHandler{
		config: testConfig("acknowledge"),
		store:  store,
		stripe: stripeMock,
	}
}

func TestCreateConnectAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	vendor, _ := seedUsers(t, db)
	store := services.NewInvoiceStore(db)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", vendor.ID).
		Updates(map[string]interface{}{"stripe_account_id": "", "charges_enabled": false, "payouts_enabled": false}).Error)

	calls := 0
	stripeMock := workingStripeMock()
	stripeMock.CreateAccountFunc = func(ctx context.Context, email string) (string, error) {
		calls++
		assert.Equal(t, "alice@acme.test", email)
		return "acct_new_1", nil
	}
	handler := newTestConnectHandler(t, store, stripeMock)

	router := gin.Default()
	router.Use(authAs(vendor.ID, models.RoleVendor))
	router.POST("/connect/account", handler.CreateAccount)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/connect/account", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "acct_new_1")

	// second call returns the existing account without touching Stripe again
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/connect/account", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "acct_new_1")
	assert.Equal(t, 1, calls)
}

func TestCreateOnboardingLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	vendor, _ := seedUsers(t, db)
	store := services.NewInvoiceStore(db)

	var gotRefresh, gotReturn string
	stripeMock := workingStripeMock()
	stripeMock.CreateAccountLinkFunc = func(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
		gotRefresh, gotReturn = refreshURL, returnURL
		return "https://connect.stripe.test/setup/s/abc", nil
	}
	handler := newTestConnectHandler(t, store, stripeMock)

	router := gin.Default()
	router.Use(authAs(vendor.ID, models.RoleVendor))
	router.POST("/connect/onboarding-link", handler.CreateOnboardingLink)

	t.Run("Insecure URLs Replaced", func(t *testing.T) {
		body, _ := json.Marshal(OnboardingLinkRequest{
			RefreshURL: "http://evil.test/refresh",
			ReturnURL:  "https://vendor.example.com/done",
		})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/connect/onboarding-link", bytes.NewBuffer(body))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "https://connect.stripe.test/setup/s/abc")
		assert.Equal(t, "https://app.vendora.test/connect/refresh", gotRefresh)
		assert.Equal(t, "https://vendor.example.com/done", gotReturn)
	})

	t.Run("No Account Yet", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).Where("id = ?", vendor.ID).
			Update("stripe_account_id", "").Error)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/connect/onboarding-link", bytes.NewBufferString(`{}`))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	})
}

func TestConnectAccountStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	vendor, _ := seedUsers(t, db)
	store := services.NewInvoiceStore(db)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", vendor.ID).
		Updates(map[string]interface{}{"charges_enabled": false, "payouts_enabled": false}).Error)

	handler := newTestConnectHandler(t, store, workingStripeMock())

	router := gin.Default()
	router.Use(authAs(vendor.ID, models.RoleVendor))
	router.GET("/connect/status", handler.AccountStatus)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/connect/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"onboarded":true`)

	// the live flags are cached back onto the vendor row
	refreshed, err := store.GetUser(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.ChargesEnabled)
	assert.True(t, refreshed.PayoutsEnabled)
}
