package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/services"
	"github.com/yourusername/vendora/utils"
	"gorm.io/gorm"
)

// ConnectHandler drives vendor onboarding with the payment processor.
type ConnectHandler struct {
	config *config.Config
	store  *services.InvoiceStore
	stripe services.StripeClientInterface
}

func NewConnectHandler(db *gorm.DB, cfg *config.Config) *ConnectHandler {
	return &ConnectHandler{
		config: cfg,
		store:  services.NewInvoiceStore(db),
		stripe: services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
	}
}

// CreateAccount creates the vendor's Express connected account. Calling it
// again for a vendor that already has one just returns the existing id.
func (h *ConnectHandler) CreateAccount(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	if user.StripeAccountID != "" {
		c.JSON(http.StatusOK, gin.H{"account_id": user.StripeAccountID})
		return
	}

	accountID, err := h.stripe.CreateAccount(c.Request.Context(), user.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.SaveUserPayoutStatus(c.Request.Context(), user.ID, accountID, false, false); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account_id": accountID})
}

type OnboardingLinkRequest struct {
	RefreshURL string `json:"refresh_url"`
	ReturnURL  string `json:"return_url"`
}

// CreateOnboardingLink returns the processor-hosted onboarding URL. Redirect
// URLs are forced to https; insecure or missing ones fall back to the app
// base URL.
func (h *ConnectHandler) CreateOnboardingLink(c *gin.Context) {
	var req OnboardingLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	if user.StripeAccountID == "" {
		respondError(c, services.ErrStripeSetupRequired)
		return
	}

	refreshURL := utils.SecureRedirectURL(req.RefreshURL, h.config.AppBaseURL, "/connect/refresh")
	returnURL := utils.SecureRedirectURL(req.ReturnURL, h.config.AppBaseURL, "/connect/return")

	url, err := h.stripe.CreateAccountLink(c.Request.Context(), user.StripeAccountID, refreshURL, returnURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"onboarding_url": url})
}

// AccountStatus fetches the connected account's capability flags and caches
// them on the vendor row.
func (h *ConnectHandler) AccountStatus(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	user, err := h.store.GetUser(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	if user.StripeAccountID == "" {
		c.JSON(http.StatusOK, gin.H{
			"onboarded":       false,
			"charges_enabled": false,
			"payouts_enabled": false,
		})
		return
	}

	status, err := h.stripe.GetAccount(c.Request.Context(), user.StripeAccountID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.store.SaveUserPayoutStatus(c.Request.Context(), user.ID, status.ID, status.ChargesEnabled, status.PayoutsEnabled); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"onboarded":       status.ChargesEnabled && status.PayoutsEnabled,
		"charges_enabled": status.ChargesEnabled,
		"payouts_enabled": status.PayoutsEnabled,
	})
}
