package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v74"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/models"
	"github.com/yourusername/vendora/services"
	"gorm.io/gorm"
)

// WebhookHandler receives payment outcome events from Stripe. Delivery is
// at-least-once and unordered; reconciliation downstream absorbs duplicates.
type WebhookHandler struct {
	stripe services.StripeClientInterface
	bridge *services.PaymentBridge
}

func NewWebhookHandler(db *gorm.DB, cfg *config.Config) *WebhookHandler {
	store := services.NewInvoiceStore(db)
	stripeClient := services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	return &WebhookHandler{
		stripe: stripeClient,
		bridge: services.NewPaymentBridge(store, stripeClient),
	}
}

// HandleStripeEvent verifies the webhook signature and applies invoice
// payment outcomes. Unhandled event types are acknowledged so Stripe stops
// redelivering them.
func (h *WebhookHandler) HandleStripeEvent(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing Stripe-Signature header"})
		return
	}

	event, err := h.stripe.ConstructWebhookEvent(body, signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook signature"})
		return
	}

	switch event.Type {
	case "invoice.paid":
		h.applyOutcome(c, event, models.StatusPaid)
	case "invoice.payment_failed":
		h.applyOutcome(c, event, models.StatusPaymentFailed)
	default:
		log.Debug().Str("event_type", event.Type).Msg("ignoring stripe webhook event")
		c.Status(http.StatusOK)
	}
}

func (h *WebhookHandler) applyOutcome(c *gin.Context, event *stripe.Event, outcome string) {
	var stripeInvoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &stripeInvoice); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
		return
	}

	invoiceID := stripeInvoice.Metadata["invoice_id"]
	if invoiceID == "" {
		// not one of ours (e.g. an invoice created directly in the dashboard)
		log.Warn().Str("stripe_invoice", stripeInvoice.ID).Msg("webhook invoice without invoice_id metadata")
		c.Status(http.StatusOK)
		return
	}

	if err := h.bridge.ApplyPaymentEvent(c.Request.Context(), invoiceID, outcome); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}
