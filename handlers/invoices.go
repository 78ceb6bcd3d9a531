package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/models"
	"github.com/yourusername/vendora/services"
	"gorm.io/gorm"
)

type InvoiceHandler struct {
	config  *config.Config
	store   *services.InvoiceStore
	signing *services.SigningService
	bridge  *services.PaymentBridge
}

func NewInvoiceHandler(db *gorm.DB, cfg *config.Config) *InvoiceHandler {
	store := services.NewInvoiceStore(db)
	stripeClient := services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	bridge := services.NewPaymentBridge(store, stripeClient)
	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.BillingName, cfg.BillingEmail)
	notifier := services.NewNotifier(store, mailer)

	return &InvoiceHandler{
		config:  cfg,
		store:   store,
		signing: services.NewSigningService(store, bridge, notifier, cfg.ClientSignaturePolicy),
		bridge:  bridge,
	}
}

type CreateInvoiceRequest struct {
	VendorID       uint     `json:"vendor_id"`
	ClientID       uint     `json:"client_id"`
	SubtotalAmount float64  `json:"subtotal_amount" binding:"required,gt=0"`
	VATRate        *float64 `json:"vat_rate"`
	Currency       string   `json:"currency"`
	Description    string   `json:"description"`
}

// CreateInvoice creates a draft. Either party may create, but the creator
// must be the vendor or the client of the new invoice; the counterparty
// comes from the request body.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, role, ok := actor(c)
	if !ok {
		return
	}

	inv := models.Invoice{
		VendorID:       req.VendorID,
		ClientID:       req.ClientID,
		SubtotalAmount: req.SubtotalAmount,
		Currency:       req.Currency,
		Description:    req.Description,
		Status:         models.StatusDraft,
	}

	switch role {
	case models.RoleVendor:
		inv.VendorID = actorID
	case models.RoleClient:
		inv.ClientID = actorID
	}

	if inv.VendorID == 0 || inv.ClientID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "both vendor_id and client_id are required"})
		return
	}

	if inv.Currency == "" {
		inv.Currency = "EUR"
	}

	inv.VATRate = h.config.VATRate
	if req.VATRate != nil {
		inv.VATRate = *req.VATRate
	}
	inv.ComputeAmounts()

	if err := h.store.Create(c.Request.Context(), &inv, actorID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.store.GetForParty(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	invoices, err := h.store.ListForParty(c.Request.Context(), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoices)
}

type SignInvoiceRequest struct {
	Name         string `json:"name" binding:"required"`
	SignatureURL string `json:"signature_url"`
}

// SignInvoice records the actor's signature. A vendor signature kicks off
// the send saga; when the saga fails after the signature committed, the
// response carries both the signed invoice and the retryable error.
func (h *InvoiceHandler) SignInvoice(c *gin.Context) {
	var req SignInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actorID, role, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.signing.Sign(c.Request.Context(), c.Param("id"), actorID, role, req.Name, req.SignatureURL)
	if err != nil {
		if inv != nil {
			// signature persisted, side effects incomplete
			status := http.StatusBadGateway
			if errors.Is(err, services.ErrStripeSetupRequired) {
				status = http.StatusPreconditionFailed
			}
			resp := gin.H{
				"error":   err.Error(),
				"invoice": inv,
			}
			if role == models.RoleVendor {
				// only the vendor may resume the send flow
				resp["retry"] = "POST /api/v1/invoices/" + inv.ID + "/send"
			}
			c.JSON(status, resp)
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// SendInvoice resumes a half-finished send: pending saga steps run, already
// completed ones are skipped.
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.store.GetForParty(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	if actorID != inv.VendorID {
		respondError(c, services.ErrWrongActor)
		return
	}

	if err := h.signing.RunSendSaga(c.Request.Context(), inv.ID); err != nil {
		respondError(c, err)
		return
	}

	current, err := h.store.Get(c.Request.Context(), inv.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, current)
}

// PayInvoice hands the client the hosted payment page URL.
func (h *InvoiceHandler) PayInvoice(c *gin.Context) {
	actorID, _, ok := actor(c)
	if !ok {
		return
	}

	inv, err := h.store.GetForParty(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondError(c, err)
		return
	}

	if actorID != inv.ClientID {
		respondError(c, services.ErrWrongActor)
		return
	}

	url, err := h.bridge.OpenPaymentPage(c.Request.Context(), inv)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_url": url})
}
