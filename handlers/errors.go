package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vendora/services"
)

// respondError maps service errors onto HTTP statuses. Precondition and
// not-found failures carry their actionable message through; anything
// unclassified is reported as an upstream failure.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptySignatureName),
		errors.Is(err, services.ErrSignatureNameMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotInvoiceParty),
		errors.Is(err, services.ErrWrongActor):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadySigned),
		errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStripeSetupRequired):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error(), "code": "StripeSetupRequired"})
	case errors.Is(err, services.ErrInvoiceNotFound),
		errors.Is(err, services.ErrPaymentURLNotAvailable),
		errors.Is(err, services.ErrClientContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCorruptInvoiceRecord):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// actor pulls the authenticated user id and role set by the JWT middleware.
func actor(c *gin.Context) (uint, string, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, "", false
	}

	role, ok := c.Get("role")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, "", false
	}

	return userID.(uint), role.(string), true
}
