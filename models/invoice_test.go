package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeAmounts(t *testing.T) {
	inv := Invoice{SubtotalAmount: 1000.00, VATRate: 19}
	inv.ComputeAmounts()

	assert.Equal(t, 190.00, inv.VATAmount)
	assert.Equal(t, 1190.00, inv.TotalAmount)
	assert.True(t, inv.AmountsConsistent())
}

func TestComputeAmountsRounding(t *testing.T) {
	inv := Invoice{SubtotalAmount: 33.33, VATRate: 19}
	inv.ComputeAmounts()

	assert.InDelta(t, 6.33, inv.VATAmount, 0.001)
	assert.True(t, inv.AmountsConsistent())
}

func TestAmountsConsistent(t *testing.T) {
	inv := Invoice{SubtotalAmount: 100, VATAmount: 19, TotalAmount: 119}
	assert.True(t, inv.AmountsConsistent())

	inv.TotalAmount = 119.005
	assert.True(t, inv.AmountsConsistent(), "within tolerance")

	inv.TotalAmount = 120
	assert.False(t, inv.AmountsConsistent())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{"draft to awaiting", StatusDraft, StatusAwaitingClientSignature, true},
		{"draft to sent", StatusDraft, StatusSent, true},
		{"awaiting to sent", StatusAwaitingClientSignature, StatusSent, true},
		{"sent to paid", StatusSent, StatusPaid, true},
		{"sent to payment_failed", StatusSent, StatusPaymentFailed, true},
		{"payment_failed to paid", StatusPaymentFailed, StatusPaid, true},
		{"payment_failed retry to sent", StatusPaymentFailed, StatusSent, true},
		{"draft to cancelled", StatusDraft, StatusCancelled, true},
		{"paid never reverts", StatusPaid, StatusSent, false},
		{"paid is terminal", StatusPaid, StatusPaymentFailed, false},
		{"cancelled is terminal", StatusCancelled, StatusSent, false},
		{"voided is terminal", StatusVoided, StatusPaid, false},
		{"draft cannot jump to paid", StatusDraft, StatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusPaid))
	assert.True(t, IsTerminalStatus(StatusVoided))
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.False(t, IsTerminalStatus(StatusDraft))
	assert.False(t, IsTerminalStatus(StatusSent))
	assert.False(t, IsTerminalStatus(StatusPaymentFailed))
}

func TestSignatureState(t *testing.T) {
	now := time.Now()

	inv := Invoice{}
	assert.Equal(t, SignatureUnsigned, inv.SignatureState())

	inv.VendorSignedAt = &now
	assert.Equal(t, SignatureVendorSigned, inv.SignatureState())

	inv.ClientSignedAt = &now
	assert.Equal(t, SignatureBothSigned, inv.SignatureState())

	inv.VendorSignedAt = nil
	assert.Equal(t, SignatureClientSigned, inv.SignatureState())
}

func TestIsParty(t *testing.T) {
	inv := Invoice{VendorID: 1, ClientID: 2}

	assert.True(t, inv.IsParty(1))
	assert.True(t, inv.IsParty(2))
	assert.False(t, inv.IsParty(3))
}
