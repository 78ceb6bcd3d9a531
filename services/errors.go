package services

import "errors"

// Sentinel errors, one per taxonomy class. Handlers map these to HTTP
// statuses; everything else is treated as an upstream/internal failure.
var (
	// validation — rejected locally, no state mutation
	ErrSignatureNameMismatch = errors.New("signature name does not match the name on file")
	ErrEmptySignatureName    = errors.New("signature name must not be empty")

	// authorization — actor is not allowed to touch the field or row
	ErrNotInvoiceParty = errors.New("user is not a party to this invoice")
	ErrWrongActor      = errors.New("actor role does not own this side of the invoice")

	// precondition — actionable, must not be rendered as a generic failure
	ErrStripeSetupRequired = errors.New("payment processor setup required: complete Stripe onboarding before sending invoices")

	// conflict
	ErrAlreadySigned = errors.New("this side of the invoice is already signed")

	// not-found
	ErrPaymentURLNotAvailable = errors.New("payment URL not available")
	ErrClientContactNotFound  = errors.New("client contact not found")
	ErrInvoiceNotFound        = errors.New("invoice not found")

	// storage boundary rejected a malformed row
	ErrCorruptInvoiceRecord = errors.New("invoice record failed validation")

	// state machine
	ErrInvalidTransition = errors.New("invalid invoice status transition")
)
