package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/models"
)

// SigningService runs the signature workflow. The vendor path fans out into
// the send saga: create the hosted payment session, advance the status, then
// notify the client. Each step is recorded durably so a partial failure
// resumes instead of repeating.
type SigningService struct {
	store        *InvoiceStore
	bridge       *PaymentBridge
	notifier     *Notifier
	clientPolicy string
}

func NewSigningService(store *InvoiceStore, bridge *PaymentBridge, notifier *Notifier, clientPolicy string) *SigningService {
	return &SigningService{
		store:        store,
		bridge:       bridge,
		notifier:     notifier,
		clientPolicy: clientPolicy,
	}
}

// Sign records a signature for the given role.
//
// Vendor signatures must match the vendor's on-file business name
// (case-insensitive); a mismatch fails validation with no mutation. Client
// signatures follow the configured policy: "acknowledge" only needs a
// non-empty name, "identity" must match the client's on-file name and moves
// an awaiting invoice to sent.
//
// On the vendor path the signature commit and the send saga are separate:
// if the saga fails the signature stays recorded, the returned invoice
// reflects it, and the error tells the caller to retry the send.
func (s *SigningService) Sign(ctx context.Context, invoiceID string, actorID uint, role, providedName, signatureURL string) (*models.Invoice, error) {
	name := strings.TrimSpace(providedName)
	if name == "" {
		return nil, ErrEmptySignatureName
	}

	inv, err := s.store.GetForParty(ctx, invoiceID, actorID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.RoleVendor:
		vendor, err := s.store.GetUser(ctx, inv.VendorID)
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(name, strings.TrimSpace(vendor.BusinessName)) {
			return nil, fmt.Errorf("%w: expected the registered business name", ErrSignatureNameMismatch)
		}

		signed, err := s.store.ApplyVendorSignature(ctx, invoiceID, actorID, name, signatureURL)
		if err != nil {
			return nil, err
		}

		// Signature is committed. Anything failing from here on leaves it in
		// place; the caller retries just the send.
		if err := s.RunSendSaga(ctx, signed.ID); err != nil {
			current, getErr := s.store.Get(ctx, signed.ID)
			if getErr != nil {
				current = signed
			}
			return current, err
		}

		return s.store.Get(ctx, signed.ID)

	case models.RoleClient:
		if s.clientPolicy == config.ClientPolicyIdentity {
			client, err := s.store.GetUser(ctx, inv.ClientID)
			if err != nil {
				return nil, err
			}
			if !strings.EqualFold(name, strings.TrimSpace(client.DisplayName())) {
				return nil, fmt.Errorf("%w: expected the name on file", ErrSignatureNameMismatch)
			}
		}

		signed, err := s.store.ApplyClientSignature(ctx, invoiceID, actorID, name, signatureURL)
		if err != nil {
			return nil, err
		}

		// Identity-checked acknowledgment gates the final transition.
		if s.clientPolicy == config.ClientPolicyIdentity && signed.Status == models.StatusAwaitingClientSignature {
			if err := s.store.UpdateStatus(ctx, signed.ID, models.StatusSent); err != nil {
				return signed, err
			}
		}

		return s.store.Get(ctx, signed.ID)

	default:
		return nil, fmt.Errorf("%w: role %q cannot sign", ErrWrongActor, role)
	}
}

// RunSendSaga executes the vendor sign-and-send side effects, skipping steps
// already recorded. Safe to call repeatedly: retrying a half-finished send
// neither duplicates the hosted session nor re-sends the notification.
func (s *SigningService) RunSendSaga(ctx context.Context, invoiceID string) error {
	inv, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return err
	}

	if inv.VendorSignedAt == nil {
		return fmt.Errorf("%w: invoice is not signed by the vendor", ErrInvalidTransition)
	}

	if models.IsTerminalStatus(inv.Status) {
		return fmt.Errorf("%w: invoice is %s", ErrInvalidTransition, inv.Status)
	}

	if err := s.runStep(ctx, inv.ID, models.StepPaymentSession, func() error {
		_, err := s.bridge.CreateOrGetHostedSession(ctx, inv)
		return err
	}); err != nil {
		return err
	}

	if err := s.runStep(ctx, inv.ID, models.StepAdvanceStatus, func() error {
		return s.advanceAfterVendorSign(ctx, inv.ID)
	}); err != nil {
		return err
	}

	return s.runStep(ctx, inv.ID, models.StepNotifyClient, func() error {
		return s.notifier.NotifyClient(ctx, inv.ID)
	})
}

func (s *SigningService) runStep(ctx context.Context, invoiceID, step string, fn func() error) error {
	done, err := s.store.StepDone(ctx, invoiceID, step)
	if err != nil {
		return err
	}
	if done {
		return nil
	}

	if err := fn(); err != nil {
		log.Warn().
			Str("invoice_id", invoiceID).
			Str("step", step).
			Err(err).
			Msg("send saga step failed")
		return err
	}

	return s.store.MarkStep(ctx, invoiceID, step)
}

// advanceAfterVendorSign picks the post-sign status: sent when the client
// has already signed or when client signatures are acknowledgment-only,
// awaiting_client_signature otherwise.
func (s *SigningService) advanceAfterVendorSign(ctx context.Context, invoiceID string) error {
	inv, err := s.store.Get(ctx, invoiceID)
	if err != nil {
		return err
	}

	if inv.Status != models.StatusDraft {
		return nil
	}

	target := models.StatusSent
	if inv.ClientSignedAt == nil && s.clientPolicy == config.ClientPolicyIdentity {
		target = models.StatusAwaitingClientSignature
	}

	return s.store.UpdateStatus(ctx, inv.ID, target)
}
