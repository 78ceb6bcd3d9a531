package services

import (
	"context"
	"fmt"
	"net/http"

	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/yourusername/vendora/models"
)

// MailerInterface is the notification sink: fire-and-report.
type MailerInterface interface {
	Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewSendGridMailer(apiKey, fromName, fromEmail string) MailerInterface {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, toName, toEmail, subject, htmlBody string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("email send rejected with status %d: %s", resp.StatusCode, resp.Body)
	}

	return nil
}

// Notifier emails the client when the vendor signs and sends an invoice.
type Notifier struct {
	store  *InvoiceStore
	mailer MailerInterface
}

func NewNotifier(store *InvoiceStore, mailer MailerInterface) *Notifier {
	return &Notifier{
		store:  store,
		mailer: mailer,
	}
}

// NotifyClient resolves the client's contact address and the vendor display
// name, renders the fixed invoice template and sends it once. A missing
// client address aborts the call; a failed send is reported to the caller
// but never rolls back state already committed.
func (n *Notifier) NotifyClient(ctx context.Context, invoiceID string) error {
	inv, err := n.store.Get(ctx, invoiceID)
	if err != nil {
		return err
	}

	client, err := n.store.GetUser(ctx, inv.ClientID)
	if err != nil || client.Email == "" {
		return ErrClientContactNotFound
	}

	vendor, err := n.store.GetUser(ctx, inv.VendorID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Invoice %s from %s", inv.LegalInvoiceNumber, vendor.DisplayName())
	body := renderInvoiceEmail(inv, vendor)

	return n.mailer.Send(ctx, client.DisplayName(), client.Email, subject, body)
}

func renderInvoiceEmail(inv *models.Invoice, vendor *models.User) string {
	return fmt.Sprintf(
		`<p>%s has sent you invoice <strong>%s</strong>.</p>
<table>
<tr><td>Subtotal</td><td>%.2f %s</td></tr>
<tr><td>VAT (%.0f%%)</td><td>%.2f %s</td></tr>
<tr><td><strong>Total</strong></td><td><strong>%.2f %s</strong></td></tr>
</table>
<p>You can review and pay the invoice from your Vendora dashboard.</p>`,
		vendor.DisplayName(), inv.LegalInvoiceNumber,
		inv.SubtotalAmount, inv.Currency,
		inv.VATRate, inv.VATAmount, inv.Currency,
		inv.TotalAmount, inv.Currency,
	)
}
