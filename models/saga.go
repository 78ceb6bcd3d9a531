package models

import (
	"time"
)

// Send saga step names, in execution order.
const (
	StepPaymentSession = "payment_session"
	StepAdvanceStatus  = "advance_status"
	StepNotifyClient   = "notify_client"
)

// InvoiceStep is a durable record of a completed side effect of the vendor
// sign-and-send flow. The unique index makes each step run at most once per
// invoice; a partially failed send resumes at the first missing step.
type InvoiceStep struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	InvoiceID   string    `gorm:"size:36;not null;uniqueIndex:idx_invoice_step,priority:1" json:"invoice_id"`
	Step        string    `gorm:"size:40;not null;uniqueIndex:idx_invoice_step,priority:2" json:"step"`
	CompletedAt time.Time `json:"completed_at"`
}

// TableName overrides the table name
func (InvoiceStep) TableName() string {
	return "invoice_steps"
}
