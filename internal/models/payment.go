package models

import "time"

// PaymentStatus represents the ledger state of a payment record.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Valid reports whether the status is a known ledger state.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is a ledger record of a tuition or fee payment. The external
// reference points at the processor's payment intent; the processor itself is
// not called from this service.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	ApplicationID *string       `db:"application_id" json:"application_id,omitempty"`
	AmountCents   int64         `db:"amount_cents" json:"amount_cents"`
	Currency      string        `db:"currency" json:"currency"`
	Method        string        `db:"method" json:"method,omitempty"`
	ExternalRef   *string       `db:"external_ref" json:"external_ref,omitempty"`
	Status        PaymentStatus `db:"status" json:"status"`
	Description   string        `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentFilter provides filters for listing payments.
type PaymentFilter struct {
	ApplicationID string
	Status        PaymentStatus
	Page          int
	PageSize      int
}
