package domain

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Resolved reports whether the payment has left the pending state.
// Resolved payments never transition again.
func (s PaymentStatus) Resolved() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

// Payment is 1:1 with an order. Authority is the gateway's opaque token
// for one authorization attempt; RefID is the gateway reference recorded
// on successful verification.
type Payment struct {
	ID           string        `json:"id"`
	OrderID      string        `json:"orderId"`
	Amount       int64         `json:"amount"`
	Method       string        `json:"method"`
	Status       PaymentStatus `json:"status"`
	Authority    string        `json:"-"`
	RefID        string        `json:"refId,omitempty"`
	TrackingCode string        `json:"trackingCode"`
	CreatedAt    time.Time     `json:"createdAt"`
}
