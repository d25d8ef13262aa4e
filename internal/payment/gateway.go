// Package payment abstracts the external payment collaborator behind a
// small capability interface so the booking service can be exercised
// with a deterministic fake in tests and run without a live gateway
// account in bypass mode.
package payment

import (
	"context"
	"errors"
)

// ErrGateway wraps network or API failures while talking to the payment
// provider.  Reservation treats it as fatal for the request: no booking
// rows are written when order creation fails.
var ErrGateway = errors.New("payment gateway error")

// Proof is the callback payload a payer's browser posts back after
// completing payment.  Signature authenticates (OrderID, PaymentID)
// against the gateway's shared secret.
type Proof struct {
	OrderID   string `json:"order_id" form:"razorpay_order_id"`
	PaymentID string `json:"payment_id" form:"razorpay_payment_id"`
	Signature string `json:"signature" form:"razorpay_signature"`
}

// Gateway is the injected payment capability.  CreateOrder opens a
// payment intent for the given amount in integer minor units (paise for
// INR) and returns the gateway's order id.  Verify reports whether a
// payment proof is authentic; it must be a pure check with no side
// effects, since settlement calls it before mutating any state.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error)
	Verify(proof Proof) bool
}
