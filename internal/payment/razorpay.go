package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com"

// RazorpayGateway talks to the Razorpay Orders API over HTTPS with key
// id/secret basic auth.  All requests carry a bounded timeout so a slow
// gateway cannot hold a checkout request open indefinitely; the caller
// only writes booking rows after CreateOrder has returned.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	baseURL   string
	client    *http.Client
}

// NewRazorpayGateway builds a gateway client for the given API
// credentials.  The HTTP client timeout applies to every call.
func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayGateway{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// orderRequest mirrors the POST /v1/orders body.
type orderRequest struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID string `json:"id"`
}

// CreateOrder opens a Razorpay order and returns its id.  Any transport
// or non-2xx failure is wrapped in ErrGateway.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(orderRequest{Amount: amountMinorUnits, Currency: currency, Receipt: receipt})
	if err != nil {
		return "", fmt.Errorf("%w: encode order: %v", ErrGateway, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: orders API returned %s", ErrGateway, resp.Status)
	}
	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode order response: %v", ErrGateway, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: orders API returned empty id", ErrGateway)
	}
	return out.ID, nil
}

// Verify checks the callback signature: HMAC-SHA256 over
// "<order_id>|<payment_id>" keyed with the API secret, hex encoded.
// Comparison is constant time.
func (g *RazorpayGateway) Verify(proof Proof) bool {
	if proof.OrderID == "" || proof.PaymentID == "" || proof.Signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(proof.OrderID + "|" + proof.PaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(proof.Signature))
}
