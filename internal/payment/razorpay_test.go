package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signProof(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayCreateOrder(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotBody orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "order_ABC123"})
	}))
	defer srv.Close()

	g := NewRazorpayGateway("key_id", "key_secret", 5*time.Second)
	g.baseURL = srv.URL

	orderID, err := g.CreateOrder(context.Background(), 249800, "INR", "rcpt_x")
	require.NoError(t, err)
	assert.Equal(t, "order_ABC123", orderID)
	assert.Equal(t, "key_id", gotAuthUser)
	assert.Equal(t, "key_secret", gotAuthPass)
	assert.Equal(t, int64(249800), gotBody.Amount)
	assert.Equal(t, "INR", gotBody.Currency)
	assert.Equal(t, "rcpt_x", gotBody.Receipt)
}

func TestRazorpayCreateOrderErrors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"bad auth"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key_id", "wrong", 5*time.Second)
		g.baseURL = srv.URL
		_, err := g.CreateOrder(context.Background(), 100, "INR", "rcpt_x")
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("empty order id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{})
		}))
		defer srv.Close()

		g := NewRazorpayGateway("key_id", "key_secret", 5*time.Second)
		g.baseURL = srv.URL
		_, err := g.CreateOrder(context.Background(), 100, "INR", "rcpt_x")
		assert.ErrorIs(t, err, ErrGateway)
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		g := NewRazorpayGateway("key_id", "key_secret", time.Second)
		g.baseURL = "http://127.0.0.1:1"
		_, err := g.CreateOrder(context.Background(), 100, "INR", "rcpt_x")
		assert.ErrorIs(t, err, ErrGateway)
	})
}

func TestRazorpayVerify(t *testing.T) {
	g := NewRazorpayGateway("key_id", "key_secret", time.Second)
	sig := signProof("key_secret", "order_ABC123", "pay_XYZ789")

	assert.True(t, g.Verify(Proof{OrderID: "order_ABC123", PaymentID: "pay_XYZ789", Signature: sig}))

	assert.False(t, g.Verify(Proof{OrderID: "order_ABC123", PaymentID: "pay_other", Signature: sig}))
	assert.False(t, g.Verify(Proof{OrderID: "order_other", PaymentID: "pay_XYZ789", Signature: sig}))
	assert.False(t, g.Verify(Proof{OrderID: "order_ABC123", PaymentID: "pay_XYZ789", Signature: "deadbeef"}))
	assert.False(t, g.Verify(Proof{}))

	wrongKey := signProof("another_secret", "order_ABC123", "pay_XYZ789")
	assert.False(t, g.Verify(Proof{OrderID: "order_ABC123", PaymentID: "pay_XYZ789", Signature: wrongKey}))
}
