package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBypassCreateOrder(t *testing.T) {
	g := NewBypassGateway()

	first, err := g.CreateOrder(context.Background(), 249800, "INR", "rcpt_x")
	require.NoError(t, err)
	second, err := g.CreateOrder(context.Background(), 249800, "INR", "rcpt_x")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first, "local_"))
	assert.Len(t, first, len("local_")+32)
	// ids must be unguessable, never derived from the request
	assert.NotEqual(t, first, second)
}

func TestBypassVerify(t *testing.T) {
	g := NewBypassGateway()

	ok := Proof{OrderID: "local_0123456789abcdef", PaymentID: "bypassed_local_0123456789abcdef", Signature: BypassProof}
	assert.True(t, g.Verify(ok))

	assert.False(t, g.Verify(Proof{OrderID: "order_real", PaymentID: "pay_1", Signature: BypassProof}))
	assert.False(t, g.Verify(Proof{OrderID: "local_0123", PaymentID: "", Signature: BypassProof}))
	assert.False(t, g.Verify(Proof{OrderID: "local_0123", PaymentID: "pay_1", Signature: "wrong"}))
}
