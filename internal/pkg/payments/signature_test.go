package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
)

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestIntegritySignature_Golden(t *testing.T) {
	sig, err := IntegritySignature("order_1", "200000", "COP", "secret")
	require.NoError(t, err)
	assert.Equal(t, "118f7074488fbf420aaa0d03d59bb9db27d72f96e385bea06cbb3191e1683d25", sig)
	assert.Regexp(t, hex64, sig)
}

func TestIntegritySignature_WithExpiration(t *testing.T) {
	sig, err := IntegritySignatureWithExpiration("order_1", "200000", "COP", "2026-01-01T00:00:00.000Z", "secret")
	require.NoError(t, err)
	assert.Equal(t, "37aa52eb49755d36ff2cff6ed00f053a6a117138cd7db635690a90ebc3c7ba80", sig)
}

func TestIntegritySignature_Deterministic(t *testing.T) {
	a, err := IntegritySignature("ref-42", "150000", "COP", "k")
	require.NoError(t, err)
	b, err := IntegritySignature("ref-42", "150000", "COP", "k")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIntegritySignature_EveryFieldMatters(t *testing.T) {
	base, err := IntegritySignature("ref-42", "150000", "COP", "k")
	require.NoError(t, err)

	variants := []struct {
		name                       string
		ref, amount, currency, key string
	}{
		{"reference", "ref-43", "150000", "COP", "k"},
		{"amount", "ref-42", "150001", "COP", "k"},
		{"currency", "ref-42", "150000", "USD", "k"},
		{"key", "ref-42", "150000", "COP", "k2"},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			sig, err := IntegritySignature(v.ref, v.amount, v.currency, v.key)
			require.NoError(t, err)
			assert.NotEqual(t, base, sig)
		})
	}
}

func TestIntegritySignature_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name                       string
		ref, amount, currency, key string
		kind                       apperror.Kind
		code                       string
	}{
		{"empty amount", "a1", "", "USD", "k", apperror.Validation, "missing_amount"},
		{"empty reference", "", "100", "USD", "k", apperror.Validation, "missing_reference"},
		{"empty currency", "a1", "100", "", "k", apperror.Validation, "missing_currency"},
		{"non numeric amount", "a1", "10.5", "USD", "k", apperror.Validation, "invalid_amount"},
		{"missing key", "a1", "100", "USD", "", apperror.Config, "config_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IntegritySignature(tt.ref, tt.amount, tt.currency, tt.key)
			require.Error(t, err)

			var ae *apperror.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.kind, ae.Kind)
			assert.Equal(t, tt.code, ae.Code)
		})
	}
}

func TestParseAmountInCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "200000", want: 200000},
		{in: " 1500 ", want: 1500},
		{in: "2000.50", want: 200050},
		{in: "2000.5", want: 200050},
		{in: "0.01", want: 1},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "1.001", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
		{in: "184467440737095516.21", wantErr: true},
		{in: "92233720368547758.07", want: math.MaxInt64},
		{in: "92233720368547758.08", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseAmountInCents(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			assert.True(t, apperror.IsKind(err, apperror.Validation), "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func signedEvent(t *testing.T, secret string) []byte {
	t.Helper()
	raw := "txn-1" + "APPROVED" + "150000" + "1700000000" + secret
	sum := sha256.Sum256([]byte(raw))
	checksum := hex.EncodeToString(sum[:])
	return []byte(`{
		"event": "transaction.updated",
		"data": {"transaction": {"id": "txn-1", "status": "APPROVED", "amount_in_cents": 150000, "customer_email": "a@b.co"}},
		"signature": {"properties": ["transaction.id", "transaction.status", "transaction.amount_in_cents"], "checksum": "` + checksum + `"},
		"timestamp": 1700000000
	}`)
}

func TestVerifyEventChecksum(t *testing.T) {
	payload := signedEvent(t, "events-secret")

	assert.True(t, VerifyEventChecksum(payload, "", "events-secret"))
	assert.False(t, VerifyEventChecksum(payload, "", "other-secret"))
	assert.False(t, VerifyEventChecksum(payload, "", ""))
	assert.False(t, VerifyEventChecksum([]byte("not json"), "", "events-secret"))
}

func TestVerifyEventChecksum_HeaderFallback(t *testing.T) {
	raw := "txn-1" + "1700000000" + "s"
	sum := sha256.Sum256([]byte(raw))
	payload := []byte(`{"data":{"transaction":{"id":"txn-1"}},"signature":{"properties":["transaction.id"]},"timestamp":1700000000}`)

	assert.True(t, VerifyEventChecksum(payload, hex.EncodeToString(sum[:]), "s"))
	assert.False(t, VerifyEventChecksum(payload, "", "s"))
}

func TestEventID_StablePerBody(t *testing.T) {
	a := EventID([]byte(`{"a":1}`))
	assert.Equal(t, a, EventID([]byte(`{"a":1}`)))
	assert.NotEqual(t, a, EventID([]byte(`{"a":2}`)))
	assert.Regexp(t, `^hash:[0-9a-f]{64}$`, a)
}
