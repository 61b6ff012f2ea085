package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache TokenCache) *WompiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWompiClient(config.GatewayConfig{
		APIURL:     srv.URL,
		PublicKey:  "pub_test_123",
		PrivateKey: "prv_test_456",
		Timeout:    2 * time.Second,
	}, cache)
}

func TestWompiClient_GetTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transactions/txn-1", r.URL.Path)
		assert.Equal(t, "Bearer prv_test_456", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":"txn-1","status":"approved","amount_in_cents":150000,"reference":"order_1","currency":"COP","customer_email":"a@b.co","payment_method_type":"CARD"}}`)
	}, nil)

	tx, err := client.GetTransaction(context.Background(), "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", tx.ID)
	assert.Equal(t, "APPROVED", tx.Status)
	assert.Equal(t, int64(150000), tx.AmountInCents)
	assert.Equal(t, "a@b.co", tx.CustomerEmail)
}

func TestWompiClient_GetTransactionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperror.Kind
	}{
		{"server error", http.StatusInternalServerError, `oops`, apperror.Upstream},
		{"not found", http.StatusNotFound, `{"error":{"type":"NOT_FOUND_ERROR","reason":"La entidad solicitada no existe"}}`, apperror.Upstream},
		{"rejected", http.StatusUnprocessableEntity, `{"error":{"type":"INPUT_VALIDATION_ERROR"}}`, apperror.Validation},
		{"empty data", http.StatusOK, `{"data":null}`, apperror.Upstream},
		{"invalid json", http.StatusOK, `<html>`, apperror.Upstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, nil)

			_, err := client.GetTransaction(context.Background(), "txn-1")
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestWompiClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	client := NewWompiClient(config.GatewayConfig{APIURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := client.GetTransaction(context.Background(), "txn-1")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.Upstream))
}

func TestWompiClient_CreateTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transactions", r.URL.Path)

		var req CreateTransactionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acc", req.AcceptanceToken)
		assert.Equal(t, "CARD", req.PaymentMethod.Type)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"gw-9","status":"PENDING","reference":"`+req.Reference+`"}}`)
	}, nil)

	tx, err := client.CreateTransaction(context.Background(), CreateTransactionRequest{
		AcceptanceToken: "acc",
		AmountInCents:   1000,
		Currency:        "COP",
		Reference:       "order_9",
		PaymentMethod:   PaymentMethod{Type: "CARD", Token: "tok", Installments: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "gw-9", tx.ID)
	assert.Equal(t, "order_9", tx.Reference)
}

func TestWompiClient_AcceptanceTokenCached(t *testing.T) {
	var hits int32
	cache := &memoryCache{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/merchants/pub_test_123", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":{"id":1,"presigned_acceptance":{"acceptance_token":"eyJ.token","permalink":"https://example.com/terms.pdf"}}}`)
	}, cache)

	for i := 0; i < 3; i++ {
		token, err := client.AcceptanceToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "eyJ.token", token)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWompiClient_AcceptanceTokenWithoutPublicKey(t *testing.T) {
	client := NewWompiClient(config.GatewayConfig{APIURL: "http://127.0.0.1:1"}, nil)

	_, err := client.AcceptanceToken(context.Background())
	assert.True(t, apperror.IsKind(err, apperror.Config))
}
