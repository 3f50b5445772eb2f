package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionRequest() SessionRequest {
	return SessionRequest{
		TransactionID: "TXN-1",
		Amount:        decimal.NewFromInt(1350),
		Currency:      "BDT",
		SuccessURL:    "http://localhost:8080/api/payment/success",
		FailURL:       "http://localhost:8080/api/payment/fail",
		CancelURL:     "http://localhost:8080/api/payment/cancel",
		CustomerName:  "Reader One",
		CustomerEmail: "reader@example.com",
	}
}

func TestClient_CreateSession_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "store-1", r.PostForm.Get("store_id"))
		assert.Equal(t, "TXN-1", r.PostForm.Get("tran_id"))
		assert.Equal(t, "1350.00", r.PostForm.Get("total_amount"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"SUCCESS","sessionkey":"SESSION-1","GatewayPageURL":"https://gateway.example.com/pay/SESSION-1"}`))
	}))
	defer server.Close()

	client := NewClient(Config{
		StoreID:       "store-1",
		StorePassword: "secret",
		SessionURL:    server.URL,
	})

	session, err := client.CreateSession(context.Background(), testSessionRequest())

	require.NoError(t, err)
	assert.Equal(t, "SESSION-1", session.SessionKey)
	assert.Equal(t, "https://gateway.example.com/pay/SESSION-1", session.GatewayPageURL)
}

func TestClient_CreateSession_Refused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"FAILED","failedreason":"store credential mismatch"}`))
	}))
	defer server.Close()

	client := NewClient(Config{StoreID: "store-1", StorePassword: "wrong", SessionURL: server.URL})

	session, err := client.CreateSession(context.Background(), testSessionRequest())

	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.ErrorContains(t, err, "store credential mismatch")
	assert.Nil(t, session)
}

func TestClient_CreateSession_GatewayDown(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close()

	client := NewClient(Config{SessionURL: server.URL})

	_, err := client.CreateSession(context.Background(), testSessionRequest())
	assert.ErrorIs(t, err, ErrGatewayUnreachable)
}

func TestClient_ValidateTransaction(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr error
	}{
		{"valid", "VALID", nil},
		{"validated", "VALIDATED", nil},
		{"invalid", "INVALID_TRANSACTION", ErrInvalidPayment},
		{"pending", "PENDING", ErrInvalidPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "VAL-1", r.URL.Query().Get("val_id"))
				assert.Equal(t, "store-1", r.URL.Query().Get("store_id"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"status":"` + tt.status + `","tran_id":"TXN-1"}`))
			}))
			defer server.Close()

			client := NewClient(Config{StoreID: "store-1", StorePassword: "secret", ValidationURL: server.URL})

			err := client.ValidateTransaction(context.Background(), "VAL-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
