package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateOrder_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/orders" {
			t.Fatalf("path = %s, want /v1/orders", r.URL.Path)
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "secret" {
			t.Fatalf("unexpected basic auth: %q %q", user, pass)
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 64900 {
			t.Fatalf("amount = %d, want 64900", req.Amount)
		}
		if req.Currency != "INR" {
			t.Fatalf("currency = %q, want INR", req.Currency)
		}
		if req.Receipt != "ORD1" {
			t.Fatalf("receipt = %q, want ORD1", req.Receipt)
		}
		if req.Notes["bookTitle"] != "The Art of React Programming" {
			t.Fatalf("unexpected notes: %+v", req.Notes)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(Order{
			ID:       "order_rzp1",
			Amount:   req.Amount,
			Currency: req.Currency,
		}); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "rzp_test_key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	order, err := client.CreateOrder(ctx, 64900, "ORD1", map[string]string{
		"orderId":   "ORD1",
		"bookTitle": "The Art of React Programming",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order.ID != "order_rzp1" || order.Amount != 64900 || order.Currency != "INR" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrder_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "rzp_test_key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.CreateOrder(ctx, 100, "ORD1", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCreateOrder_NoCredentials(t *testing.T) {
	client := NewClient(DefaultBaseURL, "", "")

	_, err := client.CreateOrder(context.Background(), 100, "ORD1", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func signPayload(secret, razorpayOrderID, razorpayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(razorpayOrderID + "|" + razorpayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	const secret = "integration-secret"

	client := NewClient(DefaultBaseURL, "rzp_test_key", secret)
	valid := signPayload(secret, "order_rzp1", "pay_1")

	tests := []struct {
		name      string
		client    *Client
		paymentID string
		signature string
		want      bool
	}{
		{
			name:      "valid signature",
			client:    client,
			paymentID: "pay_1",
			signature: valid,
			want:      true,
		},
		{
			name:      "tampered payment id",
			client:    client,
			paymentID: "pay_2",
			signature: valid,
			want:      false,
		},
		{
			name:      "garbage signature",
			client:    client,
			paymentID: "pay_1",
			signature: "deadbeef",
			want:      false,
		},
		{
			name:      "empty signature",
			client:    client,
			paymentID: "pay_1",
			signature: "",
			want:      false,
		},
		{
			name:      "missing secret fails closed",
			client:    NewClient(DefaultBaseURL, "rzp_test_key", ""),
			paymentID: "pay_1",
			signature: valid,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.client.VerifySignature("order_rzp1", tt.paymentID, tt.signature)
			if got != tt.want {
				t.Fatalf("VerifySignature = %v, want %v", got, tt.want)
			}
		})
	}
}
