package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{
		BaseURL:     server.URL,
		SecretKey:   "sk_test_secret",
		CallbackURL: "https://shop.example/api/v1/payments/callback",
	})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client, server
}

func TestInitializeTransaction(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request failed: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "ref-init-1"
			}
		}`))
	})

	result, err := client.InitializeTransaction(context.Background(), InitializeInput{
		Email:       "buyer@example.com",
		AmountMinor: 720000,
		Reference:   "ref-init-1",
		Metadata:    map[string]interface{}{"order_id": 7},
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if result.AuthorizationURL != "https://checkout.paystack.com/abc123" || result.AccessCode != "abc123" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if gotAuth != "Bearer sk_test_secret" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/transaction/initialize" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["email"] != "buyer@example.com" || gotBody["reference"] != "ref-init-1" {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	// JSON numbers decode as float64.
	if gotBody["amount"].(float64) != 720000 {
		t.Fatalf("unexpected amount: %v", gotBody["amount"])
	}
	if gotBody["callback_url"] != "https://shop.example/api/v1/payments/callback" {
		t.Fatalf("config callback not applied: %v", gotBody["callback_url"])
	}
}

func TestInitializeTransactionRejectsInvalidInput(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request sent despite invalid input")
	})
	cases := []InitializeInput{
		{Email: "", AmountMinor: 100, Reference: "r"},
		{Email: "a@b.com", AmountMinor: 0, Reference: "r"},
		{Email: "a@b.com", AmountMinor: 100, Reference: ""},
	}
	for _, input := range cases {
		if _, err := client.InitializeTransaction(context.Background(), input); err == nil {
			t.Fatalf("expected error for %+v", input)
		}
	}
}

func TestVerifyTransaction(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {"status": "Success", "amount": 720000}
		}`))
	})

	result, err := client.VerifyTransaction(context.Background(), "ref-verify-1")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if gotPath != "/transaction/verify/ref-verify-1" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	// Gateway casing is normalized.
	if result.Status != StatusSuccess {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.AmountMinor != 720000 {
		t.Fatalf("unexpected amount: %d", result.AmountMinor)
	}
}

func TestVerifyTransactionHTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})
	_, err := client.VerifyTransaction(context.Background(), "ref-x")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed, got %v", err)
	}
}

func TestVerifyTransactionGatewayRejection(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	})
	_, err := client.VerifyTransaction(context.Background(), "ref-x")
	if !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("expected ErrResponseInvalid, got %v", err)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	if _, err := NewClient(Config{SecretKey: "sk"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for missing base url, got %v", err)
	}
	if _, err := NewClient(Config{BaseURL: "https://api.paystack.co"}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid for missing secret, got %v", err)
	}
}
